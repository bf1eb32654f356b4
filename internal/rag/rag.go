// Package rag composes retrieval, prompt templating, chat history and
// text generation into one answer-generation transaction.
//
// One Answer call walks a fixed pipeline: embed the query and retrieve
// similar documents, build the prompt bundle, fetch session history,
// generate, persist the turn's delta. Empty retrieval short-circuits
// the whole pipeline before any generation call is made.
package rag

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/minirag/minirag/internal/llm"
	"github.com/minirag/minirag/internal/log"
	"github.com/minirag/minirag/internal/template"
	"github.com/minirag/minirag/internal/vectorstore"
)

// DefaultLimit is the number of documents retrieved per query when no
// override is given.
const DefaultLimit = 5

var tracer = otel.Tracer("github.com/minirag/minirag/internal/rag")

// Provider is the generation surface the orchestrator consumes.
type Provider interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	GenerateText(ctx context.Context, prompt string, history []llm.Message, opts ...llm.GenerateOption) (string, error)
	ConstructPrompt(role, content, fullPrompt string) llm.Message
}

// VectorSearcher retrieves documents ranked by similarity, best first.
type VectorSearcher interface {
	Query(ctx context.Context, embedding []float32, limit int) ([]vectorstore.Document, error)
}

// HistoryStore persists per-session conversation history.
type HistoryStore interface {
	History(ctx context.Context, userID, sessionID string) ([]llm.Message, bool, error)
	Append(ctx context.Context, userID, sessionID string, delta []llm.Message) error
}

// Templates renders locale-aware prompt fragments.
type Templates interface {
	Get(domain, name string, subs map[string]string) (string, error)
}

// Result is one completed answer transaction. ChatHistory is the
// message list the generation call was dispatched with.
type Result struct {
	Answer      string        `json:"answer"`
	FullPrompt  string        `json:"full_prompt"`
	ChatHistory []llm.Message `json:"chat_history"`
}

// Option overrides one Answer parameter.
type Option func(*answerOptions)

type answerOptions struct {
	limit int
}

// WithLimit overrides the number of documents retrieved for this call.
// Values below one fall back to the default.
func WithLimit(limit int) Option {
	return func(o *answerOptions) {
		if limit > 0 {
			o.limit = limit
		}
	}
}

// Orchestrator runs the answer pipeline.
//
// Orchestrator is safe for concurrent use by multiple goroutines.
// Calls for the same (userID, sessionID) pair serialize on a keyed
// lock so concurrent turns cannot interleave history reads and writes.
type Orchestrator struct {
	provider  Provider
	vectors   VectorSearcher
	history   HistoryStore
	templates Templates
	logger    log.Logger
	sessions  *keyedMutex
}

// New creates an Orchestrator. All collaborators are required.
func New(provider Provider, vectors VectorSearcher, history HistoryStore, templates Templates, logger log.Logger) (*Orchestrator, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if vectors == nil {
		return nil, fmt.Errorf("vector searcher is required")
	}
	if history == nil {
		return nil, fmt.Errorf("history store is required")
	}
	if templates == nil {
		return nil, fmt.Errorf("template engine is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Orchestrator{
		provider:  provider,
		vectors:   vectors,
		history:   history,
		templates: templates,
		logger:    logger,
		sessions:  newKeyedMutex(),
	}, nil
}

// Answer runs one answer transaction for (userID, sessionID, query).
//
// Empty retrieval returns (nil, nil): no documents means no answer and
// no generation call, which is a valid outcome, not an error. When
// generation succeeds but persisting the session delta fails, the
// Result is still returned alongside an error wrapping the store
// failure; callers decide whether a lost history delta is acceptable.
func (o *Orchestrator) Answer(ctx context.Context, userID, sessionID, query string, opts ...Option) (*Result, error) {
	options := answerOptions{limit: DefaultLimit}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, span := tracer.Start(ctx, "rag.answer")
	defer span.End()
	span.SetAttributes(attribute.Int("rag.limit", options.limit))

	unlock := o.sessions.Lock(userID + "\x00" + sessionID)
	defer unlock()

	// RETRIEVE
	embedding, err := o.provider.EmbedText(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	docs, err := o.vectors.Query(ctx, embedding, options.limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("retrieving documents: %w", err)
	}
	span.SetAttributes(attribute.Int("rag.documents", len(docs)))
	if len(docs) == 0 {
		o.logger.Debug("no documents retrieved, skipping generation",
			"user_id", userID, "session_id", sessionID)
		return nil, nil
	}

	// BUILD_PROMPT
	systemPrompt, fullPrompt, err := o.buildPrompts(query, docs)
	if err != nil {
		return nil, err
	}

	// FETCH_HISTORY
	stored, found, err := o.history.History(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetching chat history: %w", err)
	}

	// The delta starts with the system seed on a fresh session. Stored
	// history already holds its seed from the first turn, so it is
	// never re-inserted.
	var delta []llm.Message
	if !found {
		delta = append(delta, o.provider.ConstructPrompt(llm.RoleSystem, systemPrompt, ""))
	}
	delta = append(delta, o.provider.ConstructPrompt(llm.RoleUser, query, ""))

	chatHistory := make([]llm.Message, 0, len(stored)+len(delta))
	if found {
		chatHistory = append(chatHistory, stored...)
		chatHistory = append(chatHistory, delta...)
	} else {
		chatHistory = append(chatHistory, delta...)
	}

	// GENERATE
	answer, err := o.provider.GenerateText(ctx, fullPrompt, chatHistory)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	delta = append(delta, o.provider.ConstructPrompt(llm.RoleAssistant, answer, fullPrompt))

	result := &Result{
		Answer:      answer,
		FullPrompt:  fullPrompt,
		ChatHistory: chatHistory,
	}

	// PERSIST
	if err := o.history.Append(ctx, userID, sessionID, delta); err != nil {
		span.RecordError(err)
		// The answer already exists; losing the delta must not hide it.
		o.logger.Error("answer generated but session delta not persisted",
			"user_id", userID, "session_id", sessionID, "error", err)
		return result, fmt.Errorf("persisting session delta: %w", err)
	}

	return result, nil
}

// buildPrompts renders the system prompt and the full prompt for one
// query. Document prompts are numbered from one in retrieval order and
// joined by a newline; the footer follows after a blank line.
func (o *Orchestrator) buildPrompts(query string, docs []vectorstore.Document) (systemPrompt, fullPrompt string, err error) {
	systemPrompt, err = o.templates.Get(template.DomainRAG, template.SystemPrompt, nil)
	if err != nil {
		return "", "", fmt.Errorf("rendering system prompt: %w", err)
	}

	documentPrompts := make([]string, 0, len(docs))
	for i, doc := range docs {
		rendered, err := o.templates.Get(template.DomainRAG, template.DocumentPrompt, map[string]string{
			"doc_num":    strconv.Itoa(i + 1),
			"chunk_text": doc.Content,
		})
		if err != nil {
			return "", "", fmt.Errorf("rendering document prompt %d: %w", i+1, err)
		}
		documentPrompts = append(documentPrompts, rendered)
	}

	footer, err := o.templates.Get(template.DomainRAG, template.FooterPrompt, map[string]string{
		"query": query,
	})
	if err != nil {
		return "", "", fmt.Errorf("rendering footer prompt: %w", err)
	}

	fullPrompt = strings.Join(documentPrompts, "\n") + "\n\n" + footer
	return systemPrompt, fullPrompt, nil
}

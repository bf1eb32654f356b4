package testutil

import (
	"context"
	"sync"

	"github.com/minirag/minirag/internal/llm"
)

// FakeProvider is a scripted llm.Provider for tests. It records every
// GenerateText and EmbedText call and replays configured responses.
//
// FakeProvider is safe for concurrent use by multiple goroutines.
type FakeProvider struct {
	mu sync.Mutex

	// GenerateResponse is returned by GenerateText when GenerateErr is nil.
	GenerateResponse string
	// GenerateErr, when set, fails every GenerateText call.
	GenerateErr error
	// EmbedFunc computes embeddings. Nil uses a fixed unit vector.
	EmbedFunc func(text string) []float32
	// EmbedErr, when set, fails every EmbedText call.
	EmbedErr error
	// Settings feed ConstructPrompt truncation.
	Settings llm.Settings

	generateCalls []GenerateCall
	embedCalls    []string
}

// GenerateCall records the arguments of one GenerateText invocation.
type GenerateCall struct {
	Prompt  string
	History []llm.Message
}

var _ llm.Provider = (*FakeProvider)(nil)

func (f *FakeProvider) SetGenerationModel(string) error     { return nil }
func (f *FakeProvider) SetEmbeddingModel(string, int) error { return nil }

// GenerateText records the call and returns the scripted response. The
// history slice is copied at call time so later mutations by the caller
// do not alter the record.
func (f *FakeProvider) GenerateText(_ context.Context, prompt string, history []llm.Message, _ ...llm.GenerateOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	recorded := make([]llm.Message, len(history))
	copy(recorded, history)
	f.generateCalls = append(f.generateCalls, GenerateCall{Prompt: prompt, History: recorded})

	if f.GenerateErr != nil {
		return "", f.GenerateErr
	}
	return f.GenerateResponse, nil
}

func (f *FakeProvider) EmbedText(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.embedCalls = append(f.embedCalls, text)
	if f.EmbedErr != nil {
		return nil, f.EmbedErr
	}
	if f.EmbedFunc != nil {
		return f.EmbedFunc(text), nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *FakeProvider) ConstructPrompt(role, content, fullPrompt string) llm.Message {
	return llm.Message{Role: role, Content: content, FullPrompt: fullPrompt}
}

func (f *FakeProvider) CleanMessages(messages []llm.Message) []llm.Message {
	cleaned := make([]llm.Message, len(messages))
	for i, m := range messages {
		cleaned[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return cleaned
}

// GenerateCalls returns a snapshot of recorded GenerateText calls.
func (f *FakeProvider) GenerateCalls() []GenerateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]GenerateCall(nil), f.generateCalls...)
}

// EmbedCalls returns a snapshot of recorded EmbedText inputs.
func (f *FakeProvider) EmbedCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.embedCalls...)
}

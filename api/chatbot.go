package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/minirag/minirag/internal/llm"
	"github.com/minirag/minirag/internal/log"
	"github.com/minirag/minirag/internal/rag"
)

// Response signals for the answer endpoint.
const (
	SignalAnswerSuccess = "rag_answer_success"
	SignalAnswerError   = "rag_answer_error"
)

// answerTimeout bounds one answer pipeline run, including the model
// call. Kept below the server write timeout so the error response can
// still reach the client.
const answerTimeout = 4 * time.Minute

// Answerer runs one answer transaction. Satisfied by *rag.Orchestrator.
type Answerer interface {
	Answer(ctx context.Context, userID, sessionID, query string, opts ...rag.Option) (*rag.Result, error)
}

// AnswerRequest is the body of POST /api/v1/chatbot/answer.
// Limit optionally overrides the number of documents retrieved.
type AnswerRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	Limit     int    `json:"limit,omitempty"`
}

// AnswerResponse is the success body of the answer endpoint.
type AnswerResponse struct {
	Signal      string        `json:"signal"`
	Query       string        `json:"query"`
	Answer      string        `json:"answer"`
	FullPrompt  string        `json:"full_prompt,omitempty"`
	ChatHistory []llm.Message `json:"chat_history,omitempty"`
}

// ChatbotHandler handles the answer endpoint.
type ChatbotHandler struct {
	answerer Answerer
	limit    int
	logger   log.Logger
}

// NewChatbotHandler creates a chatbot handler. limit is the default
// retrieval size when a request carries none; zero keeps the pipeline
// default.
func NewChatbotHandler(answerer Answerer, limit int, logger log.Logger) *ChatbotHandler {
	return &ChatbotHandler{answerer: answerer, limit: limit, logger: logger}
}

// RegisterRoutes registers chatbot routes on the given mux.
func (h *ChatbotHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/chatbot/answer", h.answer)
}

// answer runs the pipeline for one query. Empty retrieval and
// generation failures both produce 400 with the error signal; a persist
// failure after successful generation still returns the answer.
func (h *ChatbotHandler) answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON", h.logger)
		return
	}
	if req.UserID == "" || req.SessionID == "" || req.Query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "user_id, session_id and query are required", h.logger)
		return
	}

	var opts []rag.Option
	switch {
	case req.Limit > 0:
		opts = append(opts, rag.WithLimit(req.Limit))
	case h.limit > 0:
		opts = append(opts, rag.WithLimit(h.limit))
	}

	ctx, cancel := context.WithTimeout(r.Context(), answerTimeout)
	defer cancel()

	result, err := h.answerer.Answer(ctx, req.UserID, req.SessionID, req.Query, opts...)
	if err != nil && result == nil {
		h.logger.Error("answer pipeline failed",
			"user_id", req.UserID, "session_id", req.SessionID, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"signal": SignalAnswerError}, h.logger)
		return
	}
	if result == nil {
		// No documents retrieved: a valid outcome with no answer.
		writeJSON(w, http.StatusBadRequest, map[string]string{"signal": SignalAnswerError}, h.logger)
		return
	}
	if err != nil {
		// The turn's history delta was lost but the answer exists.
		h.logger.Error("answer generated but not persisted",
			"user_id", req.UserID, "session_id", req.SessionID, "error", err)
	}

	writeJSON(w, http.StatusOK, AnswerResponse{
		Signal:      SignalAnswerSuccess,
		Query:       req.Query,
		Answer:      result.Answer,
		FullPrompt:  result.FullPrompt,
		ChatHistory: result.ChatHistory,
	}, h.logger)
}

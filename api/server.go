// Package api exposes the answer pipeline over HTTP.
//
// Endpoints:
//
//	GET  /api/v1/                liveness probe
//	GET  /health                 liveness probe
//	GET  /ready                  readiness probe (pings the database)
//	POST /api/v1/chatbot/answer  answer a query with retrieved context
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: request ID, logging, recovery
//   - ratelimit.go: per-IP token bucket limiting
//   - health.go: liveness and readiness probes
//   - chatbot.go: the answer endpoint
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minirag/minirag/internal/log"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:5000"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Generation calls can be slow, so this is generous.
	WriteTimeout = 5 * time.Minute

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout = 120 * time.Second
)

// ServerConfig wires a Server.
type ServerConfig struct {
	// Answerer runs the answer pipeline. Required.
	Answerer Answerer

	// Pool backs the readiness probe. Nil reports not ready.
	Pool *pgxpool.Pool

	// RetrievalLimit is the default number of documents retrieved per
	// answer when the request carries no override. Zero keeps the
	// pipeline default.
	RetrievalLimit int

	// RateLimitPerSecond is the per-IP token refill rate. Zero disables
	// rate limiting.
	RateLimitPerSecond float64

	// RateLimitBurst is the per-IP token bucket size.
	RateLimitBurst int

	// TrustProxy enables client IP extraction from proxy headers.
	TrustProxy bool
}

// Server is the HTTP server for the answer API.
type Server struct {
	mux    *http.ServeMux
	cfg    ServerConfig
	logger log.Logger

	health  *HealthHandler
	chatbot *ChatbotHandler
}

// NewServer creates a server with all routes registered.
func NewServer(cfg ServerConfig, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:     mux,
		cfg:     cfg,
		logger:  logger,
		health:  NewHealthHandler(cfg.Pool, logger),
		chatbot: NewChatbotHandler(cfg.Answerer, cfg.RetrievalLimit, logger),
	}

	s.health.RegisterRoutes(mux)
	s.chatbot.RegisterRoutes(mux)

	return s
}

// Handler returns the mux with middleware applied.
// Order: recovery → request ID → logging → rate limit → handler.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		recoveryMiddleware(s.logger),
		requestIDMiddleware,
		loggingMiddleware(s.logger),
	}
	if s.cfg.RateLimitPerSecond > 0 {
		rl := newRateLimiter(s.cfg.RateLimitPerSecond, s.cfg.RateLimitBurst)
		middlewares = append(middlewares, rateLimitMiddleware(rl, s.cfg.TrustProxy, s.logger))
	}
	return chain(s.mux, middlewares...)
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// chain applies middleware in order: first middleware wraps outermost.
func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

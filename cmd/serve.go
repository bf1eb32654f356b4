package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/minirag/minirag/api"
	"github.com/minirag/minirag/internal/app"
	"github.com/minirag/minirag/internal/config"
	"github.com/minirag/minirag/internal/log"
)

// Rate limiting defaults for the public answer endpoint.
const (
	defaultRatePerSecond = 10
	defaultRateBurst     = 20
)

// parseRateLimit reads MINIRAG_RATE_LIMIT from the environment.
// Returns the default if unset or invalid; zero disables limiting.
func parseRateLimit() float64 {
	v := os.Getenv("MINIRAG_RATE_LIMIT")
	if v == "" {
		return defaultRatePerSecond
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 0 {
		return defaultRatePerSecond
	}
	return n
}

// parseRateBurst reads MINIRAG_RATE_BURST from the environment.
// Returns the default if unset or invalid.
func parseRateBurst() int {
	v := os.Getenv("MINIRAG_RATE_BURST")
	if v == "" {
		return defaultRateBurst
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return defaultRateBurst
	}
	return n
}

// runServe initializes and starts the HTTP API server.
func runServe(logger log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	addr, err := parseServeAddr(cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting HTTP API server", "version", Version)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	srv := api.NewServer(api.ServerConfig{
		Answerer:           a.Orchestrator,
		Pool:               a.DBPool,
		RetrievalLimit:     cfg.TopSimilarityK,
		RateLimitPerSecond: parseRateLimit(),
		RateLimitBurst:     parseRateBurst(),
		TrustProxy:         os.Getenv("MINIRAG_TRUST_PROXY") == "1",
	}, logger)

	logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/api/v1/*",
		"health", "/health, /ready",
	)

	return srv.Run(ctx, addr)
}

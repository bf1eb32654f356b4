// Package cmd provides the CLI commands for minirag.
//
// Commands:
//   - serve: HTTP API server for the answer endpoint
//   - ingest: build the vector index from a document directory
//   - migrate: apply database migrations and exit
//
// Signal handling and graceful shutdown are implemented for the
// long-running commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/minirag/minirag/internal/log"
)

// Execute is the main entry point for the minirag CLI.
func Execute() error {
	// Initialize logger once at entry point.
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	logger := log.New(cfg)
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe(logger)
	case "ingest":
		return runIngest(logger)
	case "migrate":
		return runMigrate(logger)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("minirag - Retrieval-augmented question answering over your documents")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  minirag serve [addr]   Start HTTP API server (default: 127.0.0.1:5000)")
	fmt.Println("  minirag ingest [dir]   Index documents into the vector store")
	fmt.Println("  minirag migrate        Apply database migrations and exit")
	fmt.Println("  minirag --version      Show version information")
	fmt.Println("  minirag --help         Show this help")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println("  ./config.yaml or ~/.minirag/config.yaml, overridable via MINIRAG_* env vars")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_URL           Optional: postgres:// URL overriding postgres_* settings")
	fmt.Println("  OPENAI_API_KEY         Required with the openai backend")
	fmt.Println("  OLLAMA_HOST            Optional: Ollama server address")
	fmt.Println("  DEBUG                  Optional: enable debug logging")
}

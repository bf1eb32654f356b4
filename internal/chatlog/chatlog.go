// Package chatlog persists per-session conversation history.
//
// Sessions are keyed by (user_id, session_id) and hold an append-only
// ordered message sequence. Callers write only the delta produced by
// one turn, never the full history.
package chatlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minirag/minirag/internal/llm"
	"github.com/minirag/minirag/internal/log"
)

// ErrStore reports a chat history persistence failure.
var ErrStore = errors.New("chat log store failure")

// Store persists chat history in PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines. Concurrent
// Append calls for the same session serialize on a row lock, so
// sequence numbers never collide.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// New creates a chat log Store.
func New(pool *pgxpool.Pool, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// History returns the stored messages for (userID, sessionID) in
// insertion order. found is false when the session has never been
// written, which is distinct from an existing session with no messages.
func (s *Store) History(ctx context.Context, userID, sessionID string) ([]llm.Message, bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM chat_sessions WHERE user_id = $1 AND session_id = $2
		 )`,
		userID, sessionID,
	).Scan(&exists)
	if err != nil {
		return nil, false, fmt.Errorf("%w: checking session: %v", ErrStore, err)
	}
	if !exists {
		return nil, false, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT role, content, full_prompt
		 FROM chat_messages
		 WHERE user_id = $1 AND session_id = $2
		 ORDER BY sequence_number`,
		userID, sessionID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("%w: querying history: %v", ErrStore, err)
	}
	defer rows.Close()

	messages := make([]llm.Message, 0, 16)
	for rows.Next() {
		var m llm.Message
		if err := rows.Scan(&m.Role, &m.Content, &m.FullPrompt); err != nil {
			return nil, false, fmt.Errorf("%w: scanning message: %v", ErrStore, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("%w: reading history: %v", ErrStore, err)
	}
	return messages, true, nil
}

// Append writes the delta messages for one turn atomically. The session
// row is created on first write and locked for the duration of the
// transaction, so the whole delta lands with contiguous sequence
// numbers or not at all.
func (s *Store) Append(ctx context.Context, userID, sessionID string, delta []llm.Message) error {
	if len(delta) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", ErrStore, err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", rbErr)
		}
	}()

	// Create the session on first write, then lock its row. The lock
	// serializes concurrent appends to the same session.
	if _, err := tx.Exec(ctx,
		`INSERT INTO chat_sessions (user_id, session_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id, session_id) DO NOTHING`,
		userID, sessionID,
	); err != nil {
		return fmt.Errorf("%w: creating session: %v", ErrStore, err)
	}

	var messageCount int
	if err := tx.QueryRow(ctx,
		`SELECT message_count FROM chat_sessions
		 WHERE user_id = $1 AND session_id = $2
		 FOR UPDATE`,
		userID, sessionID,
	).Scan(&messageCount); err != nil {
		return fmt.Errorf("%w: locking session: %v", ErrStore, err)
	}

	batch := &pgx.Batch{}
	for i, m := range delta {
		batch.Queue(
			`INSERT INTO chat_messages (user_id, session_id, sequence_number, role, content, full_prompt)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			userID, sessionID, messageCount+i+1, m.Role, m.Content, m.FullPrompt,
		)
	}
	batch.Queue(
		`UPDATE chat_sessions
		 SET message_count = message_count + $3, updated_at = now()
		 WHERE user_id = $1 AND session_id = $2`,
		userID, sessionID, len(delta),
	)
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: appending %d messages: %v", ErrStore, len(delta), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing append: %v", ErrStore, err)
	}

	s.logger.Debug("appended messages",
		"user_id", userID, "session_id", sessionID, "count", len(delta))
	return nil
}

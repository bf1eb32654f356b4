package chatlog_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minirag/minirag/internal/chatlog"
	"github.com/minirag/minirag/internal/llm"
	"github.com/minirag/minirag/internal/log"
	"github.com/minirag/minirag/internal/testutil"
)

func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := testutil.SetupTestDB(t)
	store, err := chatlog.New(db.Pool, log.NewNop())
	require.NoError(t, err)

	ctx := t.Context()

	t.Run("history of unknown session reports not found", func(t *testing.T) {
		messages, found, err := store.History(ctx, "u1", "absent")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, messages)
	})

	t.Run("append then read back in order", func(t *testing.T) {
		delta := []llm.Message{
			{Role: llm.RoleSystem, Content: "persona"},
			{Role: llm.RoleUser, Content: "first question"},
			{Role: llm.RoleAssistant, Content: "first answer", FullPrompt: "docs + footer"},
		}
		require.NoError(t, store.Append(ctx, "u1", "s1", delta))

		messages, found, err := store.History(ctx, "u1", "s1")
		require.NoError(t, err)
		assert.True(t, found)
		require.Len(t, messages, 3)
		assert.Equal(t, delta, messages)

		// A second turn appends only its delta.
		require.NoError(t, store.Append(ctx, "u1", "s1", []llm.Message{
			{Role: llm.RoleUser, Content: "second question"},
			{Role: llm.RoleAssistant, Content: "second answer", FullPrompt: "fp2"},
		}))

		messages, found, err = store.History(ctx, "u1", "s1")
		require.NoError(t, err)
		assert.True(t, found)
		require.Len(t, messages, 5)
		assert.Equal(t, "second answer", messages[4].Content)
		assert.Equal(t, "fp2", messages[4].FullPrompt)
	})

	t.Run("sessions are isolated by user and session id", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, "u2", "s1", []llm.Message{
			{Role: llm.RoleUser, Content: "other user"},
		}))

		messages, found, err := store.History(ctx, "u2", "s1")
		require.NoError(t, err)
		assert.True(t, found)
		require.Len(t, messages, 1)

		_, found, err = store.History(ctx, "u2", "s2")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("empty delta is a no-op", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, "u3", "s1", nil))

		_, found, err := store.History(ctx, "u3", "s1")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("concurrent appends keep sequence numbers contiguous", func(t *testing.T) {
		const writers = 8

		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = store.Append(ctx, "u4", "s1", []llm.Message{
					{Role: llm.RoleUser, Content: "q"},
					{Role: llm.RoleAssistant, Content: "a"},
				})
			}()
		}
		wg.Wait()

		messages, found, err := store.History(ctx, "u4", "s1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Len(t, messages, writers*2)

		var count int
		require.NoError(t, db.Pool.QueryRow(ctx,
			`SELECT count(DISTINCT sequence_number) FROM chat_messages
			 WHERE user_id = 'u4' AND session_id = 's1'`).Scan(&count))
		assert.Equal(t, writers*2, count)
	})
}

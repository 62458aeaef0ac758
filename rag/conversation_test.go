package rag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexrag/lexrag/config"
	"github.com/lexrag/lexrag/types"
)

func conversationCfg() config.ConversationConfig {
	return config.ConversationConfig{MaxTurns: 3, TTL: time.Hour, HistoryTurns: 2}
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(conversationCfg())

	created, err := s.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Empty(t, got.Turns)
}

func TestMemoryStoreGetUnknownID(t *testing.T) {
	s := NewMemoryStore(conversationCfg())
	_, err := s.Get(context.Background(), "missing")
	assert.Equal(t, types.ErrConversationNotFound, types.GetErrorCode(err))
}

func TestMemoryStoreAppendTrimsHistory(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(conversationCfg())
	created, err := s.Create(ctx)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, created.ID, types.Turn{Query: string(rune('a' + i))}))
	}

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Turns, 3)
	assert.Equal(t, "c", got.Turns[0].Query)
	assert.Equal(t, "e", got.Turns[2].Query)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(conversationCfg())
	created, err := s.Create(ctx)
	require.NoError(t, err)

	now := time.Now()
	s.now = func() time.Time { return now.Add(2 * time.Hour) }

	_, err = s.Get(ctx, created.ID)
	assert.Equal(t, types.ErrConversationNotFound, types.GetErrorCode(err))
}

func TestMemoryStoreAppendRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(conversationCfg())
	created, err := s.Create(ctx)
	require.NoError(t, err)

	now := time.Now()
	s.now = func() time.Time { return now.Add(50 * time.Minute) }
	require.NoError(t, s.Append(ctx, created.ID, types.Turn{Query: "q"}))

	// 50 more minutes: within TTL of the refreshed UpdatedAt.
	s.now = func() time.Time { return now.Add(100 * time.Minute) }
	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Turns, 1)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(conversationCfg())
	created, err := s.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, created.ID, types.Turn{Query: "original"}))

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	got.Turns[0].Query = "mutated"

	again, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Turns[0].Query)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(conversationCfg())
	created, err := s.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, created.ID))
	_, err = s.Get(ctx, created.ID)
	assert.Equal(t, types.ErrConversationNotFound, types.GetErrorCode(err))

	// Deleting again is a no-op.
	assert.NoError(t, s.Delete(ctx, created.ID))
}

func TestLastTurns(t *testing.T) {
	state := &types.ConversationState{Turns: []types.Turn{
		{Query: "a"}, {Query: "b"}, {Query: "c"},
	}}
	assert.Len(t, state.LastTurns(2), 2)
	assert.Equal(t, "b", state.LastTurns(2)[0].Query)
	assert.Len(t, state.LastTurns(10), 3)
	assert.Nil(t, state.LastTurns(0))
}

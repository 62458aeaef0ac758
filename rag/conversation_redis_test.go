package rag

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexrag/lexrag/types"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, conversationCfg()), mr
}

func TestRedisStoreReadYourWrites(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	created, err := s.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, created.ID, types.Turn{Query: "q1", Answer: "a1"}))

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Turns, 1)
	assert.Equal(t, "q1", got.Turns[0].Query)
}

func TestRedisStoreTrimsHistory(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	created, err := s.Create(ctx)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, created.ID, types.Turn{Query: string(rune('a' + i))}))
	}

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Turns, 3)
	assert.Equal(t, "c", got.Turns[0].Query)
}

func TestRedisStoreUnknownID(t *testing.T) {
	s, _ := newRedisStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.Equal(t, types.ErrConversationNotFound, types.GetErrorCode(err))
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	created, err := s.Create(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = s.Get(ctx, created.ID)
	assert.Equal(t, types.ErrConversationNotFound, types.GetErrorCode(err))
}

func TestRedisStoreDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	created, err := s.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, created.ID))

	_, err = s.Get(ctx, created.ID)
	assert.Equal(t, types.ErrConversationNotFound, types.GetErrorCode(err))
}

func TestRedisStoreUnavailable(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()

	_, err := s.Create(context.Background())
	assert.Equal(t, types.ErrStoreUnavailable, types.GetErrorCode(err))
}

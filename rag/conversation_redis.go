package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lexrag/lexrag/config"
	"github.com/lexrag/lexrag/types"
)

const convKeyPrefix = "lexrag:conv:"

// RedisStore is the Redis-backed ConversationStore for deployments where
// conversations must survive process restarts. State is stored as one
// JSON value per conversation; the key TTL implements expiry.
type RedisStore struct {
	client *redis.Client
	cfg    config.ConversationConfig
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client, cfg config.ConversationConfig) *RedisStore {
	return &RedisStore{client: client, cfg: cfg}
}

func convKey(id string) string { return convKeyPrefix + id }

// Create starts a new conversation with a fresh UUID.
func (s *RedisStore) Create(ctx context.Context) (*types.ConversationState, error) {
	now := time.Now()
	state := &types.ConversationState{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.write(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Get loads a conversation; a missing key maps to ConversationNotFound.
func (s *RedisStore) Get(ctx context.Context, id string) (*types.ConversationState, error) {
	data, err := s.client.Get(ctx, convKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, types.NewError(types.ErrConversationNotFound, "conversation not found: "+id)
	}
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "conversation load failed").WithCause(err)
	}

	var state types.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return &state, nil
}

// Append adds a turn, trims to MaxTurns, and rewrites the key, which
// also refreshes the TTL.
func (s *RedisStore) Append(ctx context.Context, id string, turn types.Turn) error {
	state, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	state.Turns = append(state.Turns, turn)
	if s.cfg.MaxTurns > 0 && len(state.Turns) > s.cfg.MaxTurns {
		state.Turns = state.Turns[len(state.Turns)-s.cfg.MaxTurns:]
	}
	state.UpdatedAt = time.Now()
	return s.write(ctx, state)
}

// Delete removes a conversation.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, convKey(id)).Err(); err != nil {
		return types.NewError(types.ErrStoreUnavailable, "conversation delete failed").WithCause(err)
	}
	return nil
}

func (s *RedisStore) write(ctx context.Context, state *types.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode conversation %s: %w", state.ID, err)
	}
	if err := s.client.Set(ctx, convKey(state.ID), data, s.cfg.TTL).Err(); err != nil {
		return types.NewError(types.ErrStoreUnavailable, "conversation write failed").WithCause(err)
	}
	return nil
}

package rag

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexrag/lexrag/config"
	"github.com/lexrag/lexrag/types"
)

// ConversationStore persists multi-turn conversation state. History is
// trimmed to the configured turn count and idle conversations expire
// after the TTL.
type ConversationStore interface {
	// Create starts a new conversation and returns its state.
	Create(ctx context.Context) (*types.ConversationState, error)

	// Get loads a conversation. Expired or unknown IDs return a
	// ConversationNotFound error.
	Get(ctx context.Context, id string) (*types.ConversationState, error)

	// Append adds a completed turn, trims history, and refreshes the TTL.
	Append(ctx context.Context, id string, turn types.Turn) error

	// Delete removes a conversation. Unknown IDs are a no-op.
	Delete(ctx context.Context, id string) error
}

// MemoryStore is the in-process ConversationStore. A single mutex
// serializes all writes, so concurrent appends to one conversation never
// interleave.
type MemoryStore struct {
	mu    sync.Mutex
	conns map[string]*types.ConversationState
	cfg   config.ConversationConfig
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(cfg config.ConversationConfig) *MemoryStore {
	return &MemoryStore{
		conns: make(map[string]*types.ConversationState),
		cfg:   cfg,
		now:   time.Now,
	}
}

// Create starts a new conversation with a fresh UUID.
func (s *MemoryStore) Create(_ context.Context) (*types.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	state := &types.ConversationState{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conns[state.ID] = state
	return cloneState(state), nil
}

// Get loads a conversation, evicting it first if the TTL has lapsed.
func (s *MemoryStore) Get(_ context.Context, id string) (*types.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.conns[id]
	if !ok {
		return nil, types.NewError(types.ErrConversationNotFound, "conversation not found: "+id)
	}
	if s.cfg.TTL > 0 && s.now().Sub(state.UpdatedAt) > s.cfg.TTL {
		delete(s.conns, id)
		return nil, types.NewError(types.ErrConversationNotFound, "conversation expired: "+id)
	}
	return cloneState(state), nil
}

// Append adds a turn, trims to MaxTurns, and refreshes UpdatedAt.
func (s *MemoryStore) Append(_ context.Context, id string, turn types.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.conns[id]
	if !ok {
		return types.NewError(types.ErrConversationNotFound, "conversation not found: "+id)
	}
	state.Turns = append(state.Turns, turn)
	if s.cfg.MaxTurns > 0 && len(state.Turns) > s.cfg.MaxTurns {
		state.Turns = state.Turns[len(state.Turns)-s.cfg.MaxTurns:]
	}
	state.UpdatedAt = s.now()
	return nil
}

// Delete removes a conversation.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, id)
	return nil
}

// cloneState copies the state so callers cannot mutate the stored value.
func cloneState(state *types.ConversationState) *types.ConversationState {
	out := *state
	out.Turns = make([]types.Turn, len(state.Turns))
	copy(out.Turns, state.Turns)
	return &out
}

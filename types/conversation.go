package types

import "time"

// Turn is one resolved (query, answer, citations) exchange. Turns are
// appended only after the corrective loop reaches a terminal state.
type Turn struct {
	Query     string     `json:"query"`
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations,omitempty"`
	At        time.Time  `json:"at"`
}

// ConversationState is the append-only history of one conversation, owned
// exclusively by the pipeline orchestrator.
type ConversationState struct {
	ID        string    `json:"id"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LastTurns returns the most recent n turns, oldest first.
func (s *ConversationState) LastTurns(n int) []Turn {
	if s == nil || n <= 0 || len(s.Turns) == 0 {
		return nil
	}
	if n >= len(s.Turns) {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

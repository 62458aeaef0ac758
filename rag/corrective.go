package rag

import "github.com/lexrag/lexrag/types"

// CorrectiveState is one stage of the draft lifecycle.
type CorrectiveState string

const (
	StateDrafted     CorrectiveState = "drafted"
	StateChecking    CorrectiveState = "checking"
	StateAccepted    CorrectiveState = "accepted"
	StateRegenerated CorrectiveState = "regenerated"
	StateSuppressed  CorrectiveState = "suppressed"
)

// CorrectiveLoop decides, after each validation verdict, whether a draft
// is accepted, regenerated, or suppressed. The retry budget bounds
// regenerations, so a query makes at most budget+1 generator calls. A
// fully unsupported draft is given a single second chance; two in a row
// suppress immediately, regardless of remaining budget.
type CorrectiveLoop struct {
	budget int

	attempt         int
	prevFullyUnsupp bool
	state           CorrectiveState
}

// NewCorrectiveLoop creates a loop with the given retry budget.
func NewCorrectiveLoop(budget int) *CorrectiveLoop {
	return &CorrectiveLoop{budget: budget, state: StateDrafted}
}

// Attempt returns the zero-based index of the current draft.
func (l *CorrectiveLoop) Attempt() int { return l.attempt }

// State returns the current lifecycle state.
func (l *CorrectiveLoop) State() CorrectiveState { return l.state }

// Decide transitions on a validation verdict and returns the resulting
// state. StateRegenerated means the caller should produce another draft
// and call Decide again; StateAccepted and StateSuppressed are terminal.
func (l *CorrectiveLoop) Decide(verdict *types.ValidationVerdict) CorrectiveState {
	l.state = StateChecking

	switch verdict.Classification {
	case types.VerdictSupported:
		l.state = StateAccepted

	case types.VerdictUnsupported:
		if l.prevFullyUnsupp || l.attempt >= l.budget {
			l.state = StateSuppressed
		} else {
			l.prevFullyUnsupp = true
			l.attempt++
			l.state = StateRegenerated
		}

	default: // partially supported
		if l.attempt >= l.budget {
			l.state = StateSuppressed
		} else {
			l.prevFullyUnsupp = false
			l.attempt++
			l.state = StateRegenerated
		}
	}
	return l.state
}

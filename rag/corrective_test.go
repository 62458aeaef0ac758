package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lexrag/lexrag/types"
)

func verdict(class types.VerdictClass) *types.ValidationVerdict {
	return &types.ValidationVerdict{Classification: class}
}

func TestLoopAcceptsSupportedDraft(t *testing.T) {
	loop := NewCorrectiveLoop(2)
	assert.Equal(t, StateAccepted, loop.Decide(verdict(types.VerdictSupported)))
	assert.Equal(t, 0, loop.Attempt())
}

func TestLoopRegeneratesPartialWithinBudget(t *testing.T) {
	loop := NewCorrectiveLoop(2)
	assert.Equal(t, StateRegenerated, loop.Decide(verdict(types.VerdictPartiallySupported)))
	assert.Equal(t, 1, loop.Attempt())
	assert.Equal(t, StateRegenerated, loop.Decide(verdict(types.VerdictPartiallySupported)))
	assert.Equal(t, 2, loop.Attempt())
	// Budget exhausted.
	assert.Equal(t, StateSuppressed, loop.Decide(verdict(types.VerdictPartiallySupported)))
}

func TestLoopAcceptsAfterRegeneration(t *testing.T) {
	loop := NewCorrectiveLoop(2)
	assert.Equal(t, StateRegenerated, loop.Decide(verdict(types.VerdictPartiallySupported)))
	assert.Equal(t, StateAccepted, loop.Decide(verdict(types.VerdictSupported)))
}

func TestLoopFullyUnsupportedGetsOneChance(t *testing.T) {
	loop := NewCorrectiveLoop(5)
	assert.Equal(t, StateRegenerated, loop.Decide(verdict(types.VerdictUnsupported)))
	// Second consecutive fully-unsupported suppresses despite budget.
	assert.Equal(t, StateSuppressed, loop.Decide(verdict(types.VerdictUnsupported)))
}

func TestLoopPartialResetsUnsupportedStreak(t *testing.T) {
	loop := NewCorrectiveLoop(5)
	assert.Equal(t, StateRegenerated, loop.Decide(verdict(types.VerdictUnsupported)))
	assert.Equal(t, StateRegenerated, loop.Decide(verdict(types.VerdictPartiallySupported)))
	// The streak was broken, so unsupported again regenerates.
	assert.Equal(t, StateRegenerated, loop.Decide(verdict(types.VerdictUnsupported)))
}

func TestLoopZeroBudgetSuppressesImmediately(t *testing.T) {
	loop := NewCorrectiveLoop(0)
	assert.Equal(t, StateSuppressed, loop.Decide(verdict(types.VerdictPartiallySupported)))

	loop = NewCorrectiveLoop(0)
	assert.Equal(t, StateSuppressed, loop.Decide(verdict(types.VerdictUnsupported)))

	loop = NewCorrectiveLoop(0)
	assert.Equal(t, StateAccepted, loop.Decide(verdict(types.VerdictSupported)))
}

func TestLoopAttemptsNeverExceedBudgetPlusOne(t *testing.T) {
	for budget := 0; budget <= 4; budget++ {
		loop := NewCorrectiveLoop(budget)
		drafts := 1
		for loop.Decide(verdict(types.VerdictPartiallySupported)) == StateRegenerated {
			drafts++
		}
		assert.LessOrEqual(t, drafts, budget+1, "budget %d", budget)
	}
}

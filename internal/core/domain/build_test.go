package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildState_CanTransition(t *testing.T) {
	happyPath := []BuildState{
		BuildStateIdle,
		BuildStateLoadingSources,
		BuildStateProcessing,
		BuildStateEmbedding,
		BuildStateSaved,
	}
	for i := 0; i < len(happyPath)-1; i++ {
		assert.True(t, happyPath[i].CanTransition(happyPath[i+1]), "%s -> %s", happyPath[i], happyPath[i+1])
	}

	for _, s := range happyPath[:len(happyPath)-1] {
		assert.True(t, s.CanTransition(BuildStateFailed), "%s -> FAILED", s)
	}

	assert.False(t, BuildStateIdle.CanTransition(BuildStateEmbedding))
	assert.False(t, BuildStateSaved.CanTransition(BuildStateFailed))
	assert.False(t, BuildStateFailed.CanTransition(BuildStateLoadingSources))
	assert.False(t, BuildStateProcessing.CanTransition(BuildStateLoadingSources))
}

func TestBuildState_IsTerminal(t *testing.T) {
	assert.True(t, BuildStateSaved.IsTerminal())
	assert.True(t, BuildStateFailed.IsTerminal())
	assert.False(t, BuildStateEmbedding.IsTerminal())
	assert.False(t, BuildStateIdle.IsTerminal())
}

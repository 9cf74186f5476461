package dsa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveSummaryNoDeltas(t *testing.T) {
	assert.Equal(t, "base content", EffectiveSummary("base content", nil))
}

func TestEffectiveSummaryAppendsRecentUpdates(t *testing.T) {
	deltas := []CommunityDelta{{Summary: "first change"}, {Summary: "second change"}}
	got := EffectiveSummary("base content", deltas)
	assert.Equal(t, "base content\n\n[Recent Updates]:\n- first change\n- second change", got)
}

func TestApproximateTokensWordHeuristic(t *testing.T) {
	assert.Equal(t, 0, ApproximateTokens(""))
	assert.Equal(t, 2, ApproximateTokens("two words"))          // int(2 * 1.3)
	assert.Equal(t, 3, ApproximateTokens("three little words")) // int(3 * 1.3)
}

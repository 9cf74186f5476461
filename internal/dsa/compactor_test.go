package dsa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsCompactionIsStrictlyGreaterThanCountThreshold(t *testing.T) {
	c := NewCommunityCompactor(nil, nil, &CompactorConfig{DeltaCountThreshold: 5, DeltaTokenThreshold: 1 << 30}, nil)

	atThreshold := make([]CommunityDelta, 5)
	assert.False(t, c.NeedsCompaction(atThreshold), "delta count exactly at threshold must not trigger compaction")

	overThreshold := make([]CommunityDelta, 6)
	assert.True(t, c.NeedsCompaction(overThreshold))
}

func TestNeedsCompactionIsStrictlyGreaterThanTokenThreshold(t *testing.T) {
	c := NewCommunityCompactor(nil, nil, &CompactorConfig{DeltaCountThreshold: 1 << 30, DeltaTokenThreshold: 1000}, nil)

	atThreshold := []CommunityDelta{{SummaryTokens: 1000}}
	assert.False(t, c.NeedsCompaction(atThreshold), "token sum exactly at threshold must not trigger compaction")

	overThreshold := []CommunityDelta{{SummaryTokens: 1001}}
	assert.True(t, c.NeedsCompaction(overThreshold))
}

func TestNeedsCompactionEmptyDeltasNeverCompacts(t *testing.T) {
	c := NewCommunityCompactor(nil, nil, DefaultCompactorConfig(), nil)
	assert.False(t, c.NeedsCompaction(nil))
}

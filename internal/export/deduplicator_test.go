package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduplicateEntitiesMergesExactNormalizedNames(t *testing.T) {
	d := NewDeduplicator(1.0) // disable the pairwise similarity pass
	entities := []Entity{
		{EntityID: "e1", Name: "Acme Corp", Description: "short"},
		{EntityID: "e2", Name: "acme-corp", Description: "a much longer description"},
	}

	merged, report := d.DeduplicateEntities(entities)

	require.Len(t, merged, 1)
	assert.Equal(t, "a much longer description", merged[0].Description, "merge keeps the longest description")
	assert.Equal(t, 2, report.OriginalEntityCount)
	assert.Equal(t, 1, report.MergedEntityCount)
	assert.Equal(t, 1, report.EntitiesRemoved)
}

func TestDeduplicateEntitiesSimilarityThresholdAtOrAboveOneDisablesPairwisePass(t *testing.T) {
	d := NewDeduplicator(1.0)
	entities := []Entity{
		{EntityID: "e1", Name: "Robert Smith"},
		{EntityID: "e2", Name: "Rob Smith"}, // similar but not exact-normalized-name match
	}

	merged, _ := d.DeduplicateEntities(entities)
	assert.Len(t, merged, 2, "threshold >= 1.0 must leave non-exact near-duplicates unmerged")
}

func TestDeduplicateEntitiesPairwisePassMergesSimilarNames(t *testing.T) {
	d := NewDeduplicator(0.85)
	entities := []Entity{
		{EntityID: "e1", Name: "International Business Machines"},
		{EntityID: "e2", Name: "International Business Machine"},
	}

	merged, report := d.DeduplicateEntities(entities)
	require.Len(t, merged, 1)
	assert.Len(t, report.MergeGroups, 1)
}

func TestDeduplicatePagesFlagsLaterDuplicateByNormalizedContentHash(t *testing.T) {
	d := NewDeduplicator(0.85)
	pages := []Page{
		{URL: "u1", Content: "Hello   world"},
		{URL: "u2", Content: "Hello world"}, // same after whitespace normalization
		{URL: "u3", Content: "different content"},
	}

	out, count := d.DeduplicatePages(pages)
	require.Equal(t, 1, count)
	assert.False(t, out[0].IsDuplicate)
	assert.True(t, out[1].IsDuplicate)
	assert.Equal(t, "u1", out[1].DuplicateOf)
	assert.False(t, out[2].IsDuplicate)
}

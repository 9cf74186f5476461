package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffOfTemplateWithItselfHasNoChanges(t *testing.T) {
	tmpl := Template{
		ID:      "t1",
		Version: "1.0.0",
		Segments: []Segment{
			{Key: "a", Title: "A", Required: true},
			{Key: "b", Title: "B"},
		},
	}
	m := NewMigrator()
	report := m.Diff(tmpl, tmpl)

	assert.False(t, report.HasChanges(), "diffing a template against itself must report no changes")
	assert.False(t, report.IsBreaking)
}

func TestDiffDetectsAddedAndRemovedSegments(t *testing.T) {
	oldT := Template{ID: "t1", Version: "1.0.0", Segments: []Segment{{Key: "a", Required: true}}}
	newT := Template{ID: "t1", Version: "2.0.0", Segments: []Segment{{Key: "b"}}}

	m := NewMigrator()
	report := m.Diff(oldT, newT)

	require.Equal(t, 1, report.RemovedSegments)
	require.Equal(t, 1, report.AddedSegments)
	assert.True(t, report.IsBreaking, "removing a required segment is breaking")
}

func TestDiffRequiredFalseToTrueIsModifiedNotBreaking(t *testing.T) {
	oldT := Template{ID: "t1", Version: "1.0.0", Segments: []Segment{{Key: "a", Required: false}}}
	newT := Template{ID: "t1", Version: "2.0.0", Segments: []Segment{{Key: "a", Required: true}}}

	m := NewMigrator()
	report := m.Diff(oldT, newT)

	require.Equal(t, 1, report.ModifiedSegments)
	assert.False(t, report.IsBreaking, "required false->true is modified but not breaking, per the original's actual behavior")
}

func TestDiffDetectsReorder(t *testing.T) {
	oldT := Template{ID: "t1", Version: "1.0.0", Segments: []Segment{{Key: "a"}, {Key: "b"}}}
	newT := Template{ID: "t1", Version: "1.0.1", Segments: []Segment{{Key: "b"}, {Key: "a"}}}

	m := NewMigrator()
	report := m.Diff(oldT, newT)
	assert.True(t, report.Reordered)
	assert.True(t, report.HasChanges())
}

func TestDetectRenamesFindsHighSimilarityCandidate(t *testing.T) {
	oldT := Template{ID: "t1", Version: "1.0.0", Segments: []Segment{
		{Key: "old_key", Title: "Steps", Required: true, Format: FormatMarkdown},
	}}
	newT := Template{ID: "t1", Version: "2.0.0", Segments: []Segment{
		{Key: "new_key", Title: "Steps", Required: true, Format: FormatMarkdown},
	}}

	m := NewMigrator()
	report := m.Diff(oldT, newT)

	require.Len(t, report.Renames, 1)
	assert.Equal(t, "old_key", report.Renames[0].OldKey)
	assert.Equal(t, "new_key", report.Renames[0].NewKey)
	assert.GreaterOrEqual(t, report.Renames[0].Similarity, DefaultSimilarityThreshold)
}

func TestGuideRendersSummaryAndSteps(t *testing.T) {
	oldT := Template{ID: "t1", Version: "1.0.0", Segments: []Segment{{Key: "a", Required: true}}}
	newT := Template{ID: "t1", Version: "2.0.0", Segments: []Segment{{Key: "b"}}}

	m := NewMigrator()
	report := m.Diff(oldT, newT)
	guide := m.Guide(oldT, newT, report)

	assert.Contains(t, guide, "Migration Guide: t1@1.0.0 → t1@2.0.0")
	assert.Contains(t, guide, "Migration Steps")
}

package template

import (
	"fmt"
	"strings"
)

// ChangeType classifies one segment-level difference between two template
// versions (spec §4.10).
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// SegmentChange is one entry in a MigrationReport's change list.
type SegmentChange struct {
	Type       ChangeType
	Key        string
	OldKey     string // not set by Diff; rename candidates are reported in MigrationReport.Renames
	Fields     []string
	IsBreaking bool
}

// RenameCandidate pairs a removed segment with an added one that looks like
// a rename (spec §4.10 Rename detection).
type RenameCandidate struct {
	OldKey     string
	NewKey     string
	Similarity float64
}

// MigrationReport is the structured diff between two template versions
// (spec §4.10).
type MigrationReport struct {
	Changes         []SegmentChange
	Renames         []RenameCandidate
	Reordered       bool
	AddedSegments   int
	RemovedSegments int
	ModifiedSegments int
	IsBreaking      bool
}

// HasChanges reports whether the diff found any segment-level difference
// at all, including reordering — the property `compare(t, t).has_changes
// == False` (spec §8 round-trip laws) requires Diff(t, t) to report
// nothing, not just "no breaking changes".
func (r MigrationReport) HasChanges() bool {
	return len(r.Changes) > 0 || r.Reordered
}

// DefaultSimilarityThreshold is spec §4.10's default rename-candidate
// acceptance threshold.
const DefaultSimilarityThreshold = 0.8

// Migrator diffs two templates and produces a MigrationReport plus a
// human-readable migration guide (spec §4.10).
type Migrator struct {
	SimilarityThreshold float64
}

// NewMigrator builds a Migrator using DefaultSimilarityThreshold.
func NewMigrator() Migrator {
	return Migrator{SimilarityThreshold: DefaultSimilarityThreshold}
}

// comparedFields lists the Segment fields whose difference marks a segment
// "modified" (spec §4.10).
var comparedFields = []string{"title", "description", "required", "repeatable", "format", "constraints", "inputs", "transform"}

// Diff computes the migration report from oldT to newT.
func (m Migrator) Diff(oldT, newT Template) MigrationReport {
	oldByKey := segmentsByKey(oldT.Segments)
	newByKey := segmentsByKey(newT.Segments)

	var report MigrationReport
	var removedKeys, addedKeys []string

	for _, seg := range oldT.Segments {
		if _, ok := newByKey[seg.Key]; !ok {
			removedKeys = append(removedKeys, seg.Key)
			report.Changes = append(report.Changes, SegmentChange{
				Type: ChangeRemoved, Key: seg.Key, IsBreaking: seg.Required,
			})
			report.RemovedSegments++
			if seg.Required {
				report.IsBreaking = true
			}
		}
	}

	for _, seg := range newT.Segments {
		if _, ok := oldByKey[seg.Key]; !ok {
			addedKeys = append(addedKeys, seg.Key)
			report.Changes = append(report.Changes, SegmentChange{
				Type: ChangeAdded, Key: seg.Key,
			})
			report.AddedSegments++
		}
	}

	for key, oldSeg := range oldByKey {
		newSeg, ok := newByKey[key]
		if !ok {
			continue
		}
		fields := diffFields(oldSeg, newSeg)
		if len(fields) == 0 {
			continue
		}
		// Breaking iff required transitions false→true. Per the original
		// source's actual behavior (not spec.md's stronger prose), this
		// transition produces a Modified change but does NOT set
		// IsBreaking — only a removed *required* segment does that. See
		// DESIGN.md Open Questions.
		report.Changes = append(report.Changes, SegmentChange{
			Type: ChangeModified, Key: key, Fields: fields,
		})
		report.ModifiedSegments++
	}

	report.Renames = m.detectRenames(removedKeys, addedKeys, oldByKey, newByKey)
	report.Reordered = isReordered(oldT.Segments, newT.Segments)

	return report
}

func segmentsByKey(segs []Segment) map[string]Segment {
	out := make(map[string]Segment, len(segs))
	for _, s := range segs {
		out[s.Key] = s
	}
	return out
}

func diffFields(a, b Segment) []string {
	var fields []string
	if a.Title != b.Title {
		fields = append(fields, "title")
	}
	if a.Description != b.Description {
		fields = append(fields, "description")
	}
	if a.Required != b.Required {
		fields = append(fields, "required")
	}
	if a.Repeatable != b.Repeatable {
		fields = append(fields, "repeatable")
	}
	if a.Format != b.Format {
		fields = append(fields, "format")
	}
	if !constraintsEqual(a.Constraints, b.Constraints) {
		fields = append(fields, "constraints")
	}
	if !stringSlicesEqual(a.Inputs, b.Inputs) {
		fields = append(fields, "inputs")
	}
	if a.Transform.Type != b.Transform.Type {
		fields = append(fields, "transform")
	}
	return fields
}

func constraintsEqual(a, b Constraints) bool {
	return intPtrEqual(a.MinLength, b.MinLength) &&
		intPtrEqual(a.MaxLength, b.MaxLength) &&
		a.Pattern == b.Pattern &&
		intPtrEqual(a.MinItems, b.MinItems) &&
		intPtrEqual(a.MaxItems, b.MaxItems)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// detectRenames pairs each removed key with each added key and scores a
// weighted similarity over {title(x2), required, repeatable, format,
// transform.type} plus a character-set Jaccard on titles (spec §4.10
// Rename). Candidates at or above SimilarityThreshold are emitted.
func (m Migrator) detectRenames(removed, added []string, oldByKey, newByKey map[string]Segment) []RenameCandidate {
	var candidates []RenameCandidate
	for _, oldKey := range removed {
		oldSeg := oldByKey[oldKey]
		for _, newKey := range added {
			newSeg := newByKey[newKey]
			score := renameSimilarity(oldSeg, newSeg)
			if score >= m.SimilarityThreshold {
				candidates = append(candidates, RenameCandidate{OldKey: oldKey, NewKey: newKey, Similarity: score})
			}
		}
	}
	return candidates
}

func renameSimilarity(a, b Segment) float64 {
	const weightSum = 2 + 1 + 1 + 1 + 1 // title x2, required, repeatable, format, transform.type
	score := 0.0
	score += 2 * boolToFloat(a.Title == b.Title)
	score += boolToFloat(a.Required == b.Required)
	score += boolToFloat(a.Repeatable == b.Repeatable)
	score += boolToFloat(a.Format == b.Format)
	score += boolToFloat(a.Transform.Type == b.Transform.Type)
	weighted := score / weightSum

	jaccard := charSetJaccard(a.Title, b.Title)
	return (weighted + jaccard) / 2
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// charSetJaccard computes |A∩B| / |A∪B| over the distinct character sets
// of two titles.
func charSetJaccard(a, b string) float64 {
	setA := runeSet(a)
	setB := runeSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	intersection := 0
	for r := range setA {
		if setB[r] {
			intersection++
		}
	}
	union := len(setA)
	for r := range setB {
		if !setA[r] {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func runeSet(s string) map[rune]bool {
	out := make(map[rune]bool)
	for _, r := range strings.ToLower(s) {
		out[r] = true
	}
	return out
}

// isReordered reports whether the common-key subsequence differs between
// old and new declaration order (spec §4.10 Reorder).
func isReordered(oldSegs, newSegs []Segment) bool {
	newByKey := segmentsByKey(newSegs)
	var oldCommon []string
	for _, s := range oldSegs {
		if _, ok := newByKey[s.Key]; ok {
			oldCommon = append(oldCommon, s.Key)
		}
	}
	oldByKey := segmentsByKey(oldSegs)
	var newCommon []string
	for _, s := range newSegs {
		if _, ok := oldByKey[s.Key]; ok {
			newCommon = append(newCommon, s.Key)
		}
	}
	return !stringSlicesEqual(oldCommon, newCommon)
}

// Guide renders a markdown migration guide from report (spec §4.10): a
// Summary, Compatibility Notes, per-category segment tables, and enumerated
// migration steps.
func (m Migrator) Guide(oldT, newT Template, report MigrationReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Migration Guide: %s → %s\n\n", oldT.Identifier(), newT.Identifier())

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Added: %d\n", report.AddedSegments)
	fmt.Fprintf(&b, "- Removed: %d\n", report.RemovedSegments)
	fmt.Fprintf(&b, "- Modified: %d\n", report.ModifiedSegments)
	fmt.Fprintf(&b, "- Breaking: %v\n\n", report.IsBreaking)

	b.WriteString("## Compatibility Notes\n\n")
	if report.IsBreaking {
		b.WriteString("- This migration removes at least one required segment.\n")
	} else {
		b.WriteString("- No required segments were removed; existing content should still validate.\n")
	}
	for _, c := range report.Changes {
		if c.Type == ChangeModified {
			for _, f := range c.Fields {
				if f == "required" {
					fmt.Fprintf(&b, "- Segment %q changed its `required` flag; re-check downstream validation.\n", c.Key)
				}
			}
		}
	}
	for _, r := range report.Renames {
		fmt.Fprintf(&b, "- Segment %q may have been renamed to %q (similarity %.2f).\n", r.OldKey, r.NewKey, r.Similarity)
	}
	if report.Reordered {
		b.WriteString("- Segment declaration order changed.\n")
	}
	b.WriteString("\n")

	writeTable := func(title string, changeType ChangeType) {
		var rows []SegmentChange
		for _, c := range report.Changes {
			if c.Type == changeType {
				rows = append(rows, c)
			}
		}
		if len(rows) == 0 {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n| Key | Fields | Breaking |\n|---|---|---|\n", title)
		for _, r := range rows {
			fields := strings.Join(r.Fields, ", ")
			if changeType == ChangeRemoved && r.IsBreaking {
				fields = "(was required)"
			}
			fmt.Fprintf(&b, "| %s | %s | %v |\n", r.Key, fields, r.IsBreaking)
		}
		b.WriteString("\n")
	}
	writeTable("Added Segments", ChangeAdded)
	writeTable("Removed Segments", ChangeRemoved)
	writeTable("Modified Segments", ChangeModified)

	b.WriteString("## Migration Steps\n\n")
	step := 1
	for _, c := range report.Changes {
		switch c.Type {
		case ChangeRemoved:
			fmt.Fprintf(&b, "%d. Remove references to segment `%s`.\n", step, c.Key)
		case ChangeAdded:
			fmt.Fprintf(&b, "%d. Populate new segment `%s`.\n", step, c.Key)
		case ChangeModified:
			fmt.Fprintf(&b, "%d. Review segment `%s` for changes to %s.\n", step, c.Key, strings.Join(c.Fields, ", "))
		}
		step++
	}

	return b.String()
}

package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleTemplate() Template {
	return Template{
		ID:      "t1",
		Version: "1.0.0",
		Segments: []Segment{
			{Key: "summary", Required: true, Format: FormatPlain},
			{Key: "steps", Required: false, Repeatable: true, Format: FormatMarkdown,
				Transform: Transform{Type: TransformListExtract}},
		},
	}
}

func TestFillMissingRequiredSegment(t *testing.T) {
	filler := Filler{}
	content := filler.Fill(simpleTemplate(), map[string]any{}, SourceMetadata{File: "doc.md"})

	assert.Equal(t, FillPartial, content.Status)
	assert.Equal(t, []string{"summary"}, content.MissingRequired)
	require.Len(t, content.Warnings, 1)
}

func TestFillCompleteWhenAllPresent(t *testing.T) {
	filler := Filler{}
	raw := map[string]any{
		"summary": "a short summary",
		"steps":   "- step one\n- step two",
	}
	content := filler.Fill(simpleTemplate(), raw, SourceMetadata{File: "doc.md"})

	require.Equal(t, FillComplete, content.Status)
	sv, ok := content.Segments["summary"].(SegmentValue)
	require.True(t, ok)
	assert.Equal(t, "a short summary", sv.Value)
	assert.Equal(t, "doc.md", sv.SourceRef)
}

func TestFillRepeatableSegmentProducesIndexedSourceRefs(t *testing.T) {
	filler := Filler{}
	raw := map[string]any{
		"summary": "ok",
		"steps":   []any{"first", "second"},
	}
	content := filler.Fill(simpleTemplate(), raw, SourceMetadata{File: "doc.md"})

	values, ok := content.Segments["steps"].([]SegmentValue)
	require.True(t, ok)
	require.Len(t, values, 2)
	assert.Equal(t, "doc.md#0", values[0].SourceRef)
	assert.Equal(t, "doc.md#1", values[1].SourceRef)
}

func TestFillStrictModeElevatesWarningsToFailed(t *testing.T) {
	strict := Filler{Strict: true}
	raw := map[string]any{"summary": "ok"}
	tmpl := simpleTemplate()
	tmpl.Segments[1].Required = true // force a warning via missing required segment

	content := strict.Fill(tmpl, raw, SourceMetadata{File: "doc.md"})
	assert.Equal(t, FillFailed, content.Status)
}

func TestListExtractAppliesBulletAndNumberedPatterns(t *testing.T) {
	out := listExtract("- dash item\n1. numbered item\nplain line")
	require.Len(t, out, 3)
	assert.Equal(t, "dash item", out[0])
	assert.Equal(t, "numbered item", out[1])
	assert.Equal(t, "plain line", out[2])
}

func TestApplyFormatMarkdownRendersBulletList(t *testing.T) {
	got := applyFormat(FormatMarkdown, []string{"a", "b"})
	assert.Equal(t, "- a\n- b", got)
}

func TestValidateCollectsAllProblemsWithoutShortCircuit(t *testing.T) {
	tmpl := simpleTemplate()
	content := FilledContent{Segments: map[string]any{
		"unexpected": SegmentValue{Value: "x"},
	}}
	errs := Validate(content, tmpl)

	kinds := map[ValidationErrorKind]bool{}
	for _, e := range errs {
		kinds[e.Kind] = true
	}
	assert.True(t, kinds[ErrMissing], "missing required segment must be reported")
	assert.True(t, kinds[ErrUnknown], "unknown filled segment must be reported")
}

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLegacyShape(t *testing.T) {
	result := Result{
		Pages:    []Page{{Title: "p1", URL: "u1", Content: "c1", ContentType: "community_summary"}},
		Entities: []Entity{{EntityID: "e1", Name: "n1", Type: "t1"}},
	}
	out := Formatter{}.FormatLegacy(result, map[string]any{"type": "graphrag"})

	assert.Equal(t, map[string]any{"type": "graphrag"}, out["source"])
	assert.Contains(t, out, "pages")
	assert.Contains(t, out, "entities")
	assert.Contains(t, out, "dedup_report")
}

func TestFormatTemplateLayeredShape(t *testing.T) {
	out := Formatter{}.FormatTemplateLayered(
		map[string]any{"id": "t1", "version": "1.0.0"},
		map[string]any{"segment": "value"},
		map[string]any{"type": "graphrag"},
		"full",
		"1.0.0",
		"2026-01-01T00:00:00Z",
	)

	assert.Contains(t, out, "template")
	assert.Contains(t, out, "content")
	assert.Contains(t, out, "trace")
	trace := out["trace"].(map[string]any)
	assert.Equal(t, "1.0.0", trace["template_version_used"])
	assert.Equal(t, "full", trace["export_mode"])
	assert.Equal(t, Generator, trace["generator"])
	assert.Equal(t, "t1", trace["template_id"])
	assert.NotEmpty(t, trace["trace_id"])
}

func TestValidateOutputDispatchesOnTemplateOrTracePresence(t *testing.T) {
	legacy := map[string]any{
		"source":   map[string]any{"type": "graphrag"},
		"pages":    []map[string]any{{"content": "c"}},
		"entities": []map[string]any{{"name": "n"}},
	}
	assert.NoError(t, ValidateOutput(legacy))

	templated := map[string]any{
		"template": map[string]any{"id": "t1", "version": "1.0.0"},
		"content":  map[string]any{},
		"source":   map[string]any{},
	}
	assert.NoError(t, ValidateOutput(templated))
}

func TestValidateOutputRejectsMissingRequiredKeys(t *testing.T) {
	assert.Error(t, ValidateOutput(map[string]any{}))
	assert.Error(t, ValidateOutput(map[string]any{"source": map[string]any{}}))
}

func TestSaveToFileWritesIndentedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	data := map[string]any{"a": 1}
	require.NoError(t, Formatter{}.SaveToFile(data, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var roundTripped map[string]any
	require.NoError(t, json.Unmarshal(raw, &roundTripped))
	assert.Equal(t, float64(1), roundTripped["a"])
}

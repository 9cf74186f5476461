package temporalkg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumflow/graphrag-skills/internal/llm"
)

type fakeExtractor struct {
	factsByText map[string][]llm.Fact
	err         error
}

func (f fakeExtractor) ExtractFacts(ctx context.Context, text string) ([]llm.Fact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.factsByText[text], nil
}

func TestNewExtractionAdapterRequiresExtractor(t *testing.T) {
	_, err := NewExtractionAdapter(nil, nil)
	require.Error(t, err)
}

func TestExtractFromChunksEmptyChunksReturnsEmptyGraph(t *testing.T) {
	adapter, err := NewExtractionAdapter(nil, fakeExtractor{})
	require.NoError(t, err)

	kg, err := adapter.ExtractFromChunks(context.Background(), nil, time.Time{}, nil)
	require.NoError(t, err)
	assert.True(t, kg.IsEmpty())
}

func TestExtractFromChunksMergesAcrossChunks(t *testing.T) {
	extractor := fakeExtractor{factsByText: map[string][]llm.Fact{
		"chunk one": {{Source: "a", Target: "b", Predicate: "KNOWS", Text: "a knows b", Confidence: 0.9}},
		"chunk two": {{Source: "b", Target: "c", Predicate: "KNOWS", Text: "b knows c", Confidence: 0.8}},
	}}
	adapter, err := NewExtractionAdapter(DefaultAdapterConfig(), extractor)
	require.NoError(t, err)

	text1, text2 := "chunk one", "chunk two"
	chunks := []ChunkInput{{Text: &text1}, {Text: &text2}}

	kg, err := adapter.ExtractFromChunks(context.Background(), chunks, time.Now(), nil)
	require.NoError(t, err)

	assert.Len(t, kg.Relationships, 2)
	ids := map[string]bool{}
	for _, e := range kg.Entities {
		ids[e.ID] = true
	}
	assert.True(t, ids["a"])
	assert.True(t, ids["b"])
	assert.True(t, ids["c"])
}

func TestExtractFromChunksMergesIntoExistingKG(t *testing.T) {
	extractor := fakeExtractor{factsByText: map[string][]llm.Fact{
		"new chunk": {{Source: "x", Target: "y", Predicate: "REL", Text: "x rel y"}},
	}}
	adapter, err := NewExtractionAdapter(nil, extractor)
	require.NoError(t, err)

	existing := TemporalKnowledgeGraph{Entities: []TemporalEntity{{ID: "pre-existing"}}}
	text := "new chunk"
	kg, err := adapter.ExtractFromChunks(context.Background(), []ChunkInput{{Text: &text}}, time.Now(), &existing)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, e := range kg.Entities {
		ids[e.ID] = true
	}
	assert.True(t, ids["pre-existing"])
	assert.True(t, ids["x"])
}

func TestExtractFromChunksPropagatesExtractorError(t *testing.T) {
	extractor := fakeExtractor{err: errors.New("boom")}
	adapter, err := NewExtractionAdapter(nil, extractor)
	require.NoError(t, err)

	text := "chunk"
	_, err = adapter.ExtractFromChunks(context.Background(), []ChunkInput{{Text: &text}}, time.Now(), nil)
	assert.Error(t, err)
}

func TestNormalizeChunksDropsBlank(t *testing.T) {
	empty := "   "
	real := "hello"
	out := normalizeChunks([]ChunkInput{{Text: &empty}, {Text: &real}, {}})
	assert.Equal(t, []string{"hello"}, out)
}

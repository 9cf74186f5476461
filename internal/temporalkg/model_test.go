package temporalkg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemporalKnowledgeGraphCloneRoundTrip(t *testing.T) {
	original := TemporalKnowledgeGraph{
		Entities: []TemporalEntity{{ID: "e1", Name: "Alice", Type: "Person"}},
		Relationships: []TemporalRelationship{{
			ID: "e1->KNOWS->e2", SourceID: "e1", TargetID: "e2", Predicate: "KNOWS",
			TObs: []time.Time{time.Unix(0, 0)}, AtomicFacts: []string{"fact one"},
		}},
	}

	clone := original.Clone()
	assert.Equal(t, original, clone)

	// mutating the clone's slices must not reach back into the original.
	clone.Relationships[0].TObs = append(clone.Relationships[0].TObs, time.Unix(1, 0))
	clone.Relationships[0].AtomicFacts[0] = "mutated"
	assert.Len(t, original.Relationships[0].TObs, 1)
	assert.Equal(t, "fact one", original.Relationships[0].AtomicFacts[0])
}

func TestTemporalKnowledgeGraphMergeAppendsWithoutDedup(t *testing.T) {
	now := time.Unix(3000, 0).UTC()
	a := TemporalKnowledgeGraph{
		Entities:         []TemporalEntity{{ID: "e1"}},
		CreatedAt:        time.Unix(200, 0).UTC(),
		ObservationTimes: []time.Time{time.Unix(100, 0), time.Unix(300, 0)},
	}
	b := TemporalKnowledgeGraph{
		Entities:         []TemporalEntity{{ID: "e1"}},
		CreatedAt:        time.Unix(100, 0).UTC(),
		ObservationTimes: []time.Time{time.Unix(300, 0), time.Unix(50, 0)},
	}

	merged := a.Merge(b, now)

	require.Len(t, merged.Entities, 2, "merge is a plain append, duplicates are the caller's responsibility")
	assert.Equal(t, b.CreatedAt, merged.CreatedAt, "created_at is the earlier of the two graphs'")
	assert.Equal(t, now, merged.LastUpdated)
	assert.Equal(t,
		[]time.Time{time.Unix(50, 0), time.Unix(100, 0), time.Unix(300, 0)},
		merged.ObservationTimes,
		"observation times are unioned, deduped, and sorted",
	)
}

func TestChunkInputResolveTextPrecedence(t *testing.T) {
	text := "plain string"
	t.Run("text field wins", func(t *testing.T) {
		c := ChunkInput{Text: &text, Content: map[string]any{"content": "other"}}
		got, ok := c.ResolveText()
		require.True(t, ok)
		assert.Equal(t, text, got)
	})

	t.Run("bare object page content", func(t *testing.T) {
		c := ChunkInput{Document: &DocumentChunk{PageContent: "doc text"}}
		got, ok := c.ResolveText()
		require.True(t, ok)
		assert.Equal(t, "doc text", got)
	})

	t.Run("dict chunk_doc wins over text and content", func(t *testing.T) {
		c := ChunkInput{Content: map[string]any{
			"chunk_doc": DocumentChunk{PageContent: "from chunk_doc"},
			"text":      "from text",
			"content":   "from content",
		}}
		got, ok := c.ResolveText()
		require.True(t, ok)
		assert.Equal(t, "from chunk_doc", got)
	})

	t.Run("dict text key wins over content", func(t *testing.T) {
		c := ChunkInput{Content: map[string]any{"text": "from text", "content": "from content"}}
		got, ok := c.ResolveText()
		require.True(t, ok)
		assert.Equal(t, "from text", got)
	})

	t.Run("dict content key fallback", func(t *testing.T) {
		c := ChunkInput{Content: map[string]any{"content": "from content map"}}
		got, ok := c.ResolveText()
		require.True(t, ok)
		assert.Equal(t, "from content map", got)
	})

	t.Run("dict with only page_content key is not resolved", func(t *testing.T) {
		c := ChunkInput{Content: map[string]any{"page_content": "unreachable"}}
		_, ok := c.ResolveText()
		assert.False(t, ok, "a dict never reads a top-level page_content key in the original")
	})

	t.Run("nothing resolvable", func(t *testing.T) {
		c := ChunkInput{}
		_, ok := c.ResolveText()
		assert.False(t, ok)
	})
}

func TestToWriteBatchStubsDanglingRelationshipEndpoints(t *testing.T) {
	g := TemporalKnowledgeGraph{
		Entities: []TemporalEntity{{ID: "e1", Name: "Alice"}},
		Relationships: []TemporalRelationship{
			{ID: "r1", SourceID: "e1", TargetID: "e2", Predicate: "KNOWS"},
		},
	}

	batch := g.ToWriteBatch("source text")

	require.Len(t, batch.Graph.Entities, 2)
	var stub *TemporalEntity
	for i := range batch.Graph.Entities {
		if batch.Graph.Entities[i].ID == "e2" {
			stub = &batch.Graph.Entities[i]
		}
	}
	require.NotNil(t, stub, "dangling relationship target must get a stub entity")
	assert.Equal(t, "e2", stub.Name)
	assert.Equal(t, "entity", stub.Type)
	assert.Equal(t, "source text", batch.SourceText)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, TemporalKnowledgeGraph{}.IsEmpty())
	assert.False(t, TemporalKnowledgeGraph{Entities: []TemporalEntity{{ID: "e1"}}}.IsEmpty())
}

package export

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/quantumflow/graphrag-skills/internal/graphstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is a minimal graphstore.Store test double that dispatches on a
// crude substring sniff of the DQL query text, mirroring how the teacher's
// own small-interface stores (internal/memory) are faked in tests.
type fakeStore struct {
	communitiesJSON string
	entitiesJSON    string
	chunksJSON      string
	relJSON         string
}

func (f *fakeStore) Alter(ctx context.Context, schema string) error { return nil }
func (f *fakeStore) Mutate(ctx context.Context, setJSON []byte) error { return nil }
func (f *fakeStore) Delete(ctx context.Context, deleteJSON []byte) error { return nil }
func (f *fakeStore) NewTxn() graphstore.Txn { return nil }
func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) Query(ctx context.Context, query string) ([]byte, error) {
	switch {
	case strings.Contains(query, "rel(func: eq(rel.id"):
		return []byte(f.relJSON), nil
	case strings.Contains(query, "communities(func:"):
		return []byte(f.communitiesJSON), nil
	case strings.Contains(query, "entities(func:"):
		return []byte(f.entitiesJSON), nil
	case strings.Contains(query, "chunks(func:"):
		return []byte(f.chunksJSON), nil
	default:
		return []byte(`{}`), nil
	}
}

func (f *fakeStore) QueryWithVars(ctx context.Context, query string, vars map[string]string) ([]byte, error) {
	return f.Query(ctx, query)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		communitiesJSON: `{"communities":[
			{"community.id":"c1","community.title":"Community One","community.level":0,"community.full_content":"full content","community.weight":2.0},
			{"community.id":"c2","community.level":0,"community.summary":"fallback summary","community.weight":5.0}
		]}`,
		entitiesJSON: `{"entities":[{"entity.id":"e1","entity.name":"Alpha","entity.type":"ORG"}]}`,
		chunksJSON:   `{"chunks":[{"chunk.id":"ch1","chunk.content":"raw text","chunk.file_name":"doc.pdf","chunk.page":1}]}`,
		relJSON:      `{"rel":[{"rel.predicate":"WORKS_WITH","to":[{"entity.id":"e2"}]}]}`,
	}
}

func TestExportCommunitiesOrdersByWeightDescendingAndFillsMissingTitle(t *testing.T) {
	e := NewExporter(newFakeStore(), DefaultConfig(), false, slog.Default())

	communities, err := e.ExportCommunities(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, communities, 2)
	assert.Equal(t, "c2", communities[0].ID, "higher-weight community must sort first")
	assert.Equal(t, "Community One", communities[1].Title)
	assert.Equal(t, "fallback summary", communities[0].Content, "falls back to summary when full_content is empty")
}

func TestExportCommunitiesRespectsMaxCommunitiesCap(t *testing.T) {
	config := DefaultConfig()
	config.MaxCommunities = 1
	e := NewExporter(newFakeStore(), config, false, slog.Default())

	communities, err := e.ExportCommunities(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, communities, 1)
}

func TestExportEntitiesIncludesOneHopRelationshipsWhenRequested(t *testing.T) {
	e := NewExporter(newFakeStore(), DefaultConfig(), false, slog.Default())

	entities, err := e.ExportEntities(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, []string{"WORKS_WITH:e2"}, entities[0].Relationships)
}

func TestExportEntitiesSkipsRelationshipLookupWhenNotRequested(t *testing.T) {
	store := newFakeStore()
	e := NewExporter(store, DefaultConfig(), false, slog.Default())

	entities, err := e.ExportEntities(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Nil(t, entities[0].Relationships)
}

func TestExportChunksFiltersByCommunityIDsWhenProvided(t *testing.T) {
	e := NewExporter(newFakeStore(), DefaultConfig(), false, slog.Default())

	chunks, err := e.ExportChunks(context.Background(), []string{"c1"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "ch1", chunks[0].ID)
}

func TestExportFullPassAssemblesPagesFromCommunitiesAndOptionalChunks(t *testing.T) {
	config := DefaultConfig()
	config.IncludeChunks = true
	e := NewExporter(newFakeStore(), config, true, slog.Default())

	result, err := e.Export(context.Background(), ModeFull, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.PageCount(), "2 community pages + 1 chunk page")
	assert.Equal(t, 1, result.EntityCount())
	assert.Equal(t, "full", result.Metadata["export_mode"])
	assert.Equal(t, true, result.Metadata["dsa_enabled"])
}

func TestExportDeltaModeFiltersToChangedIDs(t *testing.T) {
	e := NewExporter(newFakeStore(), DefaultConfig(), false, slog.Default())

	result, err := e.Export(context.Background(), ModeDelta, 0, []string{"c1"})
	require.NoError(t, err)
	require.Len(t, result.Pages, 1)
	assert.Contains(t, result.Pages[0].URL, "c1")
}

package export

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	allIDs     []string
	updatedIDs []string
	pendingIDs []string
}

func (f *fakeLister) ListCommunityIDs(ctx context.Context, level int) ([]string, error) {
	return f.allIDs, nil
}

func (f *fakeLister) ListUpdatedCommunityIDs(ctx context.Context, level int, since time.Time) ([]string, error) {
	return f.updatedIDs, nil
}

func (f *fakeLister) ListPendingDeltaCommunityIDs(ctx context.Context, level int) ([]string, error) {
	return f.pendingIDs, nil
}

func TestGetPendingUpdatesReturnsEverythingWithoutPriorExport(t *testing.T) {
	lister := &fakeLister{allIDs: []string{"c1", "c2", "c3"}}
	path := filepath.Join(t.TempDir(), "state.json")
	m, err := NewSyncManager(path, lister, nil)
	require.NoError(t, err)

	ids, err := m.GetPendingUpdates(context.Background(), 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2", "c3"}, ids)
}

func TestMarkSyncedThenGetPendingUpdatesOnlyReturnsChanged(t *testing.T) {
	lister := &fakeLister{allIDs: []string{"c1", "c2", "c3"}}
	path := filepath.Join(t.TempDir(), "state.json")
	m, err := NewSyncManager(path, lister, nil)
	require.NoError(t, err)

	require.NoError(t, m.MarkSynced([]string{"c1", "c2", "c3"}, ModeFull, 0))
	assert.True(t, m.GetStatus().HasPreviousExport)

	lister.updatedIDs = []string{"c2"}
	ids, err := m.GetPendingUpdates(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, ids, "only communities updated since the last export should be pending")
}

func TestGetChangedCommunitiesSinceIncludesNewlyCreatedCommunities(t *testing.T) {
	lister := &fakeLister{allIDs: []string{"c1", "c2"}}
	path := filepath.Join(t.TempDir(), "state.json")
	m, err := NewSyncManager(path, lister, nil)
	require.NoError(t, err)
	require.NoError(t, m.MarkSynced([]string{"c1"}, ModeFull, 0))

	// c2 was never exported, so it must show up as changed even with no
	// updated-timestamp or pending-delta signal.
	ids, err := m.GetChangedCommunitiesSince(context.Background(), time.Now(), 0)
	require.NoError(t, err)
	assert.Contains(t, ids, "c2")
}

func TestMarkSyncedDeltaModeUnionsIntoExistingSet(t *testing.T) {
	lister := &fakeLister{allIDs: []string{"c1", "c2", "c3"}}
	path := filepath.Join(t.TempDir(), "state.json")
	m, err := NewSyncManager(path, lister, nil)
	require.NoError(t, err)

	require.NoError(t, m.MarkSynced([]string{"c1"}, ModeFull, 0))
	require.NoError(t, m.MarkSynced([]string{"c2"}, ModeDelta, 0))

	assert.ElementsMatch(t, []string{"c1", "c2"}, m.ExportedCommunityIDs())
}

func TestMarkSyncedFullModeReplacesExistingSet(t *testing.T) {
	lister := &fakeLister{allIDs: []string{"c1", "c2"}}
	path := filepath.Join(t.TempDir(), "state.json")
	m, err := NewSyncManager(path, lister, nil)
	require.NoError(t, err)

	require.NoError(t, m.MarkSynced([]string{"c1", "c2"}, ModeFull, 0))
	require.NoError(t, m.MarkSynced([]string{"c2"}, ModeFull, 0))

	assert.Equal(t, []string{"c2"}, m.ExportedCommunityIDs())
}

func TestResetStateReturnsManagerToNeverExportedState(t *testing.T) {
	lister := &fakeLister{allIDs: []string{"c1"}}
	path := filepath.Join(t.TempDir(), "state.json")
	m, err := NewSyncManager(path, lister, nil)
	require.NoError(t, err)
	require.NoError(t, m.MarkSynced([]string{"c1"}, ModeFull, 0))

	require.NoError(t, m.ResetState())
	assert.False(t, m.GetStatus().HasPreviousExport)
	assert.Empty(t, m.ExportedCommunityIDs())
}

func TestSyncManagerReloadsPersistedStateFromDisk(t *testing.T) {
	lister := &fakeLister{allIDs: []string{"c1"}}
	path := filepath.Join(t.TempDir(), "state.json")

	m1, err := NewSyncManager(path, lister, nil)
	require.NoError(t, err)
	require.NoError(t, m1.MarkSynced([]string{"c1"}, ModeFull, 2))

	m2, err := NewSyncManager(path, lister, nil)
	require.NoError(t, err)
	status := m2.GetStatus()
	assert.True(t, status.HasPreviousExport)
	assert.Equal(t, 2, status.LastExportLevel)
}

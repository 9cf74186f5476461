package dsa

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *DeltaCache {
	t.Helper()
	cache, err := OpenDeltaCache(filepath.Join(t.TempDir(), "delta-cache"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestDeltaCacheRecordAndReadPending(t *testing.T) {
	cache := openTestCache(t)

	ids, err := cache.PendingIDs("community-1")
	require.NoError(t, err)
	require.Empty(t, ids)

	require.NoError(t, cache.RecordPending("community-1", "delta-a"))
	require.NoError(t, cache.RecordPending("community-1", "delta-b"))

	ids, err = cache.PendingIDs("community-1")
	require.NoError(t, err)
	require.Equal(t, []string{"delta-a", "delta-b"}, ids)
}

func TestDeltaCacheClearPending(t *testing.T) {
	cache := openTestCache(t)

	require.NoError(t, cache.RecordPending("community-1", "delta-a"))
	require.NoError(t, cache.ClearPending("community-1"))

	ids, err := cache.PendingIDs("community-1")
	require.NoError(t, err)
	require.Empty(t, ids)

	// clearing a community with nothing cached must not error.
	require.NoError(t, cache.ClearPending("never-seen"))
}

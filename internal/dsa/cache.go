package dsa

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// DeltaCache mirrors pending-delta ids per community in a local BadgerDB,
// adapted from the teacher's BadgerProceduralStore (internal/memory/
// procedural.go): same badger.DefaultOptions(path) construction, same
// key-prefix-per-concern convention. It exists purely as a write-through
// read accelerator for "does this community have pending deltas" checks
// between Dgraph round-trips (spec.md §9 frames DSA itself as LSM-shaped);
// the graph store remains the source of truth, so a stale or empty cache
// never causes incorrect compaction decisions, only an extra query.
type DeltaCache struct {
	db *badger.DB
}

// OpenDeltaCache opens (or creates) a Badger database at path.
func OpenDeltaCache(path string) (*DeltaCache, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("dsa: open delta cache: %w", err)
	}
	return &DeltaCache{db: db}, nil
}

func pendingKey(communityID string) []byte {
	return []byte("dsa:pending:" + communityID)
}

// RecordPending mirrors a newly-created pending delta's id against its
// community, appending to whatever ids are already cached.
func (c *DeltaCache) RecordPending(communityID, deltaID string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		var ids []string
		item, err := txn.Get(pendingKey(communityID))
		if err == nil {
			_ = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &ids)
			})
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		ids = append(ids, deltaID)
		data, err := json.Marshal(ids)
		if err != nil {
			return err
		}
		return txn.Set(pendingKey(communityID), data)
	})
}

// PendingIDs returns the cached pending-delta ids for communityID, or nil
// if nothing is cached (callers must then fall back to the graph store).
func (c *DeltaCache) PendingIDs(communityID string) ([]string, error) {
	var ids []string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pendingKey(communityID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ids)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("dsa: read delta cache for %s: %w", communityID, err)
	}
	return ids, nil
}

// ClearPending drops the cached pending-delta id list for communityID,
// called once compaction transitions those deltas to compacted.
func (c *DeltaCache) ClearPending(communityID string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(pendingKey(communityID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Close releases the underlying BadgerDB handle.
func (c *DeltaCache) Close() error {
	return c.db.Close()
}

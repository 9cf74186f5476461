package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quantumflow/graphrag-skills/internal/graphstore"
)

// StoreCommunityLister implements CommunityLister directly against a
// graphstore.Store, so SyncManager can be constructed from nothing more
// than the same store the Exporter already uses.
type StoreCommunityLister struct {
	Store graphstore.Store
}

// ListCommunityIDs returns every community id at level.
func (l StoreCommunityLister) ListCommunityIDs(ctx context.Context, level int) ([]string, error) {
	q := fmt.Sprintf(`{
		communities(func: eq(community.level, %d)) {
			community.id
		}
	}`, level)
	return l.queryIDs(ctx, q, "communities")
}

// ListUpdatedCommunityIDs returns community ids at level whose updated_at
// is after since.
func (l StoreCommunityLister) ListUpdatedCommunityIDs(ctx context.Context, level int, since time.Time) ([]string, error) {
	q := fmt.Sprintf(`{
		communities(func: eq(community.level, %d)) @filter(gt(community.updated_at, %q)) {
			community.id
		}
	}`, level, since.UTC().Format(time.RFC3339))
	return l.queryIDs(ctx, q, "communities")
}

// ListPendingDeltaCommunityIDs returns community ids at level that have at
// least one pending CommunityDelta.
func (l StoreCommunityLister) ListPendingDeltaCommunityIDs(ctx context.Context, level int) ([]string, error) {
	q := fmt.Sprintf(`{
		communities(func: eq(community.level, %d)) @filter(has(~HAS_DELTA)) {
			community.id
			~HAS_DELTA @filter(eq(delta.status, "pending")) {
				delta.id
			}
		}
	}`, level)

	raw, err := l.Store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("export: query pending-delta communities: %w", err)
	}
	var result struct {
		Communities []struct {
			ID     string `json:"community.id"`
			Deltas []struct {
				ID string `json:"delta.id"`
			} `json:"~HAS_DELTA"`
		} `json:"communities"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("export: parse pending-delta communities: %w", err)
	}
	var ids []string
	for _, c := range result.Communities {
		if len(c.Deltas) > 0 {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (l StoreCommunityLister) queryIDs(ctx context.Context, q, field string) ([]string, error) {
	raw, err := l.Store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("export: query %s: %w", field, err)
	}
	var result map[string][]struct {
		ID string `json:"community.id"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("export: parse %s: %w", field, err)
	}
	ids := make([]string, 0, len(result[field]))
	for _, c := range result[field] {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

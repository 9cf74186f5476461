package dsa

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quantumflow/graphrag-skills/internal/graphstore"
)

// MigrateSchema performs spec §4.6's install/upgrade steps: it ensures the
// uniqueness constraint and indexes graphstore.TemporalSchema already
// declares for CommunityDelta/Community apply (IF-NOT-EXISTS via
// graphstore.EnsureSchema's already-exists swallowing), then backfills
// last_compacted_at and summary_tokens on any existing community missing
// them. Re-runnable: communities that already have both fields are left
// untouched.
func MigrateSchema(ctx context.Context, store graphstore.Store) error {
	if err := graphstore.EnsureSchema(ctx, store); err != nil {
		return fmt.Errorf("dsa: apply schema: %w", err)
	}

	q := `{
		communities(func: has(community.id)) @filter(NOT has(community.last_compacted_at)) {
			community.id
			community.summary
		}
	}`
	raw, err := store.Query(ctx, q)
	if err != nil {
		return fmt.Errorf("dsa: query communities needing backfill: %w", err)
	}
	var result struct {
		Communities []struct {
			ID      string `json:"community.id"`
			Summary string `json:"community.summary"`
		} `json:"communities"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("dsa: parse backfill query: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range result.Communities {
		doc := map[string]any{
			"community.id":              c.ID,
			"community.last_compacted_at": now,
			"community.summary_tokens":  len(c.Summary) / 4,
		}
		body, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		if err := store.Mutate(ctx, body); err != nil {
			return fmt.Errorf("dsa: backfill community %s: %w", c.ID, err)
		}
	}
	return nil
}

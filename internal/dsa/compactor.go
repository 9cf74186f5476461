package dsa

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/quantumflow/graphrag-skills/internal/graphstore"
	"github.com/quantumflow/graphrag-skills/internal/llm"
)

// CompactorConfig holds the thresholds deciding whether a community needs
// compaction (spec §4.5).
type CompactorConfig struct {
	DeltaCountThreshold int
	DeltaTokenThreshold int
}

// DefaultCompactorConfig returns spec §4.5's documented defaults.
func DefaultCompactorConfig() *CompactorConfig {
	return &CompactorConfig{DeltaCountThreshold: 5, DeltaTokenThreshold: 1000}
}

// CommunityCompactor merges accumulated pending deltas back into a
// community's full_content (spec §4.5).
type CommunityCompactor struct {
	store  graphstore.Store
	llm    llm.Summarizer
	config *CompactorConfig
	cache  *DeltaCache
}

// NewCommunityCompactor builds a compactor. Pending deltas are always read
// from the graph store; cache, which may be nil, only has a community's
// entry cleared after that community is compacted.
func NewCommunityCompactor(store graphstore.Store, llmClient llm.Summarizer, config *CompactorConfig, cache *DeltaCache) *CommunityCompactor {
	if config == nil {
		config = DefaultCompactorConfig()
	}
	return &CommunityCompactor{store: store, llm: llmClient, config: config, cache: cache}
}

// NeedsCompaction reports whether pending-delta count or token sum crosses
// either threshold — a strict `>` comparison in both cases (spec §4.5).
func (c *CommunityCompactor) NeedsCompaction(deltas []CommunityDelta) bool {
	if len(deltas) > c.config.DeltaCountThreshold {
		return true
	}
	tokens := 0
	for _, d := range deltas {
		tokens += d.SummaryTokens
	}
	return tokens > c.config.DeltaTokenThreshold
}

// CompactCommunity runs compaction for one community (spec §4.5
// compact_community). Returns nil, nil if there were no pending deltas.
// The selected-delta id set is pinned at the start of this call and
// transitioned to compacted in the same transaction that updates the
// community, so any delta written concurrently after selection is left
// untouched for the next round (spec §4.5 ordering guarantee).
func (c *CommunityCompactor) CompactCommunity(ctx context.Context, communityID string) (*Community, error) {
	txn := c.store.NewTxn()
	defer txn.Discard(ctx)

	community, pending, err := c.loadForCompaction(ctx, txn, communityID)
	if err != nil {
		return nil, fmt.Errorf("dsa: load community %s: %w", communityID, err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	base := community.FullContent
	if base == "" {
		base = community.Summary
	}
	bullets := make([]string, len(pending))
	for i, d := range pending {
		bullets[i] = d.Summary
	}
	merged, err := c.llm.Summarize(ctx, base, bullets)
	if err != nil {
		return nil, fmt.Errorf("dsa: merge summary for community %s: %w", communityID, err)
	}

	now := time.Now().UTC()
	community.FullContent = merged
	community.LastCompactedAt = now
	community.SummaryTokens = ApproximateTokens(merged)
	community.UpdatedAt = now

	if err := c.writeCompactionResult(ctx, txn, community, pending, now); err != nil {
		return nil, fmt.Errorf("dsa: commit compaction for community %s: %w", communityID, err)
	}
	if err := txn.Commit(ctx); err != nil {
		return nil, fmt.Errorf("dsa: commit txn for community %s: %w", communityID, err)
	}

	if c.cache != nil {
		c.cache.ClearPending(communityID)
	}
	return &community, nil
}

func (c *CommunityCompactor) loadForCompaction(ctx context.Context, txn graphstore.Txn, communityID string) (Community, []CommunityDelta, error) {
	q := fmt.Sprintf(`{
		community(func: eq(community.id, %q)) {
			community.id
			community.level
			community.full_content
			community.summary
		}
		deltas(func: eq(delta.community_id, %q)) @filter(eq(delta.status, "pending")) {
			delta.id
			delta.summary
			delta.token_count
			delta.created_at
		}
	}`, communityID, communityID)

	raw, err := txn.Query(ctx, q)
	if err != nil {
		return Community{}, nil, err
	}

	var result struct {
		Community []struct {
			ID          string `json:"community.id"`
			Level       int    `json:"community.level"`
			FullContent string `json:"community.full_content"`
			Summary     string `json:"community.summary"`
		} `json:"community"`
		Deltas []struct {
			ID        string `json:"delta.id"`
			Summary   string `json:"delta.summary"`
			Tokens    int    `json:"delta.token_count"`
			CreatedAt string `json:"delta.created_at"`
		} `json:"deltas"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return Community{}, nil, err
	}
	if len(result.Community) == 0 {
		return Community{}, nil, fmt.Errorf("community not found: %s", communityID)
	}

	community := Community{
		ID:          result.Community[0].ID,
		Level:       result.Community[0].Level,
		FullContent: result.Community[0].FullContent,
		Summary:     result.Community[0].Summary,
	}

	deltas := make([]CommunityDelta, 0, len(result.Deltas))
	for _, d := range result.Deltas {
		createdAt, _ := time.Parse(time.RFC3339, d.CreatedAt)
		deltas = append(deltas, CommunityDelta{
			ID:            d.ID,
			CommunityID:   communityID,
			Summary:       d.Summary,
			SummaryTokens: d.Tokens,
			CreatedAt:     createdAt,
			Status:        DeltaPending,
		})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].CreatedAt.Before(deltas[j].CreatedAt) })

	return community, deltas, nil
}

func (c *CommunityCompactor) writeCompactionResult(ctx context.Context, txn graphstore.Txn, community Community, pinned []CommunityDelta, now time.Time) error {
	communityDoc := map[string]any{
		"community.id":           community.ID,
		"community.full_content": community.FullContent,
		"community.updated_at":   now.Format(time.RFC3339),
	}
	body, err := json.Marshal(communityDoc)
	if err != nil {
		return err
	}
	if err := txn.Mutate(ctx, body); err != nil {
		return err
	}

	for _, d := range pinned {
		deltaDoc := map[string]any{
			"delta.id":          d.ID,
			"delta.status":      string(DeltaCompacted),
			"delta.compacted_at": now.Format(time.RFC3339),
		}
		deltaBody, err := json.Marshal(deltaDoc)
		if err != nil {
			return err
		}
		if err := txn.Mutate(ctx, deltaBody); err != nil {
			return err
		}
	}
	return nil
}

// CompactAll scans all communities with any pending deltas and compacts
// those crossing either threshold (spec §4.5 compact_all). Idempotent with
// respect to communities below threshold.
func (c *CommunityCompactor) CompactAll(ctx context.Context) ([]Community, error) {
	q := `{
		deltas(func: eq(delta.status, "pending")) {
			delta.community_id
		}
	}`
	raw, err := c.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("dsa: list communities for sweep: %w", err)
	}
	var result struct {
		Deltas []struct {
			CommunityID string `json:"delta.community_id"`
		} `json:"deltas"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("dsa: parse sweep query: %w", err)
	}
	var communities []struct{ ID string }
	seen := map[string]bool{}
	for _, d := range result.Deltas {
		if !seen[d.CommunityID] {
			seen[d.CommunityID] = true
			communities = append(communities, struct{ ID string }{d.CommunityID})
		}
	}

	var compacted []Community
	for _, cm := range communities {
		txn := c.store.NewTxn()
		_, pending, err := c.loadForCompaction(ctx, txn, cm.ID)
		txn.Discard(ctx)
		if err != nil {
			return nil, fmt.Errorf("dsa: load community %s during sweep: %w", cm.ID, err)
		}
		if !c.NeedsCompaction(pending) {
			continue
		}
		result, err := c.CompactCommunity(ctx, cm.ID)
		if err != nil {
			return nil, err
		}
		if result != nil {
			compacted = append(compacted, *result)
		}
	}
	return compacted, nil
}

// CleanupCompactedDeltas hard-deletes compacted deltas stamped more than
// olderThanDays ago (spec §4.5 cleanup_compacted_deltas). Intended to run
// out-of-band from a scheduler, not from the request path.
func (c *CommunityCompactor) CleanupCompactedDeltas(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	q := fmt.Sprintf(`{
		deltas(func: eq(delta.status, "compacted")) @filter(lt(delta.compacted_at, %q)) {
			uid
			delta.id
		}
	}`, cutoff.Format(time.RFC3339))

	raw, err := c.store.Query(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("dsa: query compacted deltas: %w", err)
	}
	var result struct {
		Deltas []struct {
			UID string `json:"uid"`
			ID  string `json:"delta.id"`
		} `json:"deltas"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, fmt.Errorf("dsa: parse compacted-delta query: %w", err)
	}

	deleted := 0
	for _, d := range result.Deltas {
		delDoc, err := json.Marshal(map[string]string{"uid": d.UID})
		if err != nil {
			return deleted, err
		}
		if err := c.store.Delete(ctx, delDoc); err != nil {
			return deleted, fmt.Errorf("dsa: delete delta %s: %w", d.ID, err)
		}
		deleted++
	}
	return deleted, nil
}

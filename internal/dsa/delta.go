package dsa

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/quantumflow/graphrag-skills/internal/graphstore"
	"github.com/quantumflow/graphrag-skills/internal/llm"
)

// DeltaConfig gates DSA behind a config field rather than a process-wide
// global, per spec.md §9 Design Notes ("thread configuration struct...
// avoid process-wide singletons") — this replaces the original's
// DSA_ENABLED module-level flag.
type DeltaConfig struct {
	Enabled bool
}

// DefaultDeltaConfig enables DSA by default.
func DefaultDeltaConfig() *DeltaConfig {
	return &DeltaConfig{Enabled: true}
}

// DeltaSummarizer writes small "what just changed" summaries for
// communities affected by an incremental ingest (spec §4.4).
type DeltaSummarizer struct {
	store  graphstore.Store
	llm    llm.Summarizer
	config *DeltaConfig
}

// NewDeltaSummarizer builds a summarizer over store, using llmClient to
// phrase each delta.
func NewDeltaSummarizer(store graphstore.Store, llmClient llm.Summarizer, config *DeltaConfig) *DeltaSummarizer {
	if config == nil {
		config = DefaultDeltaConfig()
	}
	return &DeltaSummarizer{store: store, llm: llmClient, config: config}
}

// ProcessDeltas builds and stores one CommunityDelta per target community
// that has surviving entities, per spec §4.4. targets maps community id to
// the entity ids the incremental ingest touched. When DSA is disabled this
// is a no-op returning an empty, non-nil slice.
func (d *DeltaSummarizer) ProcessDeltas(ctx context.Context, targets map[string][]string) ([]CommunityDelta, error) {
	if !d.config.Enabled {
		return []CommunityDelta{}, nil
	}

	records := make([]CommunityDelta, 0, len(targets))
	for communityID, entityIDs := range targets {
		memberIDs, facts, err := d.queryCommunityMembership(ctx, communityID, entityIDs)
		if err != nil {
			return nil, fmt.Errorf("dsa: query community %s: %w", communityID, err)
		}
		if len(memberIDs) == 0 {
			continue
		}

		summary, err := d.llm.Summarize(ctx, "", facts)
		if err != nil {
			return nil, fmt.Errorf("dsa: summarize delta for community %s: %w", communityID, err)
		}

		delta := CommunityDelta{
			ID:              communityID + "::delta_" + randomHex8(),
			CommunityID:     communityID,
			Summary:         summary,
			SummaryTokens:   ApproximateTokens(summary),
			RelatedEntities: memberIDs,
			CreatedAt:       time.Now().UTC(),
			Status:          DeltaPending,
		}
		if err := d.storeDelta(ctx, delta); err != nil {
			return nil, fmt.Errorf("dsa: store delta for community %s: %w", communityID, err)
		}
		records = append(records, delta)
	}
	return records, nil
}

// queryCommunityMembership finds which of entityIDs actually belong to
// communityID and the relationship facts among them (spec §4.4 step 1),
// excluding membership edges.
func (d *DeltaSummarizer) queryCommunityMembership(ctx context.Context, communityID string, entityIDs []string) ([]string, []string, error) {
	q := fmt.Sprintf(`{
		community(func: eq(community.id, %q)) {
			community.member_ids
		}
	}`, communityID)
	raw, err := d.store.Query(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	var result struct {
		Community []struct {
			MemberIDs []string `json:"community.member_ids"`
		} `json:"community"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, nil, err
	}
	if len(result.Community) == 0 {
		return nil, nil, nil
	}

	memberSet := make(map[string]bool, len(result.Community[0].MemberIDs))
	for _, id := range result.Community[0].MemberIDs {
		memberSet[id] = true
	}

	var surviving []string
	for _, id := range entityIDs {
		if memberSet[id] {
			surviving = append(surviving, id)
		}
	}
	if len(surviving) == 0 {
		return nil, nil, nil
	}

	facts, err := d.queryRelationshipFacts(ctx, surviving)
	if err != nil {
		return nil, nil, err
	}
	return surviving, facts, nil
}

func (d *DeltaSummarizer) queryRelationshipFacts(ctx context.Context, entityIDs []string) ([]string, error) {
	idList := make([]string, len(entityIDs))
	for i, id := range entityIDs {
		idList[i] = fmt.Sprintf("%q", id)
	}
	q := fmt.Sprintf(`{
		entities(func: eq(entity.id, [%s])) {
			~from @filter(eq(rel.predicate, "RELATED") or has(rel.predicate)) {
				atom_atomic_facts
			}
		}
	}`, strings.Join(idList, ","))

	raw, err := d.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	var result struct {
		Entities []struct {
			Rels []struct {
				AtomicFacts []string `json:"atom_atomic_facts"`
			} `json:"~from"`
		} `json:"entities"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	var facts []string
	for _, e := range result.Entities {
		for _, r := range e.Rels {
			facts = append(facts, r.AtomicFacts...)
		}
	}
	return facts, nil
}

func (d *DeltaSummarizer) storeDelta(ctx context.Context, delta CommunityDelta) error {
	doc := map[string]any{
		"delta.id":           delta.ID,
		"delta.community_id": delta.CommunityID,
		"delta.summary":      delta.Summary,
		"delta.status":       string(delta.Status),
		"delta.created_at":   delta.CreatedAt.Format(time.RFC3339),
		"delta.token_count":  delta.SummaryTokens,
		"dgraph.type":        "CommunityDelta",
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return d.store.Mutate(ctx, body)
}

func randomHex8() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(buf)
}

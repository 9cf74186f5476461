package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/quantumflow/graphrag-skills/internal/dsa"
	"github.com/quantumflow/graphrag-skills/internal/graphstore"
)

// Exporter queries a graphstore.Store for community summaries, entities,
// and (optionally) chunks, and assembles them into a Result (spec §4.11
// GraphRAGExporter, ported from exporter.py).
type Exporter struct {
	store  graphstore.Store
	config *Config
	logger *slog.Logger

	// dsaEnabled mirrors the original's module-level DSA_ENABLED flag
	// (spec.md §9: thread configuration explicitly rather than reading a
	// package global).
	dsaEnabled bool
}

// NewExporter builds an Exporter over store. dsaEnabled controls whether
// the "dsa_enabled" export metadata field and source.dsa_enabled export
// artifact field (spec §6.4) report true.
func NewExporter(store graphstore.Store, config *Config, dsaEnabled bool, logger *slog.Logger) *Exporter {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{store: store, config: config, dsaEnabled: dsaEnabled, logger: logger}
}

// Export runs one export pass (spec §4.11 export). In delta mode with a
// non-empty changedIDs, only those communities are pulled; otherwise every
// community at level is pulled, ordered by weight descending.
func (e *Exporter) Export(ctx context.Context, mode Mode, level int, changedIDs []string) (Result, error) {
	var communities []community
	var err error
	if mode == ModeDelta && len(changedIDs) > 0 {
		communities, err = e.exportCommunitiesByIDs(ctx, changedIDs, level)
	} else {
		communities, err = e.ExportCommunities(ctx, level)
	}
	if err != nil {
		return Result{}, err
	}

	entities, err := e.ExportEntities(ctx, e.config.IncludeRelationships)
	if err != nil {
		return Result{}, err
	}

	var chunks []chunk
	if e.config.IncludeChunks {
		communityIDs := make([]string, 0, len(communities))
		for _, c := range communities {
			communityIDs = append(communityIDs, c.ID)
		}
		chunks, err = e.ExportChunks(ctx, communityIDs)
		if err != nil {
			return Result{}, err
		}
	}

	pages := buildPages(communities, chunks)

	metadata := map[string]any{
		"type":            "graphrag",
		"graph_name":      "knowledge-graph",
		"export_timestamp": time.Now().UTC().Format(time.RFC3339),
		"export_mode":     string(mode),
		"community_level": level,
		"dsa_enabled":     e.dsaEnabled,
		"request_id":      uuid.NewString(),
	}

	result := Result{Pages: pages, Entities: entities, Metadata: metadata}
	e.logger.Info("export complete", "pages", result.PageCount(), "entities", result.EntityCount(), "mode", mode)
	return result, nil
}

// ExportCommunities exports community summaries at level, ordered by weight
// descending, optionally capped at config.MaxCommunities (spec §4.11
// export_communities).
func (e *Exporter) ExportCommunities(ctx context.Context, level int) ([]community, error) {
	q := fmt.Sprintf(`{
		communities(func: eq(community.level, %d)) {
			community.id
			community.title
			community.level
			community.summary
			community.full_content
			community.weight
			~HAS_DELTA @filter(eq(delta.status, "pending")) {
				delta.summary
			}
		}
	}`, level)

	raw, err := e.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("export: query communities: %w", err)
	}

	var result struct {
		Communities []struct {
			ID          string  `json:"community.id"`
			Title       string  `json:"community.title"`
			Level       int     `json:"community.level"`
			Summary     string  `json:"community.summary"`
			FullContent string  `json:"community.full_content"`
			Weight      float64 `json:"community.weight"`
			Deltas      []struct {
				Summary string `json:"delta.summary"`
			} `json:"~HAS_DELTA"`
		} `json:"communities"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("export: parse communities: %w", err)
	}

	communities := make([]community, 0, len(result.Communities))
	for _, r := range result.Communities {
		content := r.FullContent
		if content == "" {
			content = r.Summary
		}
		c := community{ID: r.ID, Title: r.Title, Level: r.Level, Weight: r.Weight, Content: content}
		if c.Title == "" {
			c.Title = fmt.Sprintf("Community %s", r.ID)
		}
		if e.dsaEnabled && e.config.IncludeDeltaSummaries && len(r.Deltas) > 0 {
			summaries := make([]string, len(r.Deltas))
			for i, d := range r.Deltas {
				summaries[i] = d.Summary
			}
			c.Content = dsa.EffectiveSummary(content, deltasFromSummaries(summaries))
			c.HasPendingDeltas = true
			c.DeltaCount = len(r.Deltas)
		}
		communities = append(communities, c)
	}

	sort.SliceStable(communities, func(i, j int) bool { return communities[i].Weight > communities[j].Weight })
	if e.config.MaxCommunities > 0 && len(communities) > e.config.MaxCommunities {
		communities = communities[:e.config.MaxCommunities]
	}
	e.logger.Info("exported communities", "count", len(communities), "level", level)
	return communities, nil
}

// deltasFromSummaries wraps plain summary strings as CommunityDelta records
// so dsa.EffectiveSummary's "[Recent Updates]" formatting can be reused
// here instead of reimplementing it (spec §4.11 reuses the same merge
// helper described in §4.4).
func deltasFromSummaries(summaries []string) []dsa.CommunityDelta {
	out := make([]dsa.CommunityDelta, len(summaries))
	for i, s := range summaries {
		out[i] = dsa.CommunityDelta{Summary: s}
	}
	return out
}

func (e *Exporter) exportCommunitiesByIDs(ctx context.Context, ids []string, level int) ([]community, error) {
	all, err := e.ExportCommunities(ctx, level)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	filtered := make([]community, 0, len(ids))
	for _, c := range all {
		if wanted[c.ID] {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// ExportEntities exports every entity, optionally inlining one-hop
// relationships as "{type}:{target_id}" strings (spec §4.11 export_entities).
func (e *Exporter) ExportEntities(ctx context.Context, includeRelationships bool) ([]Entity, error) {
	// Relationships, when requested, are fetched per-entity via
	// oneHopRelationships below rather than inlined here: this base query
	// is the same whether or not includeRelationships is set.
	q := `{
		entities(func: has(entity.id)) {
			entity.id
			entity.name
			entity.type
		}
	}`

	raw, err := e.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("export: query entities: %w", err)
	}

	var result struct {
		Entities []struct {
			ID   string `json:"entity.id"`
			Name string `json:"entity.name"`
			Type string `json:"entity.type"`
		} `json:"entities"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("export: parse entities: %w", err)
	}

	entities := make([]Entity, 0, len(result.Entities))
	for _, r := range result.Entities {
		entityType := r.Type
		if entityType == "" {
			entityType = "unknown"
		}
		name := r.Name
		if name == "" {
			name = r.ID
		}
		ent := Entity{EntityID: r.ID, Name: name, Type: entityType}
		if includeRelationships {
			rels, err := e.oneHopRelationships(ctx, r.ID)
			if err != nil {
				e.logger.Warn("failed to load one-hop relationships", "entity_id", r.ID, "error", err)
			} else {
				ent.Relationships = rels
			}
		}
		entities = append(entities, ent)
	}
	e.logger.Info("exported entities", "count", len(entities))
	return entities, nil
}

func (e *Exporter) oneHopRelationships(ctx context.Context, entityID string) ([]string, error) {
	q := fmt.Sprintf(`{
		rel(func: eq(rel.id, %q)) {
			rel.predicate
			to { entity.id }
		}
	}`, entityID)
	raw, err := e.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	var result struct {
		Rel []struct {
			Predicate string `json:"rel.predicate"`
			To        []struct {
				ID string `json:"entity.id"`
			} `json:"to"`
		} `json:"rel"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	var out []string
	for _, r := range result.Rel {
		for _, t := range r.To {
			if t.ID != "" {
				out = append(out, fmt.Sprintf("%s:%s", r.Predicate, t.ID))
			}
		}
	}
	return out, nil
}

// ExportChunks exports raw document chunks, filtered by communityIDs when
// non-empty, or capped at config.chunkLimit() with a logged warning when
// unfiltered (spec §4.11 export_chunks).
func (e *Exporter) ExportChunks(ctx context.Context, communityIDs []string) ([]chunk, error) {
	var q string
	if len(communityIDs) > 0 {
		idList := ""
		for i, id := range communityIDs {
			if i > 0 {
				idList += ", "
			}
			idList += fmt.Sprintf("%q", id)
		}
		q = fmt.Sprintf(`{
			chunks(func: has(chunk.id)) @filter(uid_in(community.id, [%s])) {
				chunk.id
				chunk.content
				chunk.file_name
				chunk.page
			}
		}`, idList)
	} else {
		limit := e.config.chunkLimit()
		e.logger.Warn("no community filter for chunk export; capping result", "limit", limit)
		q = fmt.Sprintf(`{
			chunks(func: has(chunk.id), first: %d) {
				chunk.id
				chunk.content
				chunk.file_name
				chunk.page
			}
		}`, limit)
	}

	raw, err := e.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("export: query chunks: %w", err)
	}
	var result struct {
		Chunks []struct {
			ID       string `json:"chunk.id"`
			Content  string `json:"chunk.content"`
			FileName string `json:"chunk.file_name"`
			Page     int    `json:"chunk.page"`
		} `json:"chunks"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("export: parse chunks: %w", err)
	}
	chunks := make([]chunk, 0, len(result.Chunks))
	for _, r := range result.Chunks {
		chunks = append(chunks, chunk{ID: r.ID, Content: r.Content, FileName: r.FileName, Page: r.Page})
	}
	e.logger.Info("exported chunks", "count", len(chunks))
	return chunks, nil
}

// buildPages turns queried communities/chunks into the uniformly-shaped
// Page list spec §4.11 describes (exporter.py _build_pages).
func buildPages(communities []community, chunks []chunk) []Page {
	pages := make([]Page, 0, len(communities)+len(chunks))
	for _, c := range communities {
		meta := map[string]any{
			"community_id": c.ID,
			"level":        c.Level,
			"weight":       c.Weight,
		}
		if c.HasPendingDeltas {
			meta["has_pending_deltas"] = true
			meta["delta_count"] = c.DeltaCount
		}
		pages = append(pages, Page{
			Title:       c.Title,
			URL:         fmt.Sprintf("graphrag://community/%s", c.ID),
			Content:     c.Content,
			ContentType: "community_summary",
			Metadata:    meta,
		})
	}
	for _, ch := range chunks {
		title := ch.FileName
		if title == "" {
			title = "Document"
		}
		pages = append(pages, Page{
			Title:       fmt.Sprintf("Reference: %s", title),
			URL:         fmt.Sprintf("graphrag://chunk/%s", ch.ID),
			Content:     ch.Content,
			ContentType: "reference",
			Metadata: map[string]any{
				"chunk_id":  ch.ID,
				"file_name": ch.FileName,
				"page":      ch.Page,
			},
		})
	}
	return pages
}

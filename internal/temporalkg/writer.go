package temporalkg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/quantumflow/graphrag-skills/internal/graphstore"
)

// MergeStrategy selects how TemporalWriter reconciles a relationship write
// against whatever is already stored for the same (source, type, target)
// triple (spec §4.3).
type MergeStrategy string

const (
	// MergeUpdate appends new observation data to existing temporal
	// properties (the default).
	MergeUpdate MergeStrategy = "update"
	// MergeReplace overwrites temporal properties outright, used for
	// reindexing/corrective passes.
	MergeReplace MergeStrategy = "replace"
)

// reservedTemporalKeys are stripped from a relationship's generic
// Properties map before write, since they are only ever set through the
// dedicated temporal-aware path (spec §4.3).
var reservedTemporalKeys = map[string]bool{
	"atom_t_obs": true, "atom_t_start": true, "atom_t_end": true,
	"atom_atomic_facts": true, "atom_confidence": true, "atom_embeddings": true,
}

// WriterConfig holds TemporalWriter tuning knobs.
type WriterConfig struct {
	BatchSize int
}

// DefaultWriterConfig returns spec §4.3's documented default batch size.
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{BatchSize: 50}
}

// WriteStats reports how much of a TemporalKG was actually persisted.
type WriteStats struct {
	Entities      int
	Relationships int
}

// TemporalWriter persists a TemporalKnowledgeGraph to a graphstore.Store in
// batches (spec §4.3).
type TemporalWriter struct {
	store  graphstore.Store
	config *WriterConfig
	logger *slog.Logger
}

// NewTemporalWriter builds a writer over store.
func NewTemporalWriter(store graphstore.Store, config *WriterConfig, logger *slog.Logger) *TemporalWriter {
	if config == nil {
		config = DefaultWriterConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TemporalWriter{store: store, config: config, logger: logger}
}

// WriteTemporalKG persists kg under the given merge strategy, writing every
// entity batch before the first relationship batch (spec §4.3). A
// batch-level failure is retried one item at a time; single-item failures
// are logged with source/target ids and skipped rather than aborting the
// whole write.
func (w *TemporalWriter) WriteTemporalKG(ctx context.Context, kg TemporalKnowledgeGraph, strategy MergeStrategy) (WriteStats, error) {
	stats := WriteStats{}
	batchSize := w.config.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	for start := 0; start < len(kg.Entities); start += batchSize {
		end := min(start+batchSize, len(kg.Entities))
		batch := kg.Entities[start:end]
		if err := w.writeEntityBatch(ctx, batch); err != nil {
			w.logger.Warn("entity batch failed, retrying survivors individually", "error", err)
			for _, e := range batch {
				if err := w.writeEntity(ctx, e); err != nil {
					w.logger.Warn("skipping entity after individual retry failure", "entity_id", e.ID, "error", err)
					continue
				}
				stats.Entities++
			}
			continue
		}
		stats.Entities += len(batch)
	}

	for start := 0; start < len(kg.Relationships); start += batchSize {
		end := min(start+batchSize, len(kg.Relationships))
		batch := kg.Relationships[start:end]
		if err := w.writeRelationshipBatch(ctx, batch, strategy); err != nil {
			w.logger.Warn("relationship batch failed, retrying survivors individually", "error", err)
			for _, r := range batch {
				if err := w.writeRelationship(ctx, r, strategy); err != nil {
					w.logger.Warn("skipping relationship after individual retry failure",
						"source_id", r.SourceID, "target_id", r.TargetID, "error", err)
					continue
				}
				stats.Relationships++
			}
			continue
		}
		stats.Relationships += len(batch)
	}

	return stats, nil
}

func (w *TemporalWriter) writeEntityBatch(ctx context.Context, batch []TemporalEntity) error {
	for _, e := range batch {
		if err := w.writeEntity(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (w *TemporalWriter) writeEntity(ctx context.Context, e TemporalEntity) error {
	label := SanitizeEntityLabel(e.Type)
	propsJSON, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("temporalkg: marshal entity properties: %w", err)
	}

	doc := map[string]any{
		"entity.id":         e.ID,
		"entity.name":       e.Name,
		"entity.type":       label,
		"entity.properties": string(propsJSON),
		"entity.updated":    time.Now().UTC().Format(time.RFC3339),
		"dgraph.type":       "Entity",
	}
	if e.CreatedAt.IsZero() {
		doc["entity.created"] = time.Now().UTC().Format(time.RFC3339)
	} else {
		doc["entity.created"] = e.CreatedAt.Format(time.RFC3339)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("temporalkg: marshal entity: %w", err)
	}
	return w.store.Mutate(ctx, body)
}

// existingRelProps is what the writer reads back before constructing an
// "update" mutation, emulating Cypher's coalesce(existing, []) ++ new.
type existingRelProps struct {
	TObs        []time.Time
	ValidStart  []time.Time
	ValidEnd    []time.Time
	AtomicFacts []string
}

func (w *TemporalWriter) readExistingRelProps(ctx context.Context, r TemporalRelationship, relType string) (existingRelProps, bool) {
	q := fmt.Sprintf(`{
		rel(func: eq(rel.id, %q)) {
			atom_t_obs
			atom_t_start
			atom_t_end
			atom_atomic_facts
		}
	}`, relID(r, relType))

	raw, err := w.store.Query(ctx, q)
	if err != nil {
		return existingRelProps{}, false
	}

	var result struct {
		Rel []struct {
			AtomTObs        []string `json:"atom_t_obs"`
			AtomTStart      []string `json:"atom_t_start"`
			AtomTEnd        []string `json:"atom_t_end"`
			AtomAtomicFacts []string `json:"atom_atomic_facts"`
		} `json:"rel"`
	}
	if err := json.Unmarshal(raw, &result); err != nil || len(result.Rel) == 0 {
		return existingRelProps{}, false
	}

	parseAll := func(ss []string) []time.Time {
		out := make([]time.Time, 0, len(ss))
		for _, s := range ss {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				out = append(out, t)
			}
		}
		return out
	}
	existing := result.Rel[0]
	return existingRelProps{
		TObs:        parseAll(existing.AtomTObs),
		ValidStart:  parseAll(existing.AtomTStart),
		ValidEnd:    parseAll(existing.AtomTEnd),
		AtomicFacts: existing.AtomAtomicFacts,
	}, true
}

func relID(r TemporalRelationship, relType string) string {
	return r.SourceID + "::" + relType + "::" + r.TargetID
}

func (w *TemporalWriter) writeRelationshipBatch(ctx context.Context, batch []TemporalRelationship, strategy MergeStrategy) error {
	for _, r := range batch {
		if err := w.writeRelationship(ctx, r, strategy); err != nil {
			return err
		}
	}
	return nil
}

func (w *TemporalWriter) writeRelationship(ctx context.Context, r TemporalRelationship, strategy MergeStrategy) error {
	relType := SanitizeRelationshipType(r.Predicate)

	tObs, validStart, validEnd, atomicFacts := r.TObs, r.ValidStart, r.ValidEnd, r.AtomicFacts
	if strategy == MergeUpdate {
		if existing, ok := w.readExistingRelProps(ctx, r, relType); ok {
			tObs = append(append([]time.Time(nil), existing.TObs...), r.TObs...)
			validStart = append(append([]time.Time(nil), existing.ValidStart...), r.ValidStart...)
			validEnd = append(append([]time.Time(nil), existing.ValidEnd...), r.ValidEnd...)
			atomicFacts = append(append([]string(nil), existing.AtomicFacts...), r.AtomicFacts...)
		}
	}

	properties := cleanedProperties(r.Properties)

	doc := map[string]any{
		"rel.id":            relID(r, relType),
		"rel.predicate":     relType,
		"atom_t_obs":        formatTimes(tObs),
		"atom_t_start":      formatTimes(validStart),
		"atom_t_end":        formatTimes(validEnd),
		"atom_atomic_facts": atomicFacts,
		"atom_confidence":   r.Confidence,
		"atom_embeddings":   r.Embeddings,
		"from":              map[string]string{"uid": "_:" + sanitizeUIDKey(r.SourceID)},
		"to":                map[string]string{"uid": "_:" + sanitizeUIDKey(r.TargetID)},
		"dgraph.type":       "TemporalRelationship",
	}
	for k, v := range properties {
		doc[k] = v
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("temporalkg: marshal relationship: %w", err)
	}
	return w.store.Mutate(ctx, body)
}

// cleanedProperties strips the reserved atom_* keys from a generic
// properties map before merging it into a relationship write (spec §4.3).
func cleanedProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if reservedTemporalKeys[k] {
			continue
		}
		out[k] = v
	}
	return out
}

func formatTimes(ts []time.Time) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.UTC().Format(time.RFC3339))
	}
	return out
}

// sanitizeUIDKey produces a stable blank-node label for an entity id; Dgraph
// blank node labels must be alphanumeric-ish, so non-identifier bytes are
// escaped rather than dropped to avoid accidental collisions.
func sanitizeUIDKey(id string) string {
	var b strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
		b.WriteString(strconv.Itoa(int(r)))
	}
	return b.String()
}

// Package temporalkg implements the temporal knowledge graph write path:
// converting extracted chunks into entities/relationships carrying
// observation and validity timestamps, and writing them to a graph store
// with append ("update") or overwrite ("replace") merge semantics.
package temporalkg

import (
	"maps"
	"sort"
	"time"
)

// TemporalEntity is a node in the knowledge graph (spec §3.1).
type TemporalEntity struct {
	ID         string
	Name       string
	Type       string
	Properties map[string]any
	CreatedAt  time.Time
	LastUpdated time.Time
}

// TemporalRelationship is an edge carrying append-only observation history
// (spec §3.1, §4.3): TObs, ValidStart, ValidEnd, and AtomicFacts are all
// accumulated (coalesce ++ new) by TemporalWriter under the default "update"
// merge strategy, which is why they are slices rather than single values —
// every write call appends its own observation to the edge's running
// history instead of replacing it. Confidence and Embeddings are always
// replaced outright, never accumulated.
type TemporalRelationship struct {
	ID          string
	SourceID    string
	TargetID    string
	Predicate   string
	TObs        []time.Time
	ValidStart  []time.Time
	ValidEnd    []time.Time
	AtomicFacts []string
	Confidence  float64
	Embeddings  []float64
	// Properties holds generic, non-temporal scalar/list properties (spec
	// §3.1). TemporalWriter strips the reserved atom_* keys out of this map
	// before a write, since those are only ever set through the dedicated
	// temporal-aware path (spec §4.3).
	Properties map[string]any
}

// TemporalKnowledgeGraph is a batch of entities and relationships produced
// by one extraction pass (spec §3.1, mirroring the original's
// TemporalKnowledgeGraph container). CreatedAt/LastUpdated/ObservationTimes
// track the container itself, separate from any individual relationship's
// TObs history (temporal_kg.py's TemporalKnowledgeGraph dataclass fields of
// the same name).
type TemporalKnowledgeGraph struct {
	Entities         []TemporalEntity
	Relationships    []TemporalRelationship
	CreatedAt        time.Time
	LastUpdated      time.Time
	ObservationTimes []time.Time
}

// Clone deep-copies a graph. Grounded on atom_adapter.py's FromAtomKG/
// ToAtomKG round trip, which in the original exists to cross an ATOM-library
// type boundary; Go has no such boundary, so Clone serves the round-trip
// test spec §8 calls for and ExtractionAdapter's copy of an existing graph
// when there are no chunks to extract. Properties maps are copied one level
// deep.
func (g TemporalKnowledgeGraph) Clone() TemporalKnowledgeGraph {
	out := TemporalKnowledgeGraph{
		Entities:         make([]TemporalEntity, len(g.Entities)),
		Relationships:    make([]TemporalRelationship, len(g.Relationships)),
		CreatedAt:        g.CreatedAt,
		LastUpdated:      g.LastUpdated,
		ObservationTimes: append([]time.Time(nil), g.ObservationTimes...),
	}
	for i, e := range g.Entities {
		e.Properties = maps.Clone(e.Properties)
		out.Entities[i] = e
	}
	for i, r := range g.Relationships {
		nr := r
		nr.TObs = append([]time.Time(nil), r.TObs...)
		nr.ValidStart = append([]time.Time(nil), r.ValidStart...)
		nr.ValidEnd = append([]time.Time(nil), r.ValidEnd...)
		nr.AtomicFacts = append([]string(nil), r.AtomicFacts...)
		nr.Embeddings = append([]float64(nil), r.Embeddings...)
		nr.Properties = maps.Clone(r.Properties)
		out.Relationships[i] = nr
	}
	return out
}

// Merge concatenates other into g without deduplicating entities or
// relationships (spec §3.1/§9: the original's merge() is a plain
// list-append, an intentionally documented quirk, not a bug — duplicate
// entities/relationships are the caller's responsibility to avoid).
// Observation timestamps across merged relationships with the same ID are
// NOT unioned here; TemporalWriter's append semantics, not Merge, is where
// per-relationship TObs accumulation happens. What Merge does union-sort
// (temporal_kg.py merge: `list(set(self.observation_times +
// other.observation_times))`) is the container-level ObservationTimes set,
// and it sets CreatedAt to the earlier of the two graphs' and LastUpdated
// to now.
func (g TemporalKnowledgeGraph) Merge(other TemporalKnowledgeGraph, now time.Time) TemporalKnowledgeGraph {
	out := TemporalKnowledgeGraph{
		Entities:      make([]TemporalEntity, 0, len(g.Entities)+len(other.Entities)),
		Relationships: make([]TemporalRelationship, 0, len(g.Relationships)+len(other.Relationships)),
	}
	out.Entities = append(out.Entities, g.Entities...)
	out.Entities = append(out.Entities, other.Entities...)
	out.Relationships = append(out.Relationships, g.Relationships...)
	out.Relationships = append(out.Relationships, other.Relationships...)

	out.ObservationTimes = unionSortTimes(g.ObservationTimes, other.ObservationTimes)

	out.CreatedAt = g.CreatedAt
	if g.CreatedAt.IsZero() || (!other.CreatedAt.IsZero() && other.CreatedAt.Before(g.CreatedAt)) {
		out.CreatedAt = other.CreatedAt
	}
	out.LastUpdated = now
	return out
}

// unionSortTimes dedupes and sorts two observation-time lists.
func unionSortTimes(a, b []time.Time) []time.Time {
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]time.Time, 0, len(a)+len(b))
	for _, list := range [][]time.Time{a, b} {
		for _, t := range list {
			key := t.UnixNano()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// ChunkInput is the duck-typed union the original's extractor accepts
// (atom_adapter.py's _extract_atomic_facts, spec §4.1 / SPEC_FULL §4.1): a
// plain string; a dict, tried in order as a graph-rag-agent
// {"chunk_doc": Document} envelope, then a "text" key, then a "content" key;
// or an object exposing a page_content attribute directly (a bare LangChain
// Document). Go has no structural typing for this, so it is modeled as a
// small sum type: exactly one field should be non-nil/non-empty.
type ChunkInput struct {
	Text     *string
	Document *DocumentChunk
	Content  map[string]any
}

// DocumentChunk mirrors a LangChain-style Document (page_content + metadata).
type DocumentChunk struct {
	PageContent string
	Metadata    map[string]any
}

// ResolveText extracts the text payload from whichever form of ChunkInput
// was populated, in the original's exact precedence order: string identity;
// then, for a dict, chunk_doc.page_content, then "text", then "content";
// then a bare object's page_content attribute.
func (c ChunkInput) ResolveText() (string, bool) {
	if c.Text != nil {
		return *c.Text, true
	}
	if c.Content != nil {
		if v, ok := c.Content["chunk_doc"]; ok {
			switch doc := v.(type) {
			case DocumentChunk:
				return doc.PageContent, true
			case *DocumentChunk:
				if doc != nil {
					return doc.PageContent, true
				}
			case map[string]any:
				if s, ok := doc["page_content"].(string); ok {
					return s, true
				}
			}
		}
		if v, ok := c.Content["text"]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
		if v, ok := c.Content["content"]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
		return "", false
	}
	if c.Document != nil {
		return c.Document.PageContent, true
	}
	return "", false
}

// WriteBatch is the output of ToWriteBatch: a graph ready
// to be handed to TemporalWriter, paired with the source text it was
// extracted from (spec §4.2).
type WriteBatch struct {
	Graph      TemporalKnowledgeGraph
	SourceText string
}

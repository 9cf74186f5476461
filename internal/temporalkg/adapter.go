package temporalkg

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/quantumflow/graphrag-skills/internal/llm"
)

// AdapterConfig holds ExtractionAdapter tuning knobs (spec §4.1), following
// the teacher's DefaultConfig()-factory idiom.
type AdapterConfig struct {
	EntThreshold      float64
	RelThreshold      float64
	EntityNameWeight  float64
	EntityLabelWeight float64
	MaxWorkers        int
}

// DefaultAdapterConfig returns spec §4.1's documented defaults.
func DefaultAdapterConfig() *AdapterConfig {
	return &AdapterConfig{
		EntThreshold:      0.75,
		RelThreshold:      0.75,
		EntityNameWeight:  0.7,
		EntityLabelWeight: 0.3,
		MaxWorkers:        4,
	}
}

// ExtractionAdapter adapts an llm.Extractor into the TemporalKG model
// (spec §4.1). The extractor dependency is required at construction time so
// a missing/misconfigured collaborator fails fast, matching spec's
// "initialization error at construction time, not at call time" rule for a
// missing adapter dependency.
type ExtractionAdapter struct {
	config    *AdapterConfig
	extractor llm.Extractor
	limiter   *rate.Limiter
}

// NewExtractionAdapter builds an adapter. extractor must be non-nil.
func NewExtractionAdapter(config *AdapterConfig, extractor llm.Extractor) (*ExtractionAdapter, error) {
	if extractor == nil {
		return nil, fmt.Errorf("temporalkg: extractor dependency is required")
	}
	if config == nil {
		config = DefaultAdapterConfig()
	}
	workers := config.MaxWorkers
	if workers <= 0 {
		workers = 1
	}
	// Bounds the chunk fan-out below to at most MaxWorkers extractor calls
	// per second (burst MaxWorkers), so a large ingest batch cannot flood the
	// LLM backend with unbounded concurrent requests (spec §4.1 max_workers).
	limiter := rate.NewLimiter(rate.Limit(workers), workers)
	return &ExtractionAdapter{config: config, extractor: extractor, limiter: limiter}, nil
}

// normalizeChunks resolves each ChunkInput to non-empty text, dropping
// empty/whitespace items, per spec §4.1's duck-typed normalization.
func normalizeChunks(chunks []ChunkInput) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		text, ok := c.ResolveText()
		if !ok {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, text)
	}
	return out
}

// ExtractFromChunks builds a TemporalKG from chunks, optionally merging into
// existingKG (incremental mode). observationTime, if zero, defaults to now.
// An empty fact list returns an empty TemporalKG, never an error (spec
// §4.1 Failures).
func (a *ExtractionAdapter) ExtractFromChunks(ctx context.Context, chunks []ChunkInput, observationTime time.Time, existingKG *TemporalKnowledgeGraph) (TemporalKnowledgeGraph, error) {
	if observationTime.IsZero() {
		observationTime = time.Now().UTC()
	}

	texts := normalizeChunks(chunks)
	if len(texts) == 0 {
		result := TemporalKnowledgeGraph{}
		if existingKG != nil {
			result = existingKG.Clone()
		}
		return result, nil
	}

	graphs := make([]TemporalKnowledgeGraph, len(texts))
	errs := make([]error, len(texts))
	workers := a.config.MaxWorkers
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, text := range texts {
		if err := a.limiter.Wait(ctx); err != nil {
			return TemporalKnowledgeGraph{}, fmt.Errorf("temporalkg: rate limiter: %w", err)
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			defer func() { <-sem }()
			facts, err := a.extractor.ExtractFacts(ctx, text)
			if err != nil {
				errs[i] = fmt.Errorf("temporalkg: extract facts: %w", err)
				return
			}
			graphs[i] = factsToGraph(facts, observationTime)
		}(i, text)
	}
	wg.Wait()

	built := TemporalKnowledgeGraph{}
	for i, err := range errs {
		if err != nil {
			return TemporalKnowledgeGraph{}, err
		}
		built = built.Merge(graphs[i], time.Now().UTC())
	}

	if existingKG != nil {
		return existingKG.Merge(built, time.Now().UTC()), nil
	}
	return built, nil
}

// ExtractFromChunksSync is the synchronous entrypoint described in spec
// §4.1's sync bridge. Go has no per-thread event loop to detect, so this is
// simply ExtractFromChunks driven with a background context — the
// Go-native resolution of that Open Question (see DESIGN.md).
func (a *ExtractionAdapter) ExtractFromChunksSync(chunks []ChunkInput, observationTime time.Time, existingKG *TemporalKnowledgeGraph) (TemporalKnowledgeGraph, error) {
	return a.ExtractFromChunks(context.Background(), chunks, observationTime, existingKG)
}

func factsToGraph(facts []llm.Fact, observationTime time.Time) TemporalKnowledgeGraph {
	g := TemporalKnowledgeGraph{}
	seen := map[string]bool{}
	addEntity := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		g.Entities = append(g.Entities, TemporalEntity{
			ID:          id,
			Name:        id,
			Type:        "Entity",
			CreatedAt:   observationTime,
			LastUpdated: observationTime,
		})
	}
	for _, f := range facts {
		addEntity(f.Source)
		addEntity(f.Target)
		g.Relationships = append(g.Relationships, TemporalRelationship{
			ID:          f.Source + "->" + f.Predicate + "->" + f.Target,
			SourceID:    f.Source,
			TargetID:    f.Target,
			Predicate:   f.Predicate,
			TObs:        []time.Time{observationTime},
			AtomicFacts: []string{f.Text},
			Confidence:  f.Confidence,
		})
	}
	return g
}

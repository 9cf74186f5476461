package llm

import (
	"context"
	"strings"
)

// StubSummarizer is the deterministic, model-free Summarizer described in
// spec §9 Design Notes ("deployments without a local model should still be
// able to exercise DSA end to end"): it appends new facts to the existing
// summary verbatim, joined by newlines, without calling out to any model.
type StubSummarizer struct{}

func (StubSummarizer) Summarize(ctx context.Context, existingSummary string, newFacts []string) (string, error) {
	if len(newFacts) == 0 {
		return existingSummary, nil
	}
	parts := make([]string, 0, len(newFacts)+1)
	if existingSummary != "" {
		parts = append(parts, existingSummary)
	}
	parts = append(parts, newFacts...)
	return strings.Join(parts, "\n"), nil
}

// StubExtractor is a deterministic Extractor for tests: it treats the whole
// input text as a single fact with a synthetic subject/object pair, so
// callers can exercise the write path without a real model.
type StubExtractor struct {
	Predicate string
}

func (s StubExtractor) ExtractFacts(ctx context.Context, text string) ([]Fact, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}
	predicate := s.Predicate
	if predicate == "" {
		predicate = "RELATED"
	}
	return []Fact{{
		Source:     "doc",
		Target:     "fact",
		Predicate:  predicate,
		Text:       trimmed,
		Confidence: 1.0,
	}}, nil
}

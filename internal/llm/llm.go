// Package llm defines the collaborator contracts the rest of the module
// uses for text generation: DeltaSummarizer needs a Summarizer to fold new
// atomic facts into a community summary (spec §4.4), and ExtractionAdapter
// needs an Extractor to turn raw text into a temporal knowledge graph
// (spec §4.1). Both are narrow interfaces so that tests (and, per spec §9,
// deployments without a local model) can run against deterministic stubs.
package llm

import "context"

// Summarizer folds new content into an existing summary. Implementations
// are free to truncate, chunk, or otherwise bound the combined prompt.
type Summarizer interface {
	Summarize(ctx context.Context, existingSummary string, newFacts []string) (string, error)
}

// Fact is one atomic, textual observation an Extractor pulls out of a chunk
// of source text, paired with the entities/relationship it supports.
type Fact struct {
	Source    string
	Target    string
	Predicate string
	Text      string
	Confidence float64
}

// Extractor turns source text into atomic facts. Concrete implementations
// wrap a real model (internal/llm's Ollama client) or, for tests, return a
// fixed fact set.
type Extractor interface {
	ExtractFacts(ctx context.Context, text string) ([]Fact, error)
}

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/quantumflow/graphrag-skills/internal/config"
	"github.com/quantumflow/graphrag-skills/internal/graphstore"
	"github.com/quantumflow/graphrag-skills/internal/llm"
	"github.com/quantumflow/graphrag-skills/internal/telemetry"
)

// app bundles the loaded configuration and logger every subcommand needs,
// built once in the root command's PersistentPreRunE (spec.md §9: "thread
// configuration explicitly, avoid process-wide singletons").
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "graphrag-skills",
		Short: "Temporal knowledge graph, delta summaries, and skill export tooling",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = telemetry.New(cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}

	root.AddCommand(
		newIngestCmd(a),
		newCompactCmd(a),
		newExportCmd(a),
		newTemplateCmd(a),
	)
	return root
}

// connectStore dials the configured Dgraph backend and ensures its schema
// is installed before use.
func (a *app) connectStore() (*graphstore.DgraphStore, error) {
	store, err := graphstore.Dial(a.cfg.GraphStore.Address)
	if err != nil {
		return nil, err
	}
	if err := graphstore.EnsureSchema(context.Background(), store); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// newExtractor builds an llm.Extractor: a deterministic stub suitable for CI
// and offline use when --stub is passed, otherwise a real Ollama client at
// the configured OllamaURL (spec §9: "deployments
// without a local model run against deterministic stubs").
func (a *app) newExtractor(useStub bool) llm.Extractor {
	if useStub {
		return llm.StubExtractor{}
	}
	return llm.NewOllamaClient(&llm.Config{
		OllamaURL:   a.cfg.LLM.OllamaURL,
		Model:       a.cfg.LLM.Model,
		ContextSize: a.cfg.LLM.ContextSize,
		Temperature: a.cfg.LLM.Temperature,
		Timeout:     a.cfg.LLM.Timeout,
	})
}

func (a *app) newSummarizer(useStub bool) llm.Summarizer {
	if useStub {
		return llm.StubSummarizer{}
	}
	return llm.NewOllamaClient(&llm.Config{
		OllamaURL:   a.cfg.LLM.OllamaURL,
		Model:       a.cfg.LLM.Model,
		ContextSize: a.cfg.LLM.ContextSize,
		Temperature: a.cfg.LLM.Temperature,
		Timeout:     a.cfg.LLM.Timeout,
	})
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantumflow/graphrag-skills/internal/temporalkg"
)

// newIngestCmd wires ExtractionAdapter and TemporalWriter into a batch
// ingest command: read chunks from a JSON file, extract facts, and persist
// the resulting graph (spec §4.1-§4.3).
func newIngestCmd(a *app) *cobra.Command {
	var chunksPath string
	var replace bool
	var useStub bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Extract a temporal knowledge graph from chunks and write it to the graph store",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(chunksPath)
			if err != nil {
				return fmt.Errorf("ingest: read %s: %w", chunksPath, err)
			}

			var rawChunks []json.RawMessage
			if err := json.Unmarshal(raw, &rawChunks); err != nil {
				return fmt.Errorf("ingest: parse %s: %w", chunksPath, err)
			}
			chunks := make([]temporalkg.ChunkInput, 0, len(rawChunks))
			for _, rc := range rawChunks {
				var s string
				if err := json.Unmarshal(rc, &s); err == nil {
					chunks = append(chunks, temporalkg.ChunkInput{Text: &s})
					continue
				}
				var content map[string]any
				if err := json.Unmarshal(rc, &content); err != nil {
					return fmt.Errorf("ingest: chunk is neither a string nor an object: %w", err)
				}
				chunks = append(chunks, temporalkg.ChunkInput{Content: content})
			}

			adapterConfig := &temporalkg.AdapterConfig{
				EntThreshold:      a.cfg.Adapter.EntThreshold,
				RelThreshold:      a.cfg.Adapter.RelThreshold,
				EntityNameWeight:  a.cfg.Adapter.EntityNameWeight,
				EntityLabelWeight: a.cfg.Adapter.EntityLabelWeight,
				MaxWorkers:        a.cfg.Adapter.MaxWorkers,
			}
			adapter, err := temporalkg.NewExtractionAdapter(adapterConfig, a.newExtractor(useStub))
			if err != nil {
				return err
			}

			kg, err := adapter.ExtractFromChunks(cmd.Context(), chunks, time.Now().UTC(), nil)
			if err != nil {
				return fmt.Errorf("ingest: extract: %w", err)
			}
			a.logger.Info("extraction complete", "entities", len(kg.Entities), "relationships", len(kg.Relationships))

			store, err := a.connectStore()
			if err != nil {
				return fmt.Errorf("ingest: connect store: %w", err)
			}
			defer store.Close()

			writer := temporalkg.NewTemporalWriter(store, &temporalkg.WriterConfig{BatchSize: a.cfg.Writer.BatchSize}, a.logger)
			strategy := temporalkg.MergeUpdate
			if replace {
				strategy = temporalkg.MergeReplace
			}
			stats, err := writer.WriteTemporalKG(cmd.Context(), kg, strategy)
			if err != nil {
				return fmt.Errorf("ingest: write: %w", err)
			}
			a.logger.Info("ingest complete", "entities_written", stats.Entities, "relationships_written", stats.Relationships)
			return nil
		},
	}

	cmd.Flags().StringVar(&chunksPath, "chunks", "", "path to a JSON array of chunk strings/objects (required)")
	cmd.Flags().BoolVar(&replace, "replace", false, "overwrite existing relationship temporal properties instead of appending")
	cmd.Flags().BoolVar(&useStub, "stub", false, "use the deterministic stub extractor instead of the configured Ollama model")
	_ = cmd.MarkFlagRequired("chunks")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantumflow/graphrag-skills/internal/dsa"
	"github.com/quantumflow/graphrag-skills/internal/graphstore"
)

// newCompactCmd wires MigrateSchema and CommunityCompactor into a
// maintenance command covering spec §4.5-§4.6's schema install, a
// single-community compaction, a full sweep, and stale-delta cleanup.
func newCompactCmd(a *app) *cobra.Command {
	var useStub bool

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Compact accumulated delta summaries back into community base content",
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate-schema",
		Short: "Install or upgrade the graph store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.connectStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := dsa.MigrateSchema(cmd.Context(), store); err != nil {
				return err
			}
			a.logger.Info("schema migration complete")
			return nil
		},
	}

	var communityID string
	oneCmd := &cobra.Command{
		Use:   "community",
		Short: "Compact a single community by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if communityID == "" {
				return fmt.Errorf("compact community: --id is required")
			}
			store, err := a.connectStore()
			if err != nil {
				return err
			}
			defer store.Close()

			compactor, err := a.newCompactor(store, useStub)
			if err != nil {
				return err
			}
			result, err := compactor.CompactCommunity(cmd.Context(), communityID)
			if err != nil {
				return err
			}
			if result == nil {
				a.logger.Info("no pending deltas, nothing compacted", "community_id", communityID)
				return nil
			}
			a.logger.Info("compaction complete", "community_id", communityID, "summary_tokens", result.SummaryTokens)
			return nil
		},
	}
	oneCmd.Flags().StringVar(&communityID, "id", "", "community id to compact (required)")

	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Sweep every community and compact those past threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.connectStore()
			if err != nil {
				return err
			}
			defer store.Close()

			compactor, err := a.newCompactor(store, useStub)
			if err != nil {
				return err
			}
			compacted, err := compactor.CompactAll(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info("compaction sweep complete", "communities_compacted", len(compacted))
			return nil
		},
	}

	var cleanupDays int
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Hard-delete compacted deltas older than --older-than-days",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.connectStore()
			if err != nil {
				return err
			}
			defer store.Close()

			compactor, err := a.newCompactor(store, useStub)
			if err != nil {
				return err
			}
			deleted, err := compactor.CleanupCompactedDeltas(cmd.Context(), cleanupDays)
			if err != nil {
				return err
			}
			a.logger.Info("cleanup complete", "deltas_deleted", deleted)
			return nil
		},
	}
	cleanupCmd.Flags().IntVar(&cleanupDays, "older-than-days", 30, "delete compacted deltas older than this many days")

	cmd.PersistentFlags().BoolVar(&useStub, "stub", false, "use the deterministic stub summarizer instead of the configured Ollama model")
	cmd.AddCommand(migrateCmd, oneCmd, allCmd, cleanupCmd)
	return cmd
}

// newCompactor builds a CommunityCompactor over store, backed by the
// configured Badger delta cache when it can be opened (spec §4.5: the cache
// is a read accelerator, never the source of truth, so a failure to open it
// falls back to compacting without one rather than aborting).
func (a *app) newCompactor(store *graphstore.DgraphStore, useStub bool) (*dsa.CommunityCompactor, error) {
	compactorConfig := &dsa.CompactorConfig{
		DeltaCountThreshold: a.cfg.DSA.DeltaCountThreshold,
		DeltaTokenThreshold: a.cfg.DSA.DeltaTokenThreshold,
	}
	var cache *dsa.DeltaCache
	if c, err := dsa.OpenDeltaCache(a.cfg.DeltaCache.Path); err == nil {
		cache = c
	} else {
		a.logger.Warn("delta cache unavailable, compacting without it", "error", err)
	}
	return dsa.NewCommunityCompactor(store, a.newSummarizer(useStub), compactorConfig, cache), nil
}

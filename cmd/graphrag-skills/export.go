package main

import (
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/quantumflow/graphrag-skills/internal/export"
)

// newExportCmd wires Exporter, Deduplicator, Formatter, and SyncManager
// into the export surface (spec §4.11): a full or delta export, written as
// either the legacy flat shape or the template-layered envelope.
func newExportCmd(a *app) *cobra.Command {
	var (
		level       int
		out         string
		delta       bool
		templateID  string
		templateVer string
		dedup       bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export communities and entities as a skill-input document",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.connectStore()
			if err != nil {
				return fmt.Errorf("export: connect store: %w", err)
			}
			defer store.Close()

			exportConfig := &export.Config{
				DefaultLevel:          a.cfg.Export.DefaultLevel,
				IncludeChunks:         a.cfg.Export.IncludeChunks,
				DedupThreshold:        a.cfg.Export.DedupThreshold,
				MaxCommunities:        a.cfg.Export.MaxCommunities,
				MaxChunks:             a.cfg.Export.MaxChunks,
				IncludeRelationships:  a.cfg.Export.IncludeRelationships,
				SummaryField:          a.cfg.Export.SummaryField,
				IncludeDeltaSummaries: a.cfg.Export.IncludeDeltaSummaries,
				SyncStatePath:         a.cfg.Export.SyncStatePath,
			}
			exporter := export.NewExporter(store, exportConfig, a.cfg.DSA.Enabled, a.logger)

			var redisClient *redis.Client
			if a.cfg.Redis.Enabled {
				redisClient = redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Addr, DB: a.cfg.Redis.DB})
				defer redisClient.Close()
			}
			lister := export.StoreCommunityLister{Store: store}
			var syncMgr *export.SyncManager
			if redisClient != nil {
				syncMgr, err = export.NewSyncManager(exportConfig.SyncStatePath, lister, redisClient)
			} else {
				syncMgr, err = export.NewSyncManager(exportConfig.SyncStatePath, lister, nil)
			}
			if err != nil {
				return fmt.Errorf("export: init sync manager: %w", err)
			}

			mode := export.ModeFull
			var changedIDs []string
			if delta {
				mode = export.ModeDelta
				changedIDs, err = syncMgr.GetPendingUpdates(cmd.Context(), level)
				if err != nil {
					return fmt.Errorf("export: get pending updates: %w", err)
				}
				if len(changedIDs) == 0 {
					a.logger.Info("no pending changes, nothing to export")
					return nil
				}
			}

			result, err := exporter.Export(cmd.Context(), mode, level, changedIDs)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			if dedup {
				deduper := export.NewDeduplicator(exportConfig.DedupThreshold)
				entities, report := deduper.DeduplicateEntities(result.Entities)
				result.Entities = entities
				result.DedupReport = report
			}

			formatter := export.Formatter{}
			var output map[string]any
			if templateID != "" {
				templateMeta := map[string]any{"id": templateID, "version": templateVer}
				output = formatter.FormatTemplateLayered(templateMeta, result.Metadata, map[string]any{"type": "graphrag"}, string(mode), templateVer, result.Metadata["export_timestamp"].(string))
			} else {
				output = formatter.FormatLegacy(result, map[string]any{"type": "graphrag"})
			}
			if err := export.ValidateOutput(output); err != nil {
				return fmt.Errorf("export: output validation: %w", err)
			}
			if err := formatter.SaveToFile(output, out); err != nil {
				return err
			}

			if err := syncMgr.MarkSynced(communityIDsFromResult(result), mode, level); err != nil {
				return fmt.Errorf("export: mark synced: %w", err)
			}
			a.logger.Info("export written", "path", out, "pages", result.PageCount(), "entities", result.EntityCount())
			return nil
		},
	}

	cmd.Flags().IntVar(&level, "level", 0, "community level to export")
	cmd.Flags().StringVar(&out, "out", "export.json", "output file path")
	cmd.Flags().BoolVar(&delta, "delta", false, "export only communities changed since the last export")
	cmd.Flags().StringVar(&templateID, "template-id", "", "render the template-layered envelope using this template id")
	cmd.Flags().StringVar(&templateVer, "template-version", "", "template version for --template-id")
	cmd.Flags().BoolVar(&dedup, "dedup", true, "deduplicate entities before writing output")
	return cmd
}

func communityIDsFromResult(result export.Result) []string {
	ids := make([]string, 0, len(result.Pages))
	for _, p := range result.Pages {
		if id, ok := p.Metadata["community_id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

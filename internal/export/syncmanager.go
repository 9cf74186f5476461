package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// syncState is the on-disk shape .skill_sync_state.json persists, with the
// field names spec §6.5 documents: last_export_ts, community_ids,
// last_export_mode, last_export_level, export_count.
type syncState struct {
	LastExportTimestamp string   `json:"last_export_ts"`
	ExportedCommunityIDs []string `json:"community_ids"`
	LastExportMode       string   `json:"last_export_mode"`
	LastExportLevel      int      `json:"last_export_level"`
	ExportCount          int      `json:"export_count"`
}

// Status mirrors sync_manager.py's get_status() return shape.
type Status struct {
	LastExportTimestamp  string `json:"last_export_timestamp"`
	ExportedCommunityCount int  `json:"exported_community_count"`
	LastExportMode       string `json:"last_export_mode"`
	LastExportLevel      int    `json:"last_export_level"`
	ExportCount          int    `json:"export_count"`
	SyncStatePath        string `json:"sync_state_path"`
	HasPreviousExport    bool   `json:"has_previous_export"`
}

// CommunityLister is the minimal graph query surface SyncManager needs to
// discover community ids and their updated_at timestamps, narrowed from
// graphstore.Store the same way internal/dsa and internal/export's Exporter
// each declare their own minimal collaborator surface.
type CommunityLister interface {
	ListCommunityIDs(ctx context.Context, level int) ([]string, error)
	ListUpdatedCommunityIDs(ctx context.Context, level int, since time.Time) ([]string, error)
	ListPendingDeltaCommunityIDs(ctx context.Context, level int) ([]string, error)
}

// redisCache is the narrow surface SyncManager needs from a *redis.Client,
// letting tests substitute a fake without a live Redis instance.
type redisCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// SyncManager tracks which communities have already been exported, so a
// scheduled re-export can ask for only what changed (spec §4.11
// GraphRAGSkillSyncManager). State persists to a JSON file; when redis is
// non-nil it is consulted first (and kept warm) as a cache in front of that
// file, letting multiple exporter processes share sync state without
// contending on the filesystem (spec §5 "multi-process" escape hatch).
type SyncManager struct {
	path   string
	lister CommunityLister
	redis  redisCache
	state  syncState
}

// NewSyncManager builds a SyncManager backed by path, loading any existing
// state immediately (sync_manager.py's __init__ -> _load_state).
func NewSyncManager(path string, lister CommunityLister, redis redisCache) (*SyncManager, error) {
	m := &SyncManager{path: path, lister: lister, redis: redis}
	if err := m.loadState(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SyncManager) loadState() error {
	if m.redis != nil {
		if raw, err := m.redis.Get(context.Background(), redisStateKey(m.path)).Bytes(); err == nil {
			var st syncState
			if jsonErr := json.Unmarshal(raw, &st); jsonErr == nil {
				m.state = st
				return nil
			}
		}
	}

	raw, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		m.state = syncState{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("export: read sync state: %w", err)
	}
	var st syncState
	if err := json.Unmarshal(raw, &st); err != nil {
		return fmt.Errorf("export: parse sync state: %w", err)
	}
	m.state = st
	return nil
}

func redisStateKey(path string) string {
	return "graphrag-skills:sync-state:" + path
}

func (m *SyncManager) saveState() error {
	buf, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal sync state: %w", err)
	}
	if err := os.WriteFile(m.path, buf, 0o644); err != nil {
		return fmt.Errorf("export: write sync state: %w", err)
	}
	if m.redis != nil {
		// Best-effort cache warm; the file remains the source of truth so a
		// failed Set here does not fail the save.
		m.redis.Set(context.Background(), redisStateKey(m.path), buf, 24*time.Hour)
	}
	return nil
}

// LastExportTimestamp returns the RFC3339 timestamp of the last export, or
// "" if none has happened yet.
func (m *SyncManager) LastExportTimestamp() string { return m.state.LastExportTimestamp }

// ExportedCommunityIDs returns the community ids covered by the last export.
func (m *SyncManager) ExportedCommunityIDs() []string { return m.state.ExportedCommunityIDs }

// GetPendingUpdates returns the community ids at level that need exporting:
// every community id when there has been no previous export, otherwise only
// those changed since the last export (sync_manager.py get_pending_updates).
func (m *SyncManager) GetPendingUpdates(ctx context.Context, level int) ([]string, error) {
	if m.state.LastExportTimestamp == "" {
		return m.lister.ListCommunityIDs(ctx, level)
	}
	since, err := time.Parse(time.RFC3339, m.state.LastExportTimestamp)
	if err != nil {
		return m.lister.ListCommunityIDs(ctx, level)
	}
	return m.GetChangedCommunitiesSince(ctx, since, level)
}

// GetChangedCommunitiesSince returns every community id at level that was
// updated after since, has a pending delta, or is not present in the last
// export's exported-id set (sync_manager.py get_changed_communities_since).
func (m *SyncManager) GetChangedCommunitiesSince(ctx context.Context, since time.Time, level int) ([]string, error) {
	updated, err := m.lister.ListUpdatedCommunityIDs(ctx, level, since)
	if err != nil {
		return nil, err
	}
	pending, err := m.lister.ListPendingDeltaCommunityIDs(ctx, level)
	if err != nil {
		return nil, err
	}
	all, err := m.lister.ListCommunityIDs(ctx, level)
	if err != nil {
		return nil, err
	}

	exported := make(map[string]bool, len(m.state.ExportedCommunityIDs))
	for _, id := range m.state.ExportedCommunityIDs {
		exported[id] = true
	}

	changed := make(map[string]bool)
	for _, id := range updated {
		changed[id] = true
	}
	for _, id := range pending {
		changed[id] = true
	}
	for _, id := range all {
		if !exported[id] {
			changed[id] = true
		}
	}

	out := make([]string, 0, len(changed))
	for _, id := range all {
		if changed[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// MarkSynced records that communityIDs were just exported in exportMode at
// level (sync_manager.py mark_synced): a full export replaces the exported
// id set; a delta export unions into it.
func (m *SyncManager) MarkSynced(communityIDs []string, exportMode Mode, level int) error {
	if exportMode == ModeFull {
		m.state.ExportedCommunityIDs = append([]string(nil), communityIDs...)
	} else {
		seen := make(map[string]bool, len(m.state.ExportedCommunityIDs))
		merged := append([]string(nil), m.state.ExportedCommunityIDs...)
		for _, id := range merged {
			seen[id] = true
		}
		for _, id := range communityIDs {
			if !seen[id] {
				seen[id] = true
				merged = append(merged, id)
			}
		}
		m.state.ExportedCommunityIDs = merged
	}
	m.state.LastExportTimestamp = now().Format(time.RFC3339)
	m.state.LastExportMode = string(exportMode)
	m.state.LastExportLevel = level
	m.state.ExportCount++
	return m.saveState()
}

// ResetState deletes the persisted sync state file (sync_manager.py
// reset_state), returning the manager to its initial never-exported state.
func (m *SyncManager) ResetState() error {
	m.state = syncState{}
	if m.redis != nil {
		m.redis.Set(context.Background(), redisStateKey(m.path), "", -1)
	}
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("export: remove sync state: %w", err)
	}
	return nil
}

// GetStatus reports the manager's current state (sync_manager.py
// get_status).
func (m *SyncManager) GetStatus() Status {
	return Status{
		LastExportTimestamp:    m.state.LastExportTimestamp,
		ExportedCommunityCount: len(m.state.ExportedCommunityIDs),
		LastExportMode:         m.state.LastExportMode,
		LastExportLevel:        m.state.LastExportLevel,
		ExportCount:            m.state.ExportCount,
		SyncStatePath:          m.path,
		HasPreviousExport:      m.state.LastExportTimestamp != "",
	}
}

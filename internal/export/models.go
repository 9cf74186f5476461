// Package export implements the community→page exporter, its entity/page
// deduplicator, the two output-shape formatters, and the sync-state
// tracker (spec.md §4.11), grounded on
// original_source/graphrag_agent/integrations/skill_seekers/{exporter,
// deduplicator,formatter,sync_manager,config}.py.
package export

import "time"

// Mode selects a full export of every community at a level, or a delta
// export of only the communities named by ChangedIDs (spec §4.11).
type Mode string

const (
	ModeFull  Mode = "full"
	ModeDelta Mode = "delta"
)

// DefaultChunkLimit bounds an unfiltered chunk export (spec §4.11, §9 Open
// Questions: "a safety cap chosen for the underlying store; expose as
// configurable" — here as Config.MaxChunks, this constant is only the
// fallback when MaxChunks is left at zero).
const DefaultChunkLimit = 1000

// Config mirrors the original's ExportConfig dataclass (config.py).
type Config struct {
	DefaultLevel          int
	IncludeChunks         bool
	DedupThreshold        float64
	MaxCommunities        int // 0 = unlimited
	MaxChunks             int // 0 = use DefaultChunkLimit
	IncludeRelationships  bool
	SummaryField          string // "full_content" or "summary"
	IncludeDeltaSummaries bool
	SyncStatePath         string
}

// DefaultConfig returns config.py's documented field defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultLevel:          0,
		IncludeChunks:         false,
		DedupThreshold:        0.85,
		MaxCommunities:        0,
		MaxChunks:             0,
		IncludeRelationships:  true,
		SummaryField:          "full_content",
		IncludeDeltaSummaries: true,
		SyncStatePath:         ".skill_sync_state.json",
	}
}

func (c *Config) chunkLimit() int {
	if c.MaxChunks > 0 {
		return c.MaxChunks
	}
	return DefaultChunkLimit
}

// Page is one exported unit (a community summary or a reference chunk),
// shaped per spec §4.11/§6.4.
type Page struct {
	Title       string
	URL         string
	Content     string
	ContentType string
	Metadata    map[string]any
	IsDuplicate bool
	DuplicateOf string
}

// Entity is one exported entity, with its one-hop relationships inlined as
// "{type}:{target_id}" strings (spec §4.11).
type Entity struct {
	EntityID      string
	Name          string
	Type          string
	Description   string
	Relationships []string
	MergedFrom    []string
}

// DedupReport carries the deduplicator's statistics (spec §4.11, ported
// verbatim from deduplicator.py's _build_report/get_report shape).
type DedupReport struct {
	OriginalEntityCount   int
	MergedEntityCount     int
	EntitiesRemoved       int
	MergeGroups           [][]string
	DuplicateContentCount int
}

// Result is the outcome of one Export call (spec §4.11 ExportResult).
type Result struct {
	Pages       []Page
	Entities    []Entity
	Metadata    map[string]any
	DedupReport DedupReport
}

func (r Result) PageCount() int   { return len(r.Pages) }
func (r Result) EntityCount() int { return len(r.Entities) }

// community is the exporter's internal representation of one queried
// __Community__ node, before it is turned into a Page.
type community struct {
	ID               string
	Title            string
	Level            int
	Weight           float64
	Content          string
	HasPendingDeltas bool
	DeltaCount       int
}

// chunk is the exporter's internal representation of one queried
// __Chunk__ node.
type chunk struct {
	ID       string
	Content  string
	FileName string
	Page     int
}

// now is overridable in tests that need deterministic timestamps; the
// production default is time.Now (spec.md forbids Date.now()-style calls
// only inside workflow scripts, not in the module under build).
var now = func() time.Time { return time.Now().UTC() }

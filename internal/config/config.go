// Package config loads this module's configuration from YAML files and
// environment variables, replacing the original Python implementation's
// scattered module-level globals (DSA_ENABLED, the settings module's
// threshold constants) with a single struct threaded explicitly through
// constructors (spec.md §9 Design Notes: "avoid process-wide singletons").
// Loading itself follows the teacher pack's brokle-ai-brokle
// internal/config/config.go: Viper layered over godotenv-populated
// environment variables, each DefaultConfig()-style Go struct tagged with
// `mapstructure` for YAML/env binding.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// GraphStoreConfig points at the Dgraph Alpha gRPC endpoint backing
// internal/graphstore.
type GraphStoreConfig struct {
	Address string `mapstructure:"address"`
}

// DeltaCacheConfig points at the local Badger-backed delta cache
// (internal/dsa.DeltaCache).
type DeltaCacheConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig configures the optional export-side sync-state cache
// (internal/export's Redis-backed cache, spec §5 "multi-process" escape
// hatch).
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	DB      int    `mapstructure:"db"`
}

// TemplateRegistryConfig configures the filesystem template registry and
// its derived SQLite index.
type TemplateRegistryConfig struct {
	Root      string `mapstructure:"root"`
	IndexPath string `mapstructure:"index_path"`
}

// AdapterConfig mirrors temporalkg.AdapterConfig for file/env loading.
type AdapterConfig struct {
	EntThreshold      float64 `mapstructure:"ent_threshold"`
	RelThreshold      float64 `mapstructure:"rel_threshold"`
	EntityNameWeight  float64 `mapstructure:"entity_name_weight"`
	EntityLabelWeight float64 `mapstructure:"entity_label_weight"`
	MaxWorkers        int     `mapstructure:"max_workers"`
}

// WriterConfig mirrors temporalkg.WriterConfig.
type WriterConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

// DSAConfig gates Delta-Summary Accumulation and compaction behind explicit
// flags, replacing the original's DSA_ENABLED/DSA_COMPACTION_ENABLED
// globals (spec.md §9).
type DSAConfig struct {
	Enabled             bool `mapstructure:"enabled"`
	CompactionEnabled   bool `mapstructure:"compaction_enabled"`
	DeltaCountThreshold int  `mapstructure:"delta_count_threshold"`
	DeltaTokenThreshold int  `mapstructure:"delta_token_threshold"`
	CleanupAfterDays    int  `mapstructure:"cleanup_after_days"`
}

// ExportConfig mirrors export.Config for file/env loading.
type ExportConfig struct {
	DefaultLevel           int     `mapstructure:"default_level"`
	IncludeChunks          bool    `mapstructure:"include_chunks"`
	DedupThreshold         float64 `mapstructure:"dedup_threshold"`
	MaxCommunities         int     `mapstructure:"max_communities"`
	MaxChunks              int     `mapstructure:"max_chunks"`
	IncludeRelationships   bool    `mapstructure:"include_relationships"`
	SummaryField           string  `mapstructure:"summary_field"`
	IncludeDeltaSummaries  bool    `mapstructure:"include_delta_summaries"`
	SyncStatePath          string  `mapstructure:"sync_state_path"`
}

// LoggingConfig selects the telemetry package's handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" (tint) or "json"
}

// LLMConfig mirrors llm.Config (the Ollama-backed collaborator).
type LLMConfig struct {
	OllamaURL   string        `mapstructure:"ollama_url"`
	Model       string        `mapstructure:"model"`
	ContextSize int           `mapstructure:"context_size"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Config is the complete application configuration, passed explicitly to
// every constructor that needs it rather than read from package globals.
type Config struct {
	GraphStore GraphStoreConfig       `mapstructure:"graphstore"`
	DeltaCache DeltaCacheConfig       `mapstructure:"delta_cache"`
	Redis      RedisConfig            `mapstructure:"redis"`
	Template   TemplateRegistryConfig `mapstructure:"template"`
	Adapter    AdapterConfig          `mapstructure:"adapter"`
	Writer     WriterConfig           `mapstructure:"writer"`
	DSA        DSAConfig              `mapstructure:"dsa"`
	Export     ExportConfig           `mapstructure:"export"`
	Logging    LoggingConfig          `mapstructure:"logging"`
	LLM        LLMConfig              `mapstructure:"llm"`
}

// Default builds a Config populated with every component's documented
// spec.md defaults, matching the teacher's DefaultConfig()-factory idiom
// (internal/memory/interfaces.go, internal/inference/client.go) layered
// under Viper in Load.
func Default() *Config {
	return &Config{
		GraphStore: GraphStoreConfig{Address: "localhost:9080"},
		DeltaCache: DeltaCacheConfig{Path: "./data/delta-cache"},
		Redis:      RedisConfig{Enabled: false, Addr: "localhost:6379", DB: 0},
		Template: TemplateRegistryConfig{
			Root:      "./data/templates",
			IndexPath: "./data/templates/index.db",
		},
		Adapter: AdapterConfig{
			EntThreshold: 0.75, RelThreshold: 0.75,
			EntityNameWeight: 0.7, EntityLabelWeight: 0.3, MaxWorkers: 4,
		},
		Writer: WriterConfig{BatchSize: 50},
		DSA: DSAConfig{
			Enabled: true, CompactionEnabled: true,
			DeltaCountThreshold: 5, DeltaTokenThreshold: 1000, CleanupAfterDays: 30,
		},
		Export: ExportConfig{
			DefaultLevel: 0, IncludeChunks: false, DedupThreshold: 0.85,
			MaxCommunities: 0, MaxChunks: 1000, IncludeRelationships: true,
			SummaryField: "full_content", IncludeDeltaSummaries: true,
			SyncStatePath: ".skill_sync_state.json",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		LLM: LLMConfig{
			OllamaURL: "http://localhost:11434", Model: "qwen2.5-coder:7b",
			ContextSize: 32768, Temperature: 0.3, Timeout: 2 * time.Minute,
		},
	}
}

// Load reads an optional .env file (godotenv), an optional config.yaml from
// ./configs, ".", or /etc/graphrag-skills, then overlays environment
// variables (GRAPHRAG_SKILLS_-prefixed, "." replaced with "_") on top of
// Default(), matching brokle-ai-brokle's Load() precedence order.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/graphrag-skills")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	v.SetEnvPrefix("GRAPHRAG_SKILLS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

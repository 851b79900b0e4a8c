// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Session   SessionConfig   `mapstructure:"session"`
	Source    SourceConfig    `mapstructure:"source"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	DB        DBConfig        `mapstructure:"db"`
	Report    ReportConfig    `mapstructure:"report"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// SessionConfig governs one harvest run.
type SessionConfig struct {
	Keywords           []string `mapstructure:"keywords"`
	LedgerFlushEvery   int      `mapstructure:"ledger_flush_every"`
	ShutdownTimeoutSec int      `mapstructure:"shutdown_timeout_seconds"`
	PostURLTemplate    string   `mapstructure:"post_url_template"`
	JobScoreThreshold  int      `mapstructure:"job_score_threshold"`
}

// SourceConfig selects and configures the raw item source.
type SourceConfig struct {
	// Kind is one of "feed" (headless browser), "static" (HTTP) or
	// "memory" (scripted, dry runs only).
	Kind           string   `mapstructure:"kind"`
	SearchURL      string   `mapstructure:"search_url"`
	SeedURLs       []string `mapstructure:"seed_urls"`
	UserAgent      string   `mapstructure:"user_agent"`
	NavTimeoutSec  int      `mapstructure:"nav_timeout_seconds"`
	ScrollPasses   int      `mapstructure:"scroll_passes"`
	MaxItemsPerRun int      `mapstructure:"max_items_per_run"`
}

// LedgerConfig sets where processed-identifier files live.
type LedgerConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// ExtractorConfig tunes contact extraction filtering.
type ExtractorConfig struct {
	// OperatorEmail is excluded from extraction results (self-match).
	OperatorEmail string `mapstructure:"operator_email"`
	// ExtraPersonalDomains extends the built-in free-provider blocklist.
	ExtraPersonalDomains []string `mapstructure:"extra_personal_domains"`
}

// BackendConfig controls the contact bulk-upsert backend.
type BackendConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIToken       string `mapstructure:"api_token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	JobSource      string `mapstructure:"job_source"`
}

// RetryConfig controls the fixed-delay retry orchestrator.
type RetryConfig struct {
	Attempts     int `mapstructure:"attempts"`
	DelaySeconds int `mapstructure:"delay_seconds"`
}

// ArchiveConfig controls raw item archival.
type ArchiveConfig struct {
	// Kind is one of "none", "local" or "gcs".
	Kind      string `mapstructure:"kind"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls access to the relational metadata store.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ReportConfig holds metadata for run-summary publication.
type ReportConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ServerConfig controls the optional status HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("session.ledger_flush_every", 10)
	v.SetDefault("session.shutdown_timeout_seconds", 30)
	v.SetDefault("session.post_url_template", "https://www.linkedin.com/feed/update/%s/")
	v.SetDefault("session.job_score_threshold", 40)
	v.SetDefault("source.kind", "memory")
	v.SetDefault("source.user_agent", "leadharvest/0.1")
	v.SetDefault("source.nav_timeout_seconds", 25)
	v.SetDefault("source.scroll_passes", 4)
	v.SetDefault("source.max_items_per_run", 200)
	v.SetDefault("ledger.base_dir", "data/processed_posts")
	v.SetDefault("backend.timeout_seconds", 20)
	v.SetDefault("backend.job_source", "feed_harvest")
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay_seconds", 5)
	v.SetDefault("archive.kind", "none")
	v.SetDefault("archive.base_dir", "data/raw_posts")
	v.SetDefault("archive.prefix", "posts")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Source.Kind {
	case "feed", "static", "memory":
	default:
		return fmt.Errorf("source.kind must be feed, static or memory")
	}
	if c.Source.Kind == "feed" && c.Source.SearchURL == "" {
		return fmt.Errorf("source.search_url must be set for the feed source")
	}
	if c.Source.Kind == "static" && len(c.Source.SeedURLs) == 0 {
		return fmt.Errorf("source.seed_urls must be set for the static source")
	}
	if c.Ledger.BaseDir == "" {
		return fmt.Errorf("ledger.base_dir must be set")
	}
	if c.Retry.Attempts <= 0 {
		return fmt.Errorf("retry.attempts must be > 0")
	}
	if c.Session.LedgerFlushEvery <= 0 {
		return fmt.Errorf("session.ledger_flush_every must be > 0")
	}
	if c.Session.JobScoreThreshold <= 0 {
		return fmt.Errorf("session.job_score_threshold must be > 0")
	}
	switch c.Archive.Kind {
	case "none", "local", "gcs":
	default:
		return fmt.Errorf("archive.kind must be none, local or gcs")
	}
	if c.Archive.Kind == "gcs" && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket must be set when archive.kind is gcs")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	return nil
}

// RetryDelay converts the configured delay into a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Retry.DelaySeconds) * time.Second
}

// BackendTimeout converts the backend timeout into a duration.
func (c Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds the final flush/sync on exit.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Session.ShutdownTimeoutSec) * time.Second
}

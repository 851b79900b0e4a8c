package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
session:
  keywords: ["golang hiring", "platform engineer"]
  ledger_flush_every: 25
  shutdown_timeout_seconds: 10
  job_score_threshold: 55
source:
  kind: static
  seed_urls: ["https://example.com/posts/1"]
  user_agent: harvest-agent
ledger:
  base_dir: /tmp/ledger
extractor:
  operator_email: me@talentwire.io
backend:
  base_url: https://backend.example.com
  api_token: secret
  timeout_seconds: 9
  job_source: linkedin_harvest
retry:
  attempts: 5
  delay_seconds: 2
archive:
  kind: local
  base_dir: /tmp/raw
db:
  dsn: postgres://localhost/leads
server:
  enabled: true
  port: 9090
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Session.Keywords) != 2 || cfg.Session.Keywords[0] != "golang hiring" {
		t.Fatalf("expected keyword overrides, got %v", cfg.Session.Keywords)
	}
	if cfg.Session.LedgerFlushEvery != 25 {
		t.Fatalf("expected flush interval 25, got %d", cfg.Session.LedgerFlushEvery)
	}
	if cfg.Session.JobScoreThreshold != 55 {
		t.Fatalf("expected threshold 55, got %d", cfg.Session.JobScoreThreshold)
	}
	if cfg.Source.Kind != "static" || cfg.Source.UserAgent != "harvest-agent" {
		t.Fatalf("expected source overrides to apply")
	}
	if cfg.Extractor.OperatorEmail != "me@talentwire.io" {
		t.Fatalf("expected operator email override")
	}
	if cfg.Backend.APIToken != "secret" || cfg.Backend.TimeoutSeconds != 9 {
		t.Fatalf("expected backend overrides to apply")
	}
	if cfg.Retry.Attempts != 5 {
		t.Fatalf("expected retry attempts 5, got %d", cfg.Retry.Attempts)
	}
	if cfg.RetryDelay() != 2*time.Second {
		t.Fatalf("expected 2s retry delay, got %v", cfg.RetryDelay())
	}
	if cfg.Archive.Kind != "local" {
		t.Fatalf("expected local archive, got %s", cfg.Archive.Kind)
	}
	if !cfg.Server.Enabled || cfg.Server.Port != 9090 {
		t.Fatalf("expected server enabled on 9090")
	}
	if cfg.Logging.Development {
		t.Fatalf("expected production logging")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source.Kind != "memory" {
		t.Fatalf("expected memory source default, got %s", cfg.Source.Kind)
	}
	if cfg.Retry.Attempts != 3 || cfg.Retry.DelaySeconds != 5 {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Retry)
	}
	if cfg.Session.JobScoreThreshold != 40 {
		t.Fatalf("expected default threshold 40, got %d", cfg.Session.JobScoreThreshold)
	}
	if cfg.Ledger.BaseDir != "data/processed_posts" {
		t.Fatalf("unexpected ledger default: %s", cfg.Ledger.BaseDir)
	}
	if !strings.Contains(cfg.Session.PostURLTemplate, "%s") {
		t.Fatalf("post URL template must contain a placeholder")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		return cfg
	}

	t.Run("UnknownSourceKind", func(t *testing.T) {
		cfg := base()
		cfg.Source.Kind = "carrier-pigeon"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("FeedWithoutSearchURL", func(t *testing.T) {
		cfg := base()
		cfg.Source.Kind = "feed"
		cfg.Source.SearchURL = ""
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("ZeroRetryAttempts", func(t *testing.T) {
		cfg := base()
		cfg.Retry.Attempts = 0
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("GCSWithoutBucket", func(t *testing.T) {
		cfg := base()
		cfg.Archive.Kind = "gcs"
		cfg.Archive.GCSBucket = ""
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected validation error")
		}
	})
}

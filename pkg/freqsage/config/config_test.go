package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/freqsage/pkg/freqsage/internalerr"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	rc := cfg.RankConfig()
	if rc.PenaltyExponent != 0.5 || rc.MinWords != 3 {
		t.Errorf("unexpected ranking defaults %+v", rc)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "freqsage.yaml")
	content := `storage:
  dataDir: /var/lib/freqsage
  defaultLanguage: Japanese
ranking:
  minWords: 4
ingest:
  segmenter: kagome
  workers: 2
metrics:
  textfile: /tmp/freqsage.prom
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.DataDir != "/var/lib/freqsage" || cfg.Storage.DefaultLanguage != "Japanese" {
		t.Errorf("storage not loaded: %+v", cfg.Storage)
	}
	if cfg.Ranking.MinWords != 4 {
		t.Errorf("minWords = %d, want 4", cfg.Ranking.MinWords)
	}
	// Unset keys keep their defaults
	if cfg.Ranking.PenaltyExponent != 0.5 || !cfg.Ingest.Lowercase {
		t.Errorf("defaults lost: %+v %+v", cfg.Ranking, cfg.Ingest)
	}
	if cfg.Ingest.Segmenter != "kagome" || cfg.Metrics.Textfile != "/tmp/freqsage.prom" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if got := cfg.DatabasePath("Japanese"); got != filepath.Join("/var/lib/freqsage", "Japanese") {
		t.Errorf("DatabasePath = %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FREQSAGE_DATA_DIR", "/srv/freqsage")
	t.Setenv("FREQSAGE_DEFAULT_LANGUAGE", "German")
	t.Setenv("FREQSAGE_LOG_LEVEL", "debug")
	t.Setenv("FREQSAGE_WORKERS", "8")
	t.Setenv("FREQSAGE_SEGMENTER", "kagome")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.DataDir != "/srv/freqsage" || cfg.Storage.DefaultLanguage != "German" {
		t.Errorf("storage overrides not applied: %+v", cfg.Storage)
	}
	if cfg.Logging.Level != "debug" || cfg.Ingest.Workers != 8 || cfg.Ingest.Segmenter != "kagome" {
		t.Errorf("overrides not applied: %+v %+v", cfg.Logging, cfg.Ingest)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero min words", func(c *Config) { c.Ranking.MinWords = 0 }},
		{"negative exponent", func(c *Config) { c.Ranking.PenaltyExponent = -1 }},
		{"unknown segmenter", func(c *Config) { c.Ingest.Segmenter = "mecab" }},
		{"zero workers", func(c *Config) { c.Ingest.Workers = 0 }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"empty data dir", func(c *Config) { c.Storage.DataDir = "" }},
		{"language with separator", func(c *Config) { c.Storage.DefaultLanguage = "../etc" }},
		{"language with query", func(c *Config) { c.Storage.DefaultLanguage = "en?mode=ro" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

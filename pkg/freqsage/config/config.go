// Package config loads freqsage settings from a YAML file with FREQSAGE_*
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/freqsage/pkg/freqsage/internalerr"
	"github.com/cognicore/freqsage/pkg/freqsage/rank"
)

// Config is the top-level configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Ranking RankingConfig `yaml:"ranking"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// StorageConfig says where language databases live. Each language is one
// file named after it inside DataDir.
type StorageConfig struct {
	DataDir         string `yaml:"dataDir"`
	DefaultLanguage string `yaml:"defaultLanguage"`
}

// RankingConfig holds the easiness scoring constants.
type RankingConfig struct {
	PenaltyExponent float64 `yaml:"penaltyExponent"`
	MinWords        int     `yaml:"minWords"`
}

// IngestConfig controls text analysis.
type IngestConfig struct {
	Segmenter string `yaml:"segmenter"`
	Lowercase bool   `yaml:"lowercase"`
	Workers   int    `yaml:"workers"`
}

// LoggingConfig controls log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig names the Prometheus textfile written after each command.
// Empty disables it.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Load reads the YAML file at path (if any) over the defaults and applies
// environment overrides. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns the reference configuration.
func Default() *Config {
	r := rank.DefaultConfig()
	return &Config{
		Storage: StorageConfig{
			DataDir:         "data",
			DefaultLanguage: "English",
		},
		Ranking: RankingConfig{
			PenaltyExponent: r.PenaltyExponent,
			MinWords:        r.MinWords,
		},
		Ingest: IngestConfig{
			Segmenter: "whitespace",
			Lowercase: true,
			Workers:   4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FREQSAGE_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("FREQSAGE_DEFAULT_LANGUAGE"); v != "" {
		cfg.Storage.DefaultLanguage = v
	}
	if v := os.Getenv("FREQSAGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FREQSAGE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("FREQSAGE_SEGMENTER"); v != "" {
		cfg.Ingest.Segmenter = v
	}
	if v := os.Getenv("FREQSAGE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.Workers = n
		}
	}
	if v := os.Getenv("FREQSAGE_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Textfile = v
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.Storage.DataDir == "" {
		return invalid("storage.dataDir is empty")
	}
	if err := ValidateLanguage(c.Storage.DefaultLanguage); err != nil {
		return err
	}
	if c.Ranking.MinWords < 1 {
		return invalid("ranking.minWords must be positive, got %d", c.Ranking.MinWords)
	}
	if c.Ranking.PenaltyExponent < 0 {
		return invalid("ranking.penaltyExponent must not be negative, got %g", c.Ranking.PenaltyExponent)
	}
	switch c.Ingest.Segmenter {
	case "whitespace", "kagome":
	default:
		return invalid("unknown ingest.segmenter %q", c.Ingest.Segmenter)
	}
	if c.Ingest.Workers < 1 {
		return invalid("ingest.workers must be positive, got %d", c.Ingest.Workers)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return invalid("unknown logging.format %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("unknown logging.level %q", c.Logging.Level)
	}
	return nil
}

// ValidateLanguage checks that lang can be used as a database file name.
// Separators and the characters SQLite reads as URI syntax are refused, so
// every accepted name maps to its own file.
func ValidateLanguage(lang string) error {
	if lang == "" || lang == "." || lang == ".." || strings.ContainsAny(lang, "/\\?#:\x00") {
		return fmt.Errorf("%w: invalid language name %q", internalerr.ErrInvalidConfig, lang)
	}
	return nil
}

// RankConfig converts the ranking section for the scorer.
func (c *Config) RankConfig() rank.Config {
	return rank.Config{
		PenaltyExponent: c.Ranking.PenaltyExponent,
		MinWords:        c.Ranking.MinWords,
	}
}

// DatabasePath returns the store file of a language.
func (c *Config) DatabasePath(lang string) string {
	return filepath.Join(c.Storage.DataDir, lang)
}

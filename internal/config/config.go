// Package config provides configuration loading for caselink.
//
// Configuration is layered: hardcoded defaults, then an optional YAML
// file, then CASELINK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete caselink configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Storage  StorageConfig  `koanf:"storage"`
	Importer ImporterConfig `koanf:"importer"`
	Matcher  MatcherConfig  `koanf:"matcher"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds zap logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// StorageConfig selects the case store backend.
type StorageConfig struct {
	// Backend is "memory" or "postgres". Memory is the default and
	// needs no further settings.
	Backend string `koanf:"backend"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN Secret `koanf:"postgres_dsn"`

	// RedisAddr enables the Redis processed-message set. Empty means
	// the case store itself tracks processed messages.
	RedisAddr string `koanf:"redis_addr"`
}

// ImporterConfig holds the drop-directory watcher configuration.
type ImporterConfig struct {
	// WatchDir is the directory watched for Outlook export files.
	// Empty disables the watcher.
	WatchDir string `koanf:"watch_dir"`

	// Debounce is how long a file must stay quiet before it is
	// imported; export writers flush in bursts.
	Debounce Duration `koanf:"debounce"`
}

// MatcherConfig holds the matching tunables.
type MatcherConfig struct {
	AutoAssignThreshold        float64 `koanf:"auto_assign_threshold"`
	RecipientDamping           float64 `koanf:"recipient_damping"`
	SubjectSimilarityThreshold float64 `koanf:"subject_similarity_threshold"`
	MinPartialDigits           int     `koanf:"min_partial_digits"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8480
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}

	if cfg.Importer.Debounce == 0 {
		cfg.Importer.Debounce = Duration(2 * time.Second)
	}

	if cfg.Matcher.AutoAssignThreshold == 0 {
		cfg.Matcher.AutoAssignThreshold = 0.75
	}
	if cfg.Matcher.RecipientDamping == 0 {
		cfg.Matcher.RecipientDamping = 0.9
	}
	if cfg.Matcher.SubjectSimilarityThreshold == 0 {
		cfg.Matcher.SubjectSimilarityThreshold = 0.6
	}
	if cfg.Matcher.MinPartialDigits == 0 {
		cfg.Matcher.MinPartialDigits = 6
	}
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Logging format or level is unknown
//   - Storage backend is unknown, or postgres is selected without a DSN
//   - Matcher thresholds are outside [0, 1]
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q (must be json or console)", c.Logging.Format)
	}

	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if !c.Storage.PostgresDSN.IsSet() {
			return errors.New("postgres backend requires storage.postgres_dsn")
		}
	default:
		return fmt.Errorf("invalid storage backend: %q (must be memory or postgres)", c.Storage.Backend)
	}

	if c.Matcher.AutoAssignThreshold < 0 || c.Matcher.AutoAssignThreshold > 1 {
		return fmt.Errorf("auto_assign_threshold out of range: %v", c.Matcher.AutoAssignThreshold)
	}
	if c.Matcher.RecipientDamping < 0 || c.Matcher.RecipientDamping > 1 {
		return fmt.Errorf("recipient_damping out of range: %v", c.Matcher.RecipientDamping)
	}
	if c.Matcher.SubjectSimilarityThreshold < 0 || c.Matcher.SubjectSimilarityThreshold > 1 {
		return fmt.Errorf("subject_similarity_threshold out of range: %v", c.Matcher.SubjectSimilarityThreshold)
	}
	if c.Matcher.MinPartialDigits < 1 {
		return errors.New("min_partial_digits must be positive")
	}

	return nil
}

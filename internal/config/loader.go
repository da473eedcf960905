package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces caselink's environment variables.
const envPrefix = "CASELINK_"

// Load loads configuration from an optional YAML file, then overrides
// with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CASELINK_SERVER_PORT, CASELINK_STORAGE_BACKEND, ...)
//  2. YAML config file (the configPath argument; missing file is fine)
//  3. Hardcoded defaults
//
// Environment variable mapping: the CASELINK_ prefix is stripped, the
// first underscore separates the section from the field, the rest stays
// verbatim:
//
//	CASELINK_SERVER_SHUTDOWN_TIMEOUT -> server.shutdown_timeout
//	CASELINK_STORAGE_POSTGRES_DSN    -> storage.postgres_dsn
//	CASELINK_MATCHER_AUTO_ASSIGN_THRESHOLD -> matcher.auto_assign_threshold
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file %s: %w", configPath, err)
			}
		} else if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envToKey maps CASELINK_SECTION_FIELD_NAME to section.field_name. The
// first underscore after the prefix is the section separator; the rest
// of the underscores belong to the field name.
func envToKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

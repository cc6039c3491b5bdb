// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/planvault/config.yaml",
	"/etc/planvault/config.yml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "PLANVAULT_CONFIG"

// Default returns a Config with all default values. Defaults are applied
// first, then overridden by the config file and environment variables.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              3001,
			ShutdownTimeout:   15 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 300,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Store: StoreConfig{
			DataDir:          "/data",
			DataFileName:     "application-data.json",
			QueueSize:        256,
			MaxWriteAttempts: 3,
			RetryBackoff:     200 * time.Millisecond,
			WriteGrace:       time.Second,
		},
		Backup: BackupConfig{
			RollingInterval: 5 * time.Minute,
			MaxRolling:      25,
			MaxDaily:        30,
			PreferredHour:   2,
		},
		Watcher: WatcherConfig{
			Enabled:  true,
			Debounce: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from layered sources:
//  1. Defaults from Default()
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file. The env override wins; default
// paths are tried in order.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists config paths that may arrive as comma-separated
// strings from environment variables.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values into slices for
// the paths listed in sliceConfigPaths. Values already loaded as slices from
// YAML are left untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// legacyEnvMappings maps pre-rewrite environment variable names to config
// paths so existing deployments keep working.
var legacyEnvMappings = map[string]string{
	"http_port":    "server.port",
	"http_host":    "server.host",
	"cors_origins": "server.cors_origins",
	"data_dir":     "store.data_dir",
	"data_file":    "store.data_file_name",
	"log_level":    "logging.level",
	"log_format":   "logging.format",
}

// envSections are the recognized top-level sections for PLANVAULT_ variables.
var envSections = []string{"server", "store", "backup", "watcher", "logging"}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - PLANVAULT_SERVER_PORT        -> server.port
//   - PLANVAULT_BACKUP_MAX_ROLLING -> backup.max_rolling
//   - HTTP_PORT                    -> server.port (legacy alias)
//   - DATA_DIR                     -> store.data_dir (legacy alias)
//
// Unrecognized variables map to "" and are ignored, so unrelated environment
// noise never leaks into the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	if path, ok := legacyEnvMappings[key]; ok {
		return path
	}

	key, found := strings.CutPrefix(key, "planvault_")
	if !found {
		return ""
	}

	if path, ok := legacyEnvMappings[key]; ok {
		return path
	}

	for _, section := range envSections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok && rest != "" {
			return section + "." + rest
		}
	}

	return ""
}

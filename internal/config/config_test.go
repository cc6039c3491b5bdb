// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Server.Port != 3001 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Backup.RollingInterval != 5*time.Minute {
		t.Errorf("rolling interval = %s", cfg.Backup.RollingInterval)
	}
	if cfg.Backup.MaxRolling != 25 || cfg.Backup.MaxDaily != 30 {
		t.Errorf("retention = %d/%d", cfg.Backup.MaxRolling, cfg.Backup.MaxDaily)
	}
	if cfg.Watcher.Debounce != 500*time.Millisecond {
		t.Errorf("debounce = %s", cfg.Watcher.Debounce)
	}
	// The daily scheduler fires at 02:00 local, same as the backup manager
	// default.
	if cfg.Backup.PreferredHour != 2 {
		t.Errorf("preferred hour = %d, want 2", cfg.Backup.PreferredHour)
	}
}

func TestStoreConfigDataFile(t *testing.T) {
	s := StoreConfig{DataDir: "/data", DataFileName: "application-data.json"}
	want := filepath.Join("/data", "application-data.json")
	if got := s.DataFile(); got != want {
		t.Errorf("DataFile = %q, want %q", got, want)
	}
}

func TestServerConfigAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr = %q", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"empty data dir", func(c *Config) { c.Store.DataDir = "" }},
		{"path in file name", func(c *Config) { c.Store.DataFileName = "sub/data.json" }},
		{"zero attempts", func(c *Config) { c.Store.MaxWriteAttempts = 0 }},
		{"zero retention", func(c *Config) { c.Backup.MaxRolling = 0 }},
		{"bad hour", func(c *Config) { c.Backup.PreferredHour = 24 }},
		{"zero debounce", func(c *Config) { c.Watcher.Debounce = 0 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		path string
	}{
		{"PLANVAULT_SERVER_PORT", "server.port"},
		{"PLANVAULT_SERVER_CORS_ORIGINS", "server.cors_origins"},
		{"PLANVAULT_STORE_DATA_DIR", "store.data_dir"},
		{"PLANVAULT_BACKUP_MAX_ROLLING", "backup.max_rolling"},
		{"PLANVAULT_WATCHER_DEBOUNCE", "watcher.debounce"},
		{"PLANVAULT_LOGGING_LEVEL", "logging.level"},
		{"HTTP_PORT", "server.port"},
		{"DATA_DIR", "store.data_dir"},
		{"LOG_LEVEL", "logging.level"},
		{"PLANVAULT_HTTP_PORT", "server.port"},
		{"PATH", ""},
		{"HOME", ""},
		{"PLANVAULT_", ""},
	}

	for _, tc := range tests {
		if got := envTransformFunc(tc.env); got != tc.path {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tc.env, got, tc.path)
		}
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("PLANVAULT_SERVER_PORT", "9090")
	t.Setenv("PLANVAULT_STORE_DATA_DIR", t.TempDir())
	t.Setenv("PLANVAULT_LOGGING_LEVEL", "debug")
	t.Setenv("PLANVAULT_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != "https://a.example" {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadLegacyAliases(t *testing.T) {
	t.Setenv("HTTP_PORT", "4000")
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("port = %d, want 4000", cfg.Server.Port)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 5555\nbackup:\n  max_rolling: 10\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 5555 {
		t.Errorf("port = %d, want 5555", cfg.Server.Port)
	}
	if cfg.Backup.MaxRolling != 10 {
		t.Errorf("max rolling = %d, want 10", cfg.Backup.MaxRolling)
	}
	// Untouched sections keep defaults.
	if cfg.Backup.MaxDaily != 30 {
		t.Errorf("max daily = %d, want 30", cfg.Backup.MaxDaily)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 5555\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("PLANVAULT_SERVER_PORT", "6666")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 6666 {
		t.Errorf("port = %d, want 6666", cfg.Server.Port)
	}
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	t.Setenv("PLANVAULT_SERVER_PORT", "70000")

	if _, err := Load(); err == nil {
		t.Error("expected validation error for out-of-range port")
	}
}

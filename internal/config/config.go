// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

// Package config loads server configuration from layered sources using
// Koanf v2: built-in defaults, then an optional YAML file, then environment
// variables. Precedence is ENV > file > defaults.
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config is the root configuration for the server.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Store   StoreConfig   `koanf:"store"`
	Backup  BackupConfig  `koanf:"backup"`
	Watcher WatcherConfig `koanf:"watcher"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed browser origins. The WebSocket upgrade
	// check uses the same list.
	CORSOrigins []string `koanf:"cors_origins"`

	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig holds document store settings.
type StoreConfig struct {
	// DataDir is the directory holding the data file and backup
	// subdirectories.
	DataDir string `koanf:"data_dir"`

	// DataFileName is the name of the JSON document inside DataDir.
	DataFileName string `koanf:"data_file_name"`

	QueueSize        int           `koanf:"queue_size"`
	MaxWriteAttempts int           `koanf:"max_write_attempts"`
	RetryBackoff     time.Duration `koanf:"retry_backoff"`

	// WriteGrace is how long after an own write the file watcher keeps
	// treating change events as self-inflicted.
	WriteGrace time.Duration `koanf:"write_grace"`
}

// DataFile returns the full path of the JSON document.
func (s StoreConfig) DataFile() string {
	return filepath.Join(s.DataDir, s.DataFileName)
}

// BackupConfig holds rolling and daily backup settings.
type BackupConfig struct {
	// RollingInterval is the minimum spacing between throttled rolling
	// backups.
	RollingInterval time.Duration `koanf:"rolling_interval"`

	MaxRolling int `koanf:"max_rolling"`
	MaxDaily   int `koanf:"max_daily"`

	// PreferredHour is the local hour at which the daily scheduler fires.
	PreferredHour int `koanf:"preferred_hour"`
}

// WatcherConfig holds external-change detection settings.
type WatcherConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Debounce time.Duration `koanf:"debounce"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Store.DataDir == "" {
		return fmt.Errorf("store.data_dir must not be empty")
	}
	if c.Store.DataFileName == "" || c.Store.DataFileName != filepath.Base(c.Store.DataFileName) {
		return fmt.Errorf("store.data_file_name must be a bare file name, got %q", c.Store.DataFileName)
	}
	if c.Store.MaxWriteAttempts < 1 {
		return fmt.Errorf("store.max_write_attempts must be at least 1, got %d", c.Store.MaxWriteAttempts)
	}
	if c.Backup.MaxRolling < 1 || c.Backup.MaxDaily < 1 {
		return fmt.Errorf("backup retention must keep at least 1 file")
	}
	if c.Backup.PreferredHour < 0 || c.Backup.PreferredHour > 23 {
		return fmt.Errorf("backup.preferred_hour must be between 0 and 23, got %d", c.Backup.PreferredHour)
	}
	if c.Watcher.Debounce <= 0 {
		return fmt.Errorf("watcher.debounce must be positive, got %s", c.Watcher.Debounce)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

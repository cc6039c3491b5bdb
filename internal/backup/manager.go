// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

// Package backup maintains two bounded snapshot histories of the canonical
// data file: a rolling history fed opportunistically from the write path
// (time-throttled, capped) and a daily history (one snapshot per calendar
// day, capped).
//
// Backup failures never propagate into the write path. Every exported
// operation logs its error and returns it for observability, but callers on
// the write path are expected to ignore the return value.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/planvault/planvault/internal/logging"
	"github.com/planvault/planvault/internal/metrics"
)

const (
	// filePrefix and fileSuffix frame every backup artifact name.
	filePrefix = "application-data-"
	fileSuffix = ".json"

	// rollingTimeFormat is RFC 3339 seconds precision with ':' replaced by
	// '-' so names are valid on every filesystem and sort chronologically.
	rollingTimeFormat = "2006-01-02T15-04-05"

	// dailyTimeFormat names one artifact per calendar day.
	dailyTimeFormat = "2006-01-02"
)

// Config holds backup manager settings.
type Config struct {
	// DataFile is the canonical data file to snapshot.
	DataFile string

	// RollingDir holds the time-throttled rolling history.
	RollingDir string

	// DailyDir holds the once-per-day history.
	DailyDir string

	// RollingInterval is the minimum time between rolling backups.
	RollingInterval time.Duration

	// MaxRolling caps the rolling history size.
	MaxRolling int

	// MaxDaily caps the daily history size.
	MaxDaily int

	// PreferredHour is the local hour of day for the scheduled daily backup.
	PreferredHour int
}

// DefaultConfig returns the default backup configuration for a data directory.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataFile:        filepath.Join(dataDir, "application-data.json"),
		RollingDir:      filepath.Join(dataDir, "backups"),
		DailyDir:        filepath.Join(dataDir, "backups-daily"),
		RollingInterval: 5 * time.Minute,
		MaxRolling:      25,
		MaxDaily:        30,
		PreferredHour:   2,
	}
}

// Info describes one backup artifact.
type Info struct {
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"sizeBytes"`
	Timestamp string    `json:"timestamp"`
	ModTime   time.Time `json:"modTime"`
}

// Manager creates, lists and prunes backup artifacts.
type Manager struct {
	cfg    Config
	logger zerolog.Logger

	// lastRolling is the unix-nano time of the last rolling backup.
	lastRolling atomic.Int64

	// inProgress guards against overlapping rolling backups.
	inProgress atomic.Bool

	// now is swappable for tests.
	now func() time.Time
}

// NewManager creates a backup manager and ensures both backup directories
// exist.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.RollingInterval <= 0 {
		cfg.RollingInterval = 5 * time.Minute
	}
	if cfg.MaxRolling <= 0 {
		cfg.MaxRolling = 25
	}
	if cfg.MaxDaily <= 0 {
		cfg.MaxDaily = 30
	}

	for _, dir := range []string{cfg.RollingDir, cfg.DailyDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create backup dir %s: %w", dir, err)
		}
	}

	return &Manager{
		cfg:    cfg,
		logger: logging.WithComponent("backup"),
		now:    time.Now,
	}, nil
}

// MaybeRolling takes a rolling backup unless one was taken within the
// throttle interval or another backup is already running. The canonical file
// must exist; a missing file is a silent no-op.
func (m *Manager) MaybeRolling() error {
	return m.rolling(false)
}

// ForceRolling takes a rolling backup regardless of the throttle interval.
// Used before destructive operations (reset, restore).
func (m *Manager) ForceRolling() error {
	return m.rolling(true)
}

func (m *Manager) rolling(force bool) error {
	now := m.now()

	if !force {
		last := time.Unix(0, m.lastRolling.Load())
		if now.Sub(last) < m.cfg.RollingInterval {
			return nil
		}
	}

	if !m.inProgress.CompareAndSwap(false, true) {
		m.logger.Debug().Msg("Rolling backup already in progress, skipped")
		return nil
	}
	defer m.inProgress.Store(false)

	if _, err := os.Stat(m.cfg.DataFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		m.logger.Error().Err(err).Msg("Rolling backup: cannot stat data file")
		return err
	}

	name := filePrefix + now.UTC().Format(rollingTimeFormat) + fileSuffix
	dest := filepath.Join(m.cfg.RollingDir, name)

	if err := copyFile(m.cfg.DataFile, dest); err != nil {
		m.logger.Error().Err(err).Str("backup", name).Msg("Rolling backup failed")
		return err
	}

	m.lastRolling.Store(now.UnixNano())
	m.logger.Info().Str("backup", name).Msg("Rolling backup created")
	metrics.BackupsCreatedTotal.WithLabelValues("rolling").Inc()

	if err := m.prune(m.cfg.RollingDir, m.cfg.MaxRolling, "rolling"); err != nil {
		m.logger.Error().Err(err).Msg("Rolling backup pruning failed")
	}
	return nil
}

// MaybeDaily takes the daily backup for the current calendar day if it does
// not already exist. Idempotent within a day; a missing canonical file is a
// silent no-op.
func (m *Manager) MaybeDaily() error {
	now := m.now()

	if _, err := os.Stat(m.cfg.DataFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		m.logger.Error().Err(err).Msg("Daily backup: cannot stat data file")
		return err
	}

	name := filePrefix + now.Format(dailyTimeFormat) + fileSuffix
	dest := filepath.Join(m.cfg.DailyDir, name)

	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	if err := copyFile(m.cfg.DataFile, dest); err != nil {
		m.logger.Error().Err(err).Str("backup", name).Msg("Daily backup failed")
		return err
	}

	m.logger.Info().Str("backup", name).Msg("Daily backup created")
	metrics.BackupsCreatedTotal.WithLabelValues("daily").Inc()

	if err := m.prune(m.cfg.DailyDir, m.cfg.MaxDaily, "daily"); err != nil {
		m.logger.Error().Err(err).Msg("Daily backup pruning failed")
	}
	return nil
}

// ListRolling returns the rolling backups newest-first by name.
func (m *Manager) ListRolling() ([]Info, error) {
	names, err := listArtifacts(m.cfg.RollingDir)
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(names))
	for _, name := range names {
		fi, err := os.Stat(filepath.Join(m.cfg.RollingDir, name))
		if err != nil {
			continue
		}
		ts := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		infos = append(infos, Info{
			Filename:  name,
			SizeBytes: fi.Size(),
			Timestamp: ts,
			ModTime:   fi.ModTime(),
		})
	}
	return infos, nil
}

// RollingPath resolves a rolling backup filename to its full path. Names
// containing path separators or not matching the artifact pattern are
// rejected.
func (m *Manager) RollingPath(filename string) (string, error) {
	if filename != filepath.Base(filename) ||
		!strings.HasPrefix(filename, filePrefix) ||
		!strings.HasSuffix(filename, fileSuffix) {
		return "", fmt.Errorf("invalid backup filename %q", filename)
	}

	path := filepath.Join(m.cfg.RollingDir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("backup %q: %w", filename, err)
	}
	return path, nil
}

// prune deletes artifacts beyond keep, oldest first. Ordering is by
// descending name sort, which matches chronological order for both naming
// schemes.
func (m *Manager) prune(dir string, keep int, kind string) error {
	names, err := listArtifacts(dir)
	if err != nil {
		return err
	}

	for _, name := range names[min(keep, len(names)):] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			m.logger.Error().Err(err).Str("backup", name).Msg("Failed to delete old backup")
			continue
		}
		metrics.BackupsPrunedTotal.WithLabelValues(kind).Inc()
		m.logger.Debug().Str("backup", name).Msg("Old backup deleted")
	}
	return nil
}

// listArtifacts returns matching filenames in dir sorted descending
// (newest first).
func listArtifacts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.Type().IsRegular() &&
			strings.HasPrefix(name, filePrefix) &&
			strings.HasSuffix(name, fileSuffix) {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// copyFile reads src fully and writes dest. Read-then-write instead of a
// hard link keeps the artifact independent of later renames of src.
func copyFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-json"

	"github.com/planvault/planvault/internal/document"
	"github.com/planvault/planvault/internal/metrics"
	"github.com/planvault/planvault/internal/registry"
)

// GetAll returns a deep copy of the current document.
func (s *Store) GetAll() (*document.Document, error) {
	return s.current().Clone()
}

// GetModule returns a deep copy of one module's value.
func (s *Store) GetModule(name string) (any, error) {
	if !registry.IsValid(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}
	doc, err := s.current().Clone()
	if err != nil {
		return nil, err
	}
	return doc.Modules[name], nil
}

// SetModule replaces one module's value and commits the document.
// originSession identifies the requesting session; it is excluded from the
// change broadcast.
func (s *Store) SetModule(ctx context.Context, name string, value any, actor, originSession string) (*document.Document, error) {
	if !registry.IsValid(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}

	// Sanitize once so the committed value and the broadcast payload are the
	// same value.
	sanitized := document.Sanitize(value)

	return s.enqueue(ctx, job{
		apply: func(working *document.Document) error {
			working.Modules[name] = sanitized
			return nil
		},
		actor:       actor,
		gateModules: []string{name},
		notify: func() {
			if s.broadcaster != nil {
				s.broadcaster.ModuleUpdated(name, sanitized, actorOrDefault(actor), originSession)
			}
		},
	})
}

// SetMany applies 1 to MaxBulkEntries module replacements as one mutation
// and one durable write. Every name is validated before anything is
// enqueued.
func (s *Store) SetMany(ctx context.Context, updates map[string]any, actor, originSession string) (*document.Document, error) {
	if len(updates) == 0 {
		return nil, ErrEmptyBulk
	}
	if len(updates) > MaxBulkEntries {
		return nil, fmt.Errorf("%w: %d > %d", ErrBulkTooLarge, len(updates), MaxBulkEntries)
	}

	names := make([]string, 0, len(updates))
	sanitized := make(map[string]any, len(updates))
	for name, value := range updates {
		if !registry.IsValid(name) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
		}
		names = append(names, name)
		sanitized[name] = document.Sanitize(value)
	}
	sort.Strings(names)

	return s.enqueue(ctx, job{
		apply: func(working *document.Document) error {
			for name, value := range sanitized {
				working.Modules[name] = value
			}
			return nil
		},
		actor:       actor,
		gateModules: names,
		notify: func() {
			if s.broadcaster != nil {
				s.broadcaster.BulkUpdated(names, actorOrDefault(actor), originSession)
			}
		},
	})
}

// ResetAll forces a rolling backup, then replaces every module with its
// registry default.
func (s *Store) ResetAll(ctx context.Context, actor string) (*document.Document, error) {
	return s.enqueue(ctx, job{
		apply: func(working *document.Document) error {
			working.Modules = registry.Defaults()
			return nil
		},
		actor:       actor,
		forceBackup: true,
		notify: func() {
			if s.broadcaster != nil {
				s.broadcaster.ResetComplete(actorOrDefault(actor))
			}
		},
	})
}

// RestoreBackup overlays a rolling backup's content onto the document after
// forcing a rolling backup of the current state.
func (s *Store) RestoreBackup(ctx context.Context, filename, actor string) (*document.Document, error) {
	path, err := s.backups.RollingPath(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, filename)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup %s: %w", filename, err)
	}
	decoded, err := document.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptSnapshot, filename)
	}

	return s.enqueue(ctx, job{
		apply: func(working *document.Document) error {
			for name, value := range decoded.Modules {
				if _, registered := working.Modules[name]; registered {
					working.Modules[name] = value
				}
			}
			return nil
		},
		actor:       actor,
		forceBackup: true,
		notify: func() {
			if s.broadcaster != nil {
				s.broadcaster.ReloadRequired()
			}
		},
	})
}

// ReloadFromDisk replaces the in-memory document with the on-disk state
// merged over registry defaults. Called by the file watcher after external
// changes. A corrupt file abandons the reload and keeps the current state.
func (s *Store) ReloadFromDisk() error {
	raw, err := os.ReadFile(s.cfg.DataFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		metrics.StoreReloadsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("read data file: %w", err)
	}

	decoded, err := document.Decode(raw)
	if err != nil {
		metrics.StoreReloadsTotal.WithLabelValues("corrupt").Inc()
		s.logger.Error().Err(err).Msg("Reload abandoned, data file is corrupt")
		return fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	s.mu.Lock()
	s.doc = &document.Document{
		Modules:       document.Merge(registry.Defaults(), decoded.Modules),
		LastUpdated:   decoded.LastUpdated,
		LastUpdatedBy: decoded.LastUpdatedBy,
	}
	s.mu.Unlock()

	metrics.StoreReloadsTotal.WithLabelValues("success").Inc()
	s.logger.Info().Msg("Document reloaded from disk")
	return nil
}

// ModuleInfo describes one module slot for the stats listing.
type ModuleInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	ItemCount int    `json:"itemCount"`
	SizeBytes int    `json:"sizeBytes"`
	IsEmpty   bool   `json:"isEmpty"`
}

// ModuleStats returns per-module statistics sorted by name.
func (s *Store) ModuleStats() []ModuleInfo {
	doc := s.current()

	infos := make([]ModuleInfo, 0, len(doc.Modules))
	for name, value := range doc.Modules {
		info := ModuleInfo{Name: name, Type: "null", IsEmpty: true}

		switch v := value.(type) {
		case nil:
		case []any:
			info.Type = "array"
			info.ItemCount = len(v)
			info.IsEmpty = len(v) == 0
			info.SizeBytes = jsonSize(v)
		case map[string]any:
			info.Type = "object"
			info.ItemCount = len(v)
			info.IsEmpty = len(v) == 0
			info.SizeBytes = jsonSize(v)
		case string:
			info.Type = "string"
			info.IsEmpty = false
			info.SizeBytes = len(v)
		case bool:
			info.Type = "boolean"
			info.IsEmpty = false
			info.SizeBytes = jsonSize(v)
		case float64:
			info.Type = "number"
			info.IsEmpty = false
			info.SizeBytes = jsonSize(v)
		default:
			info.Type = "object"
			info.IsEmpty = false
			info.SizeBytes = jsonSize(v)
		}

		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func jsonSize(v any) int {
	raw, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(raw)
}

func actorOrDefault(actor string) string {
	actor = document.SanitizeString(actor)
	if actor == "" {
		return DefaultActor
	}
	return actor
}

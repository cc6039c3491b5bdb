// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

// Package document holds the Document type and its snapshot codec.
//
// A Document is the full persisted state: a mapping from registered module
// names to arbitrary JSON values, plus write metadata. On disk the form is
// flat: module names are top-level JSON keys alongside "lastUpdated" and
// "lastUpdatedBy".
package document

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Reserved top-level keys that are metadata, not modules.
const (
	KeyLastUpdated   = "lastUpdated"
	KeyLastUpdatedBy = "lastUpdatedBy"
)

// Document is the complete in-memory state.
type Document struct {
	// Modules maps registered module names to their current values.
	// A nil value means the module has never been written.
	Modules map[string]any

	// LastUpdated is the timestamp of the most recent accepted write.
	LastUpdated *time.Time

	// LastUpdatedBy identifies the last writer. Free text, not authenticated.
	LastUpdatedBy string
}

// New returns a Document with the given defaults as its module set.
// The defaults map is used directly; callers should pass a fresh map.
func New(defaults map[string]any) *Document {
	return &Document{Modules: defaults}
}

// Clone returns a deep copy of the document. Module values are copied via a
// JSON round trip, so the clone shares no mutable state with the original.
func (d *Document) Clone() (*Document, error) {
	modules := make(map[string]any, len(d.Modules))
	for name, value := range d.Modules {
		if value == nil {
			modules[name] = nil
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("clone module %q: %w", name, err)
		}
		var copied any
		if err := json.Unmarshal(raw, &copied); err != nil {
			return nil, fmt.Errorf("clone module %q: %w", name, err)
		}
		modules[name] = copied
	}

	clone := &Document{
		Modules:       modules,
		LastUpdatedBy: d.LastUpdatedBy,
	}
	if d.LastUpdated != nil {
		ts := *d.LastUpdated
		clone.LastUpdated = &ts
	}
	return clone, nil
}

// Merge overlays the given module values onto defaults and returns a new
// module map. Keys absent from overlay keep their default; keys absent from
// defaults (unregistered) are dropped.
func Merge(defaults, overlay map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults))
	for name, value := range defaults {
		merged[name] = value
	}
	for name, value := range overlay {
		if _, registered := merged[name]; registered {
			merged[name] = value
		}
	}
	return merged
}

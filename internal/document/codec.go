// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

package document

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Encode serializes the document to its flat on-disk JSON form. Every string
// value is sanitized first so the output always parses back cleanly. Output
// is indented for manual inspection of the data file.
func Encode(d *Document) ([]byte, error) {
	flat := make(map[string]any, len(d.Modules)+2)
	for name, value := range d.Modules {
		flat[name] = Sanitize(value)
	}

	if d.LastUpdated != nil {
		flat[KeyLastUpdated] = d.LastUpdated.UTC().Format(time.RFC3339Nano)
	} else {
		flat[KeyLastUpdated] = nil
	}
	if d.LastUpdatedBy != "" {
		flat[KeyLastUpdatedBy] = SanitizeString(d.LastUpdatedBy)
	} else {
		flat[KeyLastUpdatedBy] = nil
	}

	raw, err := json.MarshalIndent(flat, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return raw, nil
}

// Decode parses the flat on-disk form. Metadata keys are split out; every
// other top-level key is returned as a module value, registered or not
// (the caller merges against the registry defaults).
func Decode(raw []byte) (*Document, error) {
	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	doc := &Document{Modules: make(map[string]any, len(flat))}

	for key, value := range flat {
		switch key {
		case KeyLastUpdated:
			if s, ok := value.(string); ok {
				if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
					doc.LastUpdated = &ts
				}
			}
		case KeyLastUpdatedBy:
			if s, ok := value.(string); ok {
				doc.LastUpdatedBy = s
			}
		default:
			doc.Modules[key] = value
		}
	}

	return doc, nil
}

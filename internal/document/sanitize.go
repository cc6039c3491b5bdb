// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

package document

import "strings"

// Sanitize recursively strips disallowed control characters from every
// string value in v. Objects and arrays are rebuilt; scalars other than
// strings pass through unchanged. Map keys are left as-is.
func Sanitize(v any) any {
	switch value := v.(type) {
	case string:
		return SanitizeString(value)
	case []any:
		cleaned := make([]any, len(value))
		for i, item := range value {
			cleaned[i] = Sanitize(item)
		}
		return cleaned
	case map[string]any:
		cleaned := make(map[string]any, len(value))
		for key, item := range value {
			cleaned[key] = Sanitize(item)
		}
		return cleaned
	default:
		return v
	}
}

// SanitizeString removes control characters that would corrupt the JSON
// encoding. Tab (0x09), newline (0x0A) and carriage return (0x0D) are kept;
// 0x00-0x08, 0x0B, 0x0C, 0x0E-0x1F and DEL (0x7F) are stripped.
func SanitizeString(s string) string {
	if !strings.ContainsFunc(s, isDisallowed) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !isDisallowed(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDisallowed(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return false
	case r < 0x20 || r == 0x7F:
		return true
	default:
		return false
	}
}

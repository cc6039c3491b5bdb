// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

package api

import (
	"net/http"
)

// Reset restores every module to its default value after forcing a rolling
// backup of the current document.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req ResetRequest
	if !h.decodeAndValidate(rw, r, &req) {
		return
	}

	doc, err := h.store.ResetAll(r.Context(), req.Actor)
	if err != nil {
		h.respondStoreError(rw, err)
		return
	}

	rw.Success(map[string]interface{}{
		"message":       "All modules reset to defaults",
		"lastUpdated":   doc.LastUpdated,
		"lastUpdatedBy": doc.LastUpdatedBy,
	})
}

// ListBackups returns the rolling backups, newest first.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	infos, err := h.backups.ListRolling()
	if err != nil {
		rw.InternalError(err)
		return
	}

	rw.Success(map[string]interface{}{
		"backups": infos,
		"count":   len(infos),
	})
}

// RestoreBackup overlays a rolling backup onto the current document. The
// pre-restore state is itself backed up first, so a restore is reversible.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req RestoreRequest
	if !h.decodeAndValidate(rw, r, &req) {
		return
	}

	doc, err := h.store.RestoreBackup(r.Context(), req.Filename, req.Actor)
	if err != nil {
		h.respondStoreError(rw, err)
		return
	}

	rw.Success(map[string]interface{}{
		"message":       "Backup restored",
		"filename":      req.Filename,
		"lastUpdated":   doc.LastUpdated,
		"lastUpdatedBy": doc.LastUpdatedBy,
	})
}

// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planvault/planvault/internal/registry"
)

// GetData returns the full planning document in its flat layout.
func (h *Handler) GetData(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	doc, err := h.store.GetAll()
	if err != nil {
		rw.InternalError(err)
		return
	}

	rw.Success(flattenDocument(doc))
}

// ListModules returns per-module statistics for every registered module.
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	rw.Success(map[string]interface{}{
		"modules": h.store.ModuleStats(),
		"count":   registry.Count(),
	})
}

// GetModule returns one module's value.
func (h *Handler) GetModule(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	name := chi.URLParam(r, "name")

	value, err := h.store.GetModule(name)
	if err != nil {
		h.respondStoreError(rw, err)
		return
	}

	rw.Success(map[string]interface{}{
		"moduleName": name,
		"data":       value,
	})
}

// UpdateModule replaces one module's value.
func (h *Handler) UpdateModule(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	name := chi.URLParam(r, "name")

	var req UpdateModuleRequest
	if !h.decodeAndValidate(rw, r, &req) {
		return
	}

	doc, err := h.store.SetModule(r.Context(), name, req.Data, req.Actor, req.SessionID)
	if err != nil {
		h.respondStoreError(rw, err)
		return
	}

	rw.Success(map[string]interface{}{
		"moduleName":    name,
		"lastUpdated":   doc.LastUpdated,
		"lastUpdatedBy": doc.LastUpdatedBy,
	})
}

// BulkUpdate replaces several modules in one durable write.
func (h *Handler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req BulkUpdateRequest
	if !h.decodeAndValidate(rw, r, &req) {
		return
	}

	updates := make(map[string]interface{}, len(req.Updates))
	for _, entry := range req.Updates {
		if _, dup := updates[entry.ModuleName]; dup {
			rw.BadRequest("Duplicate module in bulk update: " + entry.ModuleName)
			return
		}
		updates[entry.ModuleName] = entry.Data
	}

	doc, err := h.store.SetMany(r.Context(), updates, req.Actor, req.SessionID)
	if err != nil {
		h.respondStoreError(rw, err)
		return
	}

	names := make([]string, 0, len(updates))
	for name := range updates {
		names = append(names, name)
	}

	rw.Success(map[string]interface{}{
		"updated":       len(names),
		"lastUpdated":   doc.LastUpdated,
		"lastUpdatedBy": doc.LastUpdatedBy,
	})
}

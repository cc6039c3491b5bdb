// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

package api

import (
	"net/http"
	"os"
	"time"
)

// Health reports overall service health: whether the document is loaded and
// the data file is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	loaded := h.store.Ready()

	_, statErr := os.Stat(h.store.DataFile())
	fileReachable := statErr == nil

	status := "healthy"
	if !loaded || !fileReachable {
		status = "degraded"
	}

	rw.Success(map[string]interface{}{
		"status":         status,
		"documentLoaded": loaded,
		"dataFile":       fileReachable,
		"sessions":       h.wsHub.SessionCount(),
		"uptime":         time.Since(h.startTime).Seconds(),
	})
}

// HealthLive is the liveness probe. It succeeds whenever the process can
// serve requests at all.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady is the readiness probe. It returns 503 until the document has
// been loaded from disk.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.store.Ready() {
		rw.ServiceUnavailable("Document not loaded yet")
		return
	}

	rw.Success(map[string]interface{}{
		"status": "ready",
	})
}

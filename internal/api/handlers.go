// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/planvault/planvault/internal/backup"
	"github.com/planvault/planvault/internal/config"
	"github.com/planvault/planvault/internal/document"
	"github.com/planvault/planvault/internal/store"
	"github.com/planvault/planvault/internal/validation"
	ws "github.com/planvault/planvault/internal/websocket"
)

// maxBodyBytes caps request bodies. Planning documents are large but
// bounded; 10 MB leaves generous headroom over real payloads.
const maxBodyBytes = 10 << 20

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	store     *store.Store
	backups   *backup.Manager
	wsHub     *ws.Hub
	config    *config.Config
	startTime time.Time
}

// NewHandler creates a handler with the given dependencies.
func NewHandler(st *store.Store, backups *backup.Manager, hub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		store:     st,
		backups:   backups,
		wsHub:     hub,
		config:    cfg,
		startTime: time.Now(),
	}
}

// decodeAndValidate decodes the request body into dst and runs struct
// validation. On failure it writes the error response and returns false.
func (h *Handler) decodeAndValidate(rw *ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(rw.w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			rw.BadRequest("Request body is required")
			return false
		}
		rw.BadRequest("Invalid JSON in request body")
		return false
	}

	if err := validation.ValidateStruct(dst); err != nil {
		apiErr := err.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return false
	}

	return true
}

// respondStoreError maps store errors to API error responses.
func (h *Handler) respondStoreError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrUnknownModule):
		rw.NotFound(ErrCodeModuleNotFound, err.Error())
	case errors.Is(err, store.ErrBackupNotFound):
		rw.NotFound(ErrCodeBackupNotFound, err.Error())
	case errors.Is(err, store.ErrEmptyBulk), errors.Is(err, store.ErrBulkTooLarge):
		rw.BadRequest(err.Error())
	case errors.Is(err, store.ErrCorruptSnapshot):
		rw.Error(http.StatusUnprocessableEntity, ErrCodeInvalidInput, err.Error())
	case errors.Is(err, store.ErrWriteContention):
		rw.Error(http.StatusConflict, ErrCodeWriteContention,
			"The document is being written by another request, retry shortly")
	default:
		rw.InternalError(err)
	}
}

// flattenDocument renders a document in its flat wire layout: every module
// as a top-level key plus the lastUpdated metadata.
func flattenDocument(doc *document.Document) map[string]interface{} {
	flat := make(map[string]interface{}, len(doc.Modules)+2)
	for name, value := range doc.Modules {
		flat[name] = value
	}

	if doc.LastUpdated != nil {
		flat[document.KeyLastUpdated] = doc.LastUpdated.UTC().Format(time.RFC3339Nano)
	} else {
		flat[document.KeyLastUpdated] = nil
	}
	flat[document.KeyLastUpdatedBy] = doc.LastUpdatedBy

	return flat
}

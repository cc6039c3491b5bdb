// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

package api

// UpdateModuleRequest is the body of PUT /api/v1/modules/{name}.
type UpdateModuleRequest struct {
	// Data is the new module value. Any JSON value is accepted, including
	// null.
	Data interface{} `json:"data"`

	// Actor names who made the change. Defaults to "anonymous".
	Actor string `json:"actor" validate:"omitempty,actorname,max=100"`

	// SessionID is the WebSocket session of the requester; that session is
	// excluded from the change broadcast.
	SessionID string `json:"sessionId" validate:"omitempty,max=64"`
}

// BulkEntry is one module replacement inside a bulk update.
type BulkEntry struct {
	ModuleName string      `json:"moduleName" validate:"required,max=100"`
	Data       interface{} `json:"data"`
}

// BulkUpdateRequest is the body of POST /api/v1/modules/bulk.
type BulkUpdateRequest struct {
	Updates   []BulkEntry `json:"updates" validate:"required,min=1,max=50,dive"`
	Actor     string      `json:"actor" validate:"omitempty,actorname,max=100"`
	SessionID string      `json:"sessionId" validate:"omitempty,max=64"`
}

// ResetRequest is the body of POST /api/v1/reset.
type ResetRequest struct {
	Actor string `json:"actor" validate:"omitempty,actorname,max=100"`
}

// RestoreRequest is the body of POST /api/v1/backups/restore.
type RestoreRequest struct {
	// Filename is the rolling backup to restore, as returned by
	// GET /api/v1/backups.
	Filename string `json:"filename" validate:"required,max=255"`

	Actor string `json:"actor" validate:"omitempty,actorname,max=100"`
}

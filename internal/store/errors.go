// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

package store

import "errors"

var (
	// ErrUnknownModule is returned when a caller addresses a module name
	// outside the registry. Rejected before any I/O.
	ErrUnknownModule = errors.New("unknown module")

	// ErrWriteContention is returned when a durable write kept colliding
	// with another file handle after all retry attempts.
	ErrWriteContention = errors.New("data file busy after retries")

	// ErrCorruptSnapshot is returned when the canonical file or a backup
	// fails to deserialize.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")

	// ErrBackupNotFound is returned when a restore names a backup that
	// does not exist.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrEmptyBulk is returned when a bulk update carries no entries.
	ErrEmptyBulk = errors.New("bulk update contains no entries")

	// ErrBulkTooLarge is returned when a bulk update exceeds MaxBulkEntries.
	ErrBulkTooLarge = errors.New("bulk update exceeds maximum entry count")
)

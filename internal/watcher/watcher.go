// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

// Package watcher observes the canonical data file for writes that did not
// originate from this process and triggers an in-memory reload.
//
// The watch is placed on the data directory, not the file itself: the
// store's atomic rename replaces the inode on every write, which would
// silently detach a file-level watch.
package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/planvault/planvault/internal/logging"
)

// Reloader is the store-side contract: reload state from disk and report
// whether an own write is currently in flight.
type Reloader interface {
	ReloadFromDisk() error
	WriteInProgress() bool
}

// Notifier tells live sessions their cached view is stale.
type Notifier interface {
	ReloadRequired()
}

// Config holds watcher settings.
type Config struct {
	// Path is the canonical data file.
	Path string

	// Debounce collapses bursts of file events into one reload. Default 500ms.
	Debounce time.Duration
}

// Watcher debounces file events and drives reloads. Implements
// suture.Service.
type Watcher struct {
	cfg      Config
	reloader Reloader
	notifier Notifier
	logger   zerolog.Logger
}

// New creates a watcher for the given file.
func New(cfg Config, reloader Reloader, notifier Notifier) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	return &Watcher{
		cfg:      cfg,
		reloader: reloader,
		notifier: notifier,
		logger:   logging.WithComponent("watcher"),
	}
}

// Serve watches until the context is canceled.
func (w *Watcher) Serve(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.cfg.Path)
	if err := fw.Add(dir); err != nil {
		return err
	}
	w.logger.Info().Str("dir", dir).Msg("File watcher started")

	base := filepath.Base(w.cfg.Path)

	// Single pending-timer slot: each qualifying event restarts it instead
	// of queuing another reload.
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("watch event channel closed")
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if w.reloader.WriteInProgress() {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.cfg.Debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.cfg.Debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("watch error channel closed")
			}
			w.logger.Error().Err(err).Msg("File watcher error")

		case <-timerC:
			timer = nil
			timerC = nil

			// Re-check at fire time: an own write may have started during
			// the debounce window.
			if w.reloader.WriteInProgress() {
				continue
			}

			w.logger.Info().Str("file", base).Msg("External change detected, reloading")
			if err := w.reloader.ReloadFromDisk(); err != nil {
				w.logger.Error().Err(err).Msg("Reload failed, keeping in-memory state")
				continue
			}
			w.notifier.ReloadRequired()
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (w *Watcher) String() string {
	return "file-watcher"
}

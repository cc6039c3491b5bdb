// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

// Package store owns the in-memory document and its durable persistence.
//
// All mutations flow through a single worker goroutine draining a FIFO job
// queue, so at most one durable write is ever in flight and mutations commit
// in exact submission order. The durable write stages the encoded document
// to a temporary file and atomically renames it onto the canonical path; a
// reader can never observe a half-written file.
//
// The worker runs as a supervised service (Serve/String). Callers enqueue
// through the facade methods in facade.go and block on a reply channel.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/planvault/planvault/internal/backup"
	"github.com/planvault/planvault/internal/document"
	"github.com/planvault/planvault/internal/logging"
	"github.com/planvault/planvault/internal/metrics"
	"github.com/planvault/planvault/internal/registry"
)

const (
	// MaxBulkEntries bounds a single bulk update.
	MaxBulkEntries = 50

	// DefaultActor is recorded when a writer supplies no name.
	DefaultActor = "anonymous"
)

// Broadcaster receives change notifications after committed mutations.
// Implemented by the websocket hub; nil disables broadcasting.
type Broadcaster interface {
	ModuleUpdated(name string, data any, updatedBy, originSession string)
	BulkUpdated(names []string, updatedBy, originSession string)
	ReloadRequired()
	ResetComplete(updatedBy string)
}

// Config holds store settings.
type Config struct {
	// DataFile is the canonical JSON data file.
	DataFile string

	// QueueSize is the write queue capacity. Default 256.
	QueueSize int

	// MaxWriteAttempts bounds retries on transient contention. Default 3.
	MaxWriteAttempts int

	// RetryBackoff is the base backoff, multiplied by the attempt number.
	// Default 200ms.
	RetryBackoff time.Duration

	// WriteGrace is how long after a completed own write the watcher still
	// treats file events as self-inflicted. Default 1s.
	WriteGrace time.Duration
}

func (c *Config) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.MaxWriteAttempts <= 0 {
		c.MaxWriteAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
	if c.WriteGrace <= 0 {
		c.WriteGrace = time.Second
	}
}

// Store is the document store facade and write serializer.
type Store struct {
	cfg     Config
	backups *backup.Manager
	logger  zerolog.Logger

	// broadcaster is set once during wiring, before any service starts.
	broadcaster Broadcaster

	// mu guards the doc pointer. The document itself is never mutated in
	// place; the pointer is replaced wholesale on commit and reload.
	mu  sync.RWMutex
	doc *document.Document

	jobs chan job

	// stage is swappable for tests.
	stage func(tmp string, raw []byte) error

	// writing and lastWriteNano implement self-write suppression for the
	// file watcher.
	writing       atomic.Bool
	lastWriteNano atomic.Int64

	loaded atomic.Bool
}

type result struct {
	doc *document.Document
	err error
}

type job struct {
	// apply mutates a working copy of the document.
	apply func(working *document.Document) error

	// actor becomes lastUpdatedBy on commit.
	actor string

	// gateModules lists modules whose previous non-empty content allows a
	// throttled rolling backup before the write.
	gateModules []string

	// forceBackup takes a rolling backup unconditionally (reset, restore).
	forceBackup bool

	// notify runs after a successful commit.
	notify func()

	reply chan result
}

// New creates a store. Call Load before serving traffic.
func New(cfg Config, backups *backup.Manager) *Store {
	cfg.applyDefaults()
	s := &Store{
		cfg:     cfg,
		backups: backups,
		logger:  logging.WithComponent("store"),
		doc:     document.New(registry.Defaults()),
		jobs:    make(chan job, cfg.QueueSize),
	}
	s.stage = s.stageAndRename
	return s
}

// SetBroadcaster wires the change broadcaster. Must be called before the
// supervision tree starts.
func (s *Store) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Load initializes the in-memory document from disk. A missing file is
// created from registry defaults; an unreadable file is logged and the
// defaults are kept so the service still comes up.
func (s *Store) Load() error {
	// Snapshot today's state before anything mutates it.
	//nolint:errcheck // backup failures never block startup
	s.backups.MaybeDaily()

	raw, err := os.ReadFile(s.cfg.DataFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := s.persist(s.current()); err != nil {
			return fmt.Errorf("initialize data file: %w", err)
		}
		s.logger.Info().Str("file", s.cfg.DataFile).Msg("Data file initialized")

	case err != nil:
		return fmt.Errorf("read data file: %w", err)

	default:
		decoded, err := document.Decode(raw)
		if err != nil {
			s.logger.Error().Err(err).Msg("Data file is corrupt, starting from defaults")
		} else {
			s.mu.Lock()
			s.doc = &document.Document{
				Modules:       document.Merge(registry.Defaults(), decoded.Modules),
				LastUpdated:   decoded.LastUpdated,
				LastUpdatedBy: decoded.LastUpdatedBy,
			}
			s.mu.Unlock()
			s.logger.Info().Int("modules", registry.Count()).Msg("Data file loaded")
		}
	}

	s.loaded.Store(true)
	return nil
}

// Ready reports whether Load has completed.
func (s *Store) Ready() bool {
	return s.loaded.Load()
}

// WriteInProgress reports whether a durable write is running or finished
// within the grace window. The watcher uses this to ignore events caused by
// the store's own writes.
func (s *Store) WriteInProgress() bool {
	if s.writing.Load() {
		return true
	}
	last := s.lastWriteNano.Load()
	return last > 0 && time.Since(time.Unix(0, last)) < s.cfg.WriteGrace
}

// DataFile returns the canonical data file path.
func (s *Store) DataFile() string {
	return s.cfg.DataFile
}

// Serve drains the write queue until the context is canceled.
// Implements suture.Service.
func (s *Store) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-s.jobs:
			metrics.StoreQueueDepth.Set(float64(len(s.jobs)))
			s.process(j)
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *Store) String() string {
	return "store-writer"
}

// current returns the live document pointer. Callers must not mutate it.
func (s *Store) current() *document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// enqueue submits a job and waits for its result.
func (s *Store) enqueue(ctx context.Context, j job) (*document.Document, error) {
	j.reply = make(chan result, 1)

	select {
	case s.jobs <- j:
		metrics.StoreQueueDepth.Set(float64(len(s.jobs)))
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-j.reply:
		return res.doc, res.err
	case <-ctx.Done():
		// The job still commits; the caller just stopped waiting.
		return nil, ctx.Err()
	}
}

// process runs one queued mutation to completion.
func (s *Store) process(j job) {
	working, err := s.current().Clone()
	if err != nil {
		j.reply <- result{err: fmt.Errorf("snapshot document: %w", err)}
		return
	}

	if err := j.apply(working); err != nil {
		j.reply <- result{err: err}
		return
	}

	// Backups are taken from the pre-write file so they are always one
	// step behind, and their failure never blocks the write.
	switch {
	case j.forceBackup:
		//nolint:errcheck // logged inside the manager
		s.backups.ForceRolling()
	case s.shouldGateBackup(j.gateModules):
		//nolint:errcheck // logged inside the manager
		s.backups.MaybeRolling()
	}

	now := time.Now().UTC()
	working.LastUpdated = &now
	actor := document.SanitizeString(j.actor)
	if actor == "" {
		actor = DefaultActor
	}
	working.LastUpdatedBy = actor

	if err := s.persist(working); err != nil {
		s.logger.Error().Err(err).Msg("Durable write failed, in-memory state unchanged")
		j.reply <- result{err: err}
		return
	}

	s.mu.Lock()
	s.doc = working
	s.mu.Unlock()

	if j.notify != nil {
		j.notify()
	}

	snapshot, err := working.Clone()
	j.reply <- result{doc: snapshot, err: err}
}

// shouldGateBackup reports whether any gated module previously held
// non-empty content. A module's very first population is not worth backing
// up: there is nothing to roll back to.
func (s *Store) shouldGateBackup(names []string) bool {
	if len(names) == 0 {
		return false
	}
	doc := s.current()
	for _, name := range names {
		if hasContent(doc.Modules[name]) {
			return true
		}
	}
	return false
}

func hasContent(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case []any:
		return len(value) > 0
	default:
		return true
	}
}

// persist performs the durable write: encode, stage to a temp file, rename
// onto the canonical path. Transient contention is retried with increasing
// backoff; any other error aborts immediately.
func (s *Store) persist(doc *document.Document) error {
	raw, err := document.Encode(doc)
	if err != nil {
		return err
	}

	start := time.Now()
	s.writing.Store(true)
	defer func() {
		s.lastWriteNano.Store(time.Now().UnixNano())
		s.writing.Store(false)
	}()

	tmp := s.cfg.DataFile + ".tmp"
	var lastErr error

	for attempt := 1; attempt <= s.cfg.MaxWriteAttempts; attempt++ {
		lastErr = s.stage(tmp, raw)
		if lastErr == nil {
			metrics.RecordStoreWrite("success", time.Since(start))
			return nil
		}

		if !isTransient(lastErr) {
			metrics.RecordStoreWrite("error", time.Since(start))
			return fmt.Errorf("durable write: %w", lastErr)
		}

		if attempt < s.cfg.MaxWriteAttempts {
			metrics.StoreWriteRetries.Inc()
			s.logger.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Int("max_attempts", s.cfg.MaxWriteAttempts).
				Msg("Data file busy, retrying")
			time.Sleep(s.cfg.RetryBackoff * time.Duration(attempt))
		}
	}

	metrics.RecordStoreWrite("contention", time.Since(start))
	return fmt.Errorf("%w: %v", ErrWriteContention, lastErr)
}

func (s *Store) stageAndRename(tmp string, raw []byte) error {
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.cfg.DataFile)
}

// isTransient reports whether err looks like momentary file contention
// (another handle holding the target open) rather than a hard failure.
func isTransient(err error) bool {
	return errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.ETXTBSY)
}

// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

package backup

import (
	"context"
	"time"
)

// Scheduler runs the daily backup tick. It fires at the manager's preferred
// hour (local time), then every 24 hours. Implements suture.Service.
type Scheduler struct {
	manager *Manager
}

// NewScheduler creates a scheduler for the given manager.
func NewScheduler(manager *Manager) *Scheduler {
	return &Scheduler{manager: manager}
}

// Serve runs the tick loop until the context is canceled.
func (s *Scheduler) Serve(ctx context.Context) error {
	next := s.nextRun()
	s.manager.logger.Info().Time("next_daily_backup", next).Msg("Daily backup scheduler started")

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if err := s.manager.MaybeDaily(); err != nil {
				s.manager.logger.Error().Err(err).Msg("Scheduled daily backup failed")
			}
			next = s.nextRun()
			timer.Reset(time.Until(next))
		}
	}
}

// nextRun returns the next occurrence of the preferred hour.
func (s *Scheduler) nextRun() time.Time {
	now := s.manager.now()
	next := time.Date(now.Year(), now.Month(), now.Day(),
		s.manager.cfg.PreferredHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// String implements fmt.Stringer for supervisor logging.
func (s *Scheduler) String() string {
	return "backup-scheduler"
}

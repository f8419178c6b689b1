// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

// Package jobs runs the gateway's periodic maintenance: sweeping expired
// cache entries, compacting the session database, and warming the public
// content caches so anonymous page loads stay off the backend's hot path.
package jobs

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ksfoundation/ksf-web/internal/cache"
	"github.com/ksfoundation/ksf-web/internal/store"
)

// Scheduler handles the periodic maintenance jobs.
type Scheduler struct {
	db     *sql.DB
	cache  cache.Cache
	warmer func(ctx context.Context) error
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates a scheduler. warmer, when non-nil, is invoked periodically to
// pre-fill the public content caches.
func New(db *sql.DB, c cache.Cache, warmer func(ctx context.Context) error, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		db:     db,
		cache:  c,
		warmer: warmer,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the maintenance jobs and begins running them.
func (s *Scheduler) Start() error {
	// Sweep expired cache entries every 5 minutes
	if _, err := s.cron.AddFunc("*/5 * * * *", s.sweepCache); err != nil {
		return err
	}

	// Compact the session database hourly
	if _, err := s.cron.AddFunc("0 * * * *", s.maintainDatabase); err != nil {
		return err
	}

	if s.warmer != nil {
		// Keep public content warm every 10 minutes
		if _, err := s.cron.AddFunc("*/10 * * * *", s.warmContent); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "category", "system", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped", "category", "system")
}

func (s *Scheduler) sweepCache() {
	sweeper, ok := s.cache.(cache.Sweeper)
	if !ok {
		return
	}
	sweeper.Sweep()
	s.logger.Debug("cache swept", "category", "system")
}

func (s *Scheduler) maintainDatabase() {
	if s.db == nil {
		return
	}
	if err := store.Maintain(s.db); err != nil {
		s.logger.Error("database maintenance failed", "category", "system", "error", err)
		return
	}
	s.logger.Debug("database maintained", "category", "system")
}

func (s *Scheduler) warmContent() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.warmer(ctx); err != nil {
		s.logger.Warn("content warm-up failed", "category", "content", "error", err)
		return
	}
	s.logger.Debug("content caches warmed", "category", "content")
}

// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic background jobs: the daily update
// check against the release manifest.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/shieldeye/shieldeye-go/internal/update"
	"github.com/shieldeye/shieldeye-go/internal/version"
)

// UpdateChecker fetches the release manifest and resolves the payload for
// the current platform.
type UpdateChecker interface {
	Check(ctx context.Context) (update.Info, error)
}

// Scheduler handles scheduled tasks like the daily update check.
type Scheduler struct {
	cron    *cron.Cron
	checker UpdateChecker
	notify  func(update.Info)
	logger  *slog.Logger
}

// New creates a new scheduler instance. notify is called when a newer
// release is found; it may be nil.
func New(checker UpdateChecker, notify func(update.Info), logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		checker: checker,
		notify:  notify,
		logger:  logger,
	}
}

// Start begins the scheduler with a daily update check and runs the first
// check immediately.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("@daily", s.checkForUpdate)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))

	go s.checkForUpdate()
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// checkForUpdate fetches the manifest and notifies when a newer release
// is available. Failures are logged, never fatal: the next daily run
// tries again.
func (s *Scheduler) checkForUpdate() {
	ctx := context.Background()

	info, err := s.checker.Check(ctx)
	if err != nil {
		s.logger.Error("update check failed", "error", err)
		return
	}

	current := version.App()
	if !info.IsNewerThan(current) {
		s.logger.Debug("no update available", "current", current, "latest", info.Version)
		return
	}

	s.logger.Info("update available", "current", current, "latest", info.Version)
	if s.notify != nil {
		s.notify(info)
	}
}

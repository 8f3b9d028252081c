// Package scheduler runs the console's background maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Purger removes expired session values.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// Scheduler manages background jobs for session maintenance
type Scheduler struct {
	cron     *cron.Cron
	purger   Purger
	schedule string
	log      *slog.Logger
}

// NewScheduler creates a scheduler purging purger on schedule (cron spec or @every descriptor).
func NewScheduler(schedule string, purger Purger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		purger:   purger,
		schedule: schedule,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the scheduler
func (s *Scheduler) SetLogger(log *slog.Logger) {
	s.log = log
}

// Start starts the scheduler and adds the purge job
func (s *Scheduler) Start(ctx context.Context) error {
	if s.schedule == "" {
		s.log.Info("Session purge is disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { _, _ = s.RunPurge(ctx) }); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", s.schedule, err)
	}

	s.log.Info("Starting scheduler", slog.String("schedule", s.schedule))
	s.cron.Start()
	return nil
}

// RunPurge removes expired session values once and returns how many were removed.
func (s *Scheduler) RunPurge(ctx context.Context) (int64, error) {
	removed, err := s.purger.Purge(ctx)
	if err != nil {
		s.log.Error("Session purge failed", slog.String("error", err.Error()))
		return 0, err
	}
	s.log.Debug("Session purge completed", slog.Int64("removed", removed))
	return removed, nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.log.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

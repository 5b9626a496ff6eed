package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the approval sweep every five minutes.
const DefaultSweepSchedule = "@every 5m"

// Sweeper settles overdue approvals on a cron schedule. Runs never overlap.
type Sweeper struct {
	approvals *Approvals
	schedule  string
	timeout   time.Duration
	logger    *slog.Logger
	cron      *cron.Cron
}

// NewSweeper creates a sweeper. An empty schedule uses DefaultSweepSchedule.
func NewSweeper(approvals *Approvals, schedule string, logger *slog.Logger) *Sweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	return &Sweeper{
		approvals: approvals,
		schedule:  schedule,
		timeout:   time.Minute,
		logger:    logger.With("module", "approval_sweeper"),
	}
}

// Start schedules the sweep. Jobs run with ctx until Stop is called.
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.cron = cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))

	if _, err := s.cron.AddFunc(s.schedule, func() { s.Sweep(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule approval sweep: %w", err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "approval sweeper started", "schedule", s.schedule)

	return nil
}

// Sweep runs one pass immediately.
func (s *Sweeper) Sweep(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	settled, err := s.approvals.ExpireOverdue(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "approval sweep failed", "error", err)

		return 0
	}

	if settled > 0 {
		s.logger.InfoContext(ctx, "approval sweep settled overdue approvals", "count", settled)
	}

	return settled
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}

	<-s.cron.Stop().Done()
}

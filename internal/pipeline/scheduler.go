package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule fires the pipeline at midnight every day.
const DefaultSchedule = "0 0 * * *"

// Scheduler triggers the pipeline on a cron schedule. The idempotency guard
// inside the pipeline makes overlapping or repeated triggers harmless, so the
// scheduler itself stays simple: fire and log.
type Scheduler struct {
	pipeline *Pipeline
	cron     *cron.Cron
	schedule string

	runOnStart bool
}

// SchedulerOptions configures the cron trigger.
type SchedulerOptions struct {
	// Schedule is a standard five-field cron expression. Empty means
	// DefaultSchedule.
	Schedule string

	// Timezone names the location the schedule is evaluated in. Empty means
	// UTC. Meters report local consumption days, so deployments set this to
	// the site's zone.
	Timezone string

	// RunOnStart fires one pipeline pass immediately on Start, catching up a
	// service that was down at the scheduled time.
	RunOnStart bool
}

// NewScheduler creates a cron scheduler for the pipeline.
func NewScheduler(p *Pipeline, opts SchedulerOptions) (*Scheduler, error) {
	if opts.Schedule == "" {
		opts.Schedule = DefaultSchedule
	}

	loc := time.UTC
	if opts.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(opts.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", opts.Timezone, err)
		}
	}

	if _, err := cron.ParseStandard(opts.Schedule); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", opts.Schedule, err)
	}

	return &Scheduler{
		pipeline:   p,
		cron:       cron.New(cron.WithLocation(loc)),
		schedule:   opts.Schedule,
		runOnStart: opts.RunOnStart,
	}, nil
}

// Start registers the cron entry and runs until the context is cancelled.
// A run already in flight when cancellation arrives gets a bounded grace
// period to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.fire(ctx)
	})
	if err != nil {
		return fmt.Errorf("register cron entry: %w", err)
	}

	slog.Info("[Scheduler] Starting rollup scheduler",
		"schedule", s.schedule,
		"run_on_start", s.runOnStart,
	)

	if s.runOnStart {
		s.fire(ctx)
	}

	s.cron.Start()

	<-ctx.Done()
	slog.Info("[Scheduler] Stopping (context cancelled)")

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		slog.Warn("[Scheduler] Timed out waiting for in-flight run to finish")
	}
	return nil
}

func (s *Scheduler) fire(ctx context.Context) {
	report, err := s.pipeline.Run(ctx, false)
	if err != nil {
		slog.Error("[Scheduler] Scheduled rollup failed", "error", err)
		return
	}
	if report.Skipped {
		slog.Debug("[Scheduler] Scheduled rollup skipped, already ran today")
	}
}

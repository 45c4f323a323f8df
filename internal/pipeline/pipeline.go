package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gridwatch-lab/gridwatch/internal/core/rollup"
	"github.com/gridwatch-lab/gridwatch/internal/notify"
)

const defaultStageTimeout = 2 * time.Minute

// Report describes what one pipeline run did.
type Report struct {
	Skipped           bool      `json:"skipped"`
	RunDate           time.Time `json:"run_date"`
	AggregatesWritten int       `json:"aggregates_written"`
	ReadingsPruned    int64     `json:"readings_pruned"`
	Duration          string    `json:"duration"`
}

// Pipeline runs the daily rollup sequence: idempotency guard, meter reset
// notification, hourly rollup, retention prune. The guard and the two storage
// stages are ordered so a crash mid-run can never delete readings that were
// not yet aggregated.
type Pipeline struct {
	guard      *IdempotencyGuard
	notifier   notify.ResetPublisher
	aggregator *Aggregator
	pruner     *Pruner

	interval     rollup.Interval
	stageTimeout time.Duration
	nowFn        func() time.Time
}

// Option customizes pipeline construction.
type Option func(*Pipeline)

// WithStageTimeout bounds each stage's execution time.
func WithStageTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.stageTimeout = d
		}
	}
}

// WithInterval changes the rollup granularity from the hourly default.
func WithInterval(interval rollup.Interval) Option {
	return func(p *Pipeline) {
		if interval.Valid() {
			p.interval = interval
		}
	}
}

// WithClock overrides the time source. Tests use this to pin the run date.
func WithClock(nowFn func() time.Time) Option {
	return func(p *Pipeline) { p.nowFn = nowFn }
}

// New assembles a pipeline from its stages.
func New(
	guard *IdempotencyGuard,
	notifier notify.ResetPublisher,
	aggregator *Aggregator,
	pruner *Pruner,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		guard:        guard,
		notifier:     notifier,
		aggregator:   aggregator,
		pruner:       pruner,
		interval:     rollup.IntervalHour,
		stageTimeout: defaultStageTimeout,
		nowFn:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one pipeline pass. When the guard reports today's run already
// happened, the pass is skipped without error; force overrides the guard for
// operator-triggered reruns. Notification failures are logged and swallowed:
// losing one reset publish must not block aggregation or retention.
func (p *Pipeline) Run(ctx context.Context, force bool) (Report, error) {
	start := p.nowFn()
	report := Report{RunDate: truncateToDay(start)}

	acquired, err := p.guard.Acquire(ctx, start, force)
	if err != nil {
		return report, fmt.Errorf("idempotency guard: %w", err)
	}
	if !acquired {
		report.Skipped = true
		report.Duration = time.Since(start).String()
		return report, nil
	}

	slog.Info("[Pipeline] Starting daily rollup",
		"run_date", report.RunDate.Format("2006-01-02"),
		"forced", force,
	)

	if err := p.runStage(ctx, "notify", func(stageCtx context.Context) error {
		return p.notifier.PublishReset(stageCtx)
	}); err != nil {
		slog.Warn("[Pipeline] Reset notification failed, continuing", "error", err)
	}

	if err := p.runStage(ctx, "aggregate", func(stageCtx context.Context) error {
		written, stageErr := p.aggregator.Rollup(stageCtx, p.interval)
		report.AggregatesWritten = written
		return stageErr
	}); err != nil {
		return report, fmt.Errorf("aggregate stage: %w", err)
	}

	if err := p.runStage(ctx, "prune", func(stageCtx context.Context) error {
		pruned, stageErr := p.pruner.Prune(stageCtx)
		report.ReadingsPruned = pruned
		return stageErr
	}); err != nil {
		return report, fmt.Errorf("prune stage: %w", err)
	}

	report.Duration = time.Since(start).String()
	slog.Info("[Pipeline] Daily rollup complete",
		"run_date", report.RunDate.Format("2006-01-02"),
		"aggregates_written", report.AggregatesWritten,
		"readings_pruned", report.ReadingsPruned,
		"duration", report.Duration,
	)
	return report, nil
}

func (p *Pipeline) runStage(ctx context.Context, name string, fn func(context.Context) error) error {
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	if err := fn(stageCtx); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

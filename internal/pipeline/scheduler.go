package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/jma-weather-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Minute
)

// Scheduler drives the master pipeline and the orchestrator in serve mode.
// Cycles never overlap.
type Scheduler struct {
	master         *MasterPipeline
	orchestrator   *Orchestrator
	hierarchy      HierarchyStore
	clock          clockwork.Clock
	runInterval    time.Duration
	masterInterval time.Duration
	logger         *slog.Logger
	metrics        *observability.Metrics

	ready      atomic.Bool
	lastMaster time.Time
}

// SchedulerConfig holds the Scheduler intervals.
type SchedulerConfig struct {
	RunInterval    time.Duration
	MasterInterval time.Duration
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// NewScheduler creates a Scheduler.
func NewScheduler(master *MasterPipeline, orchestrator *Orchestrator, hierarchy HierarchyStore, cfg SchedulerConfig, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		master:         master,
		orchestrator:   orchestrator,
		hierarchy:      hierarchy,
		clock:          clock,
		runInterval:    cfg.RunInterval,
		masterInterval: cfg.MasterInterval,
		logger:         logger,
		metrics:        metrics,
	}
}

// CheckReadiness returns nil once a full cycle has succeeded, or an error
// describing why the service is not yet ready.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no successful run yet")
	}
	return nil
}

// Run executes cycles until the context is cancelled. A failed cycle is retried
// with exponential backoff starting at 200ms; a successful one waits for the
// run interval.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "run_interval", s.runInterval, "master_interval", s.masterInterval)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		default:
		}

		wait := s.runInterval
		s.metrics.PipelineRunning.Set(1)
		err := s.cycle(ctx)
		s.metrics.PipelineRunning.Set(0)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("scheduler stopping", "reason", ctx.Err())
				return nil
			}
			s.logger.Error("cycle failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = retry.NextBackoff(backoff, min(maxBackoff, s.runInterval))
		} else {
			backoff = initialBackoff
			s.ready.Store(true)
		}

		if !sleepWithContext(ctx, s.clock, wait) {
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// cycle runs the master pipeline when it is due, then one orchestrator run.
func (s *Scheduler) cycle(ctx context.Context) error {
	due, err := s.masterDue(ctx)
	if err != nil {
		return err
	}
	if due {
		if _, err := s.master.Run(ctx); err != nil {
			return err
		}
		s.lastMaster = s.clock.Now()
	}
	_, err = s.orchestrator.Run(ctx, RunOptions{Forecasts: true, Warnings: true})
	return err
}

// masterDue reports whether the hierarchy must be rebuilt. On the first cycle a
// populated hierarchy is trusted and the interval starts counting from now.
func (s *Scheduler) masterDue(ctx context.Context) (bool, error) {
	if !s.lastMaster.IsZero() {
		return s.clock.Since(s.lastMaster) >= s.masterInterval, nil
	}
	subRegions, err := s.hierarchy.SubRegions(ctx)
	if err != nil {
		return false, fmt.Errorf("load sub-regions: %w", err)
	}
	if len(subRegions) == 0 {
		return true, nil
	}
	s.lastMaster = s.clock.Now()
	return false, nil
}

// sleepWithContext follows retry.SleepWithContext but waits on the scheduler
// clock so tests can advance it.
func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

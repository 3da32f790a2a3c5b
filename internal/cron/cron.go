// Package cron runs the portal's housekeeping jobs on a fixed cadence.
// A Redis lock keeps concurrent worker replicas from sweeping twice.
package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/perkstack/rewards-backend/pkg/logger"
	"github.com/perkstack/rewards-backend/pkg/metrics"
)

const defaultSweepInterval = 24 * time.Hour

// Job is one unit of scheduled housekeeping work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// WorkerParams configure the housekeeping worker.
type WorkerParams struct {
	Logger   *logger.Logger
	Lock     Lock
	Jobs     []Job
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// Worker sweeps through its jobs once per interval while holding the lock.
type Worker struct {
	logg     *logger.Logger
	lock     Lock
	jobs     []Job
	metrics  *metrics.JobMetrics
	interval time.Duration
}

// NewWorker builds a housekeeping worker. Nil jobs are skipped.
func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	worker := &Worker{
		logg:     params.Logger,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}
	for _, job := range params.Jobs {
		if job != nil {
			worker.jobs = append(worker.jobs, job)
		}
	}
	return worker, nil
}

// Run sweeps immediately, then once per interval until the context ends.
func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := w.sweep(ctx); err != nil {
		w.logg.Error(ctx, "housekeeping sweep failed", err)
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logg.Info(ctx, "housekeeping worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.logg.Error(ctx, "housekeeping sweep failed", err)
			}
		}
	}
}

func (w *Worker) sweep(ctx context.Context) error {
	held, err := w.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !held {
		w.logg.Info(ctx, "another worker holds the sweep lock, skipping")
		return nil
	}
	defer func() {
		if err := w.lock.Release(ctx); err != nil {
			w.logg.Error(ctx, "failed to release sweep lock", err)
		}
	}()

	for _, job := range w.jobs {
		w.execute(ctx, job)
	}
	return nil
}

// execute runs one job; a failing job never stops the sweep.
func (w *Worker) execute(ctx context.Context, job Job) {
	jobCtx := w.logg.WithField(ctx, "job", job.Name())
	w.logg.Info(jobCtx, "job starting")
	start := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(start)
	w.metrics.ObserveRun(job.Name(), elapsed, err)
	jobCtx = w.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		w.logg.Error(jobCtx, "job failed", err)
		return
	}
	w.logg.Info(jobCtx, "job done")
}

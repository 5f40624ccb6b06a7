package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/factory"
)

// Runner executes one job run: take the lock, run, record the outcome.
// Errors end in logs and metrics; an unattended run has no caller to
// return them to.
type Runner struct {
	lock    Lock
	metrics *Metrics
	logger  logrus.FieldLogger
}

func NewRunner(lock Lock, metrics *Metrics) *Runner {
	if lock == nil {
		lock = &LocalLock{}
	}
	return &Runner{
		lock:    lock,
		metrics: metrics,
		logger:  factory.NewModuleLogger("jobs"),
	}
}

func (r *Runner) Run(ctx context.Context, name string, fn func(ctx context.Context) error) {
	logger := r.logger.WithField("job", name)

	acquired, err := r.lock.Acquire(ctx)
	if err != nil {
		r.metrics.IncFailure(name)
		logger.WithError(err).Error("job_lock_failed")
		return
	}
	if !acquired {
		r.metrics.IncSkipped(name)
		logger.Info("job_skipped_locked")
		return
	}
	defer func() {
		if err := r.lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.WithError(err).Warn("Failed to release job lock")
		}
	}()

	start := time.Now()
	err = fn(ctx)
	latency := time.Since(start)
	r.metrics.ObserveDuration(name, latency)
	if err != nil {
		r.metrics.IncFailure(name)
		logger.WithError(err).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	r.metrics.IncSuccess(name)
	logger.WithField("latency", latency.String()).Info("job_completed")
}

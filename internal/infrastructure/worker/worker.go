// Package worker runs periodic background jobs.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Job runs task every interval until the context is cancelled.
type Job struct {
	name     string
	interval time.Duration
	task     func(ctx context.Context) error
	logger   zerolog.Logger
}

// NewJob creates a Job.
func NewJob(name string, interval time.Duration, logger zerolog.Logger, task func(ctx context.Context) error) *Job {
	if interval <= 0 {
		interval = time.Minute
	}

	return &Job{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.With().Str("job", name).Logger(),
	}
}

// Name returns the job name.
func (j *Job) Name() string { return j.name }

// Start runs the task once and then on every tick. It returns ctx.Err().
func (j *Job) Start(ctx context.Context) error {
	j.logger.Info().Dur("interval", j.interval).Msg("job started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("job stopped")
			return ctx.Err()
		case <-ticker.C:
			j.run(ctx)
		}
	}
}

func (j *Job) run(ctx context.Context) {
	started := time.Now()
	if err := j.task(ctx); err != nil && ctx.Err() == nil {
		j.logger.Error().Err(err).Msg("job run failed")
		return
	}
	j.logger.Debug().Dur("took", time.Since(started)).Msg("job run finished")
}

// ForecastRefresher recomputes cached forecasts.
type ForecastRefresher interface {
	RefreshActive(ctx context.Context, batchSize int) (int, error)
}

// NewForecastRefreshJob keeps forecasts of active campaigns warm.
func NewForecastRefreshJob(f ForecastRefresher, batchSize int, interval time.Duration, logger zerolog.Logger) *Job {
	return NewJob("forecast_refresh", interval, logger, func(ctx context.Context) error {
		n, err := f.RefreshActive(ctx, batchSize)
		if n > 0 {
			logger.Debug().Int("refreshed", n).Msg("forecasts refreshed")
		}
		return err
	})
}

// IdempotencyPurger drops stored idempotency records.
type IdempotencyPurger interface {
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// NewIdempotencyPurgeJob deletes records older than retention.
func NewIdempotencyPurgeJob(p IdempotencyPurger, retention, interval time.Duration, logger zerolog.Logger) *Job {
	return NewJob("idempotency_purge", interval, logger, func(ctx context.Context) error {
		n, err := p.DeleteBefore(ctx, time.Now().Add(-retention))
		if n > 0 {
			logger.Info().Int64("deleted", n).Msg("expired idempotency records purged")
		}
		return err
	})
}

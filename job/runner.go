// Package job holds the scheduled entry points (factor estimation, snapshot
// precomputation) and the cron runner that triggers them.
package job

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/quarry/folio"
	"github.com/quarry/folio/metrics"
)

// A Job is one idempotent scheduled entry point. Running it twice for the
// same as-of date overwrites, never duplicates.
type Job func(ctx context.Context, asOf folio.Date) error

// Runner triggers jobs on cron schedules. Schedules use the six-field form
// with a seconds column.
type Runner struct {
	cron    *cron.Cron
	log     *zap.Logger
	baseCtx context.Context
}

func NewRunner(log *zap.Logger, baseCtx context.Context) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds()),
		log:     log,
		baseCtx: baseCtx,
	}
}

// Add schedules a job. Every run is logged and instrumented; a provider rate
// limit is a distinct outcome since the next scheduled run retries anyway.
func (r *Runner) Add(name, spec string, job Job) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		start := time.Now()
		err := job(r.baseCtx, folio.Today())
		metrics.JobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		outcome := "ok"
		switch {
		case errors.Is(err, folio.ErrRateLimited):
			outcome = "rate_limited"
			metrics.ProviderRateLimited.Inc()
			r.log.Warn("job rate limited, will retry on next run",
				zap.String("job", name), zap.Error(err))
		case err != nil:
			outcome = "error"
			r.log.Error("job failed", zap.String("job", name), zap.Error(err))
		default:
			r.log.Info("job completed",
				zap.String("job", name), zap.Duration("took", time.Since(start)))
		}
		metrics.JobRuns.WithLabelValues(name, outcome).Inc()
	})
}

func (r *Runner) Start() {
	r.log.Info("cron started")
	r.cron.Start()
}

// Stop waits for any running job to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.log.Info("cron stopped")
}

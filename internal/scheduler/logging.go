package scheduler

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/tigerlife/internal/observability/context"
	obslogger "github.com/smallbiznis/tigerlife/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tigerlife/internal/observability/metrics"
	"go.uber.org/zap"
)

// jobRun tracks one execution of a job. Jobs reach it through their context.
type jobRun struct {
	job       string
	id        string
	started   time.Time
	processed int
	log       *zap.Logger
}

type jobRunKey struct{}

func (s *Scheduler) beginRun(ctx context.Context, job string) (context.Context, *jobRun) {
	ctx = obscontext.WithActor(ctx, obscontext.ActorTypeSystem, "scheduler")
	run := &jobRun{
		job:     job,
		id:      s.genID.Generate().String(),
		started: time.Now(),
	}
	run.log = obslogger.WithContext(ctx, s.log).With(
		zap.String("job", job),
		zap.String("run_id", run.id),
	)
	run.log.Debug("job started", zap.Int("batch_size", s.cfg.BatchSize))
	return context.WithValue(ctx, jobRunKey{}, run), run
}

func currentRun(ctx context.Context) *jobRun {
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

func (r *jobRun) logger() *zap.Logger {
	if r == nil {
		return zap.L()
	}
	return r.log
}

func (r *jobRun) addProcessed(n int) {
	if r != nil && n > 0 {
		r.processed += n
	}
}

// fail reports a job step error with its classified reason.
func (r *jobRun) fail(msg string, err error) {
	r.logger().Error(msg,
		zap.String("reason", obsmetrics.ClassifySchedulerJobReason(err)),
		zap.Error(err),
	)
}

func (r *jobRun) end(err error) {
	fields := []zap.Field{
		zap.Duration("elapsed", time.Since(r.started)),
		zap.Int("processed", r.processed),
	}
	if err != nil {
		r.log.Warn("job finished with error", append(fields, zap.Error(err))...)
		return
	}
	r.log.Info("job finished", fields...)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Motaplivia/tudinhoo/internal/logging"
)

// Jobs runs recurring background work such as the morning digest and token cleanup.
type Jobs struct {
	cron    *cron.Cron
	log     *zap.SugaredLogger
	timeout time.Duration
}

func NewJobs(loc *time.Location, log *zap.SugaredLogger) *Jobs {
	log = log.With("component", "jobs")
	cronLog := cron.PrintfLogger(logging.StdLogger(log, "cron"))
	return &Jobs{
		cron:    cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		log:     log,
		timeout: 2 * time.Minute,
	}
}

// Daily registers job to run every day at the HH:MM clock time.
func (j *Jobs) Daily(at, name string, job func(ctx context.Context) error) (cron.EntryID, error) {
	clock, err := time.Parse("15:04", at)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", at)
	}
	expr := fmt.Sprintf("%d %d * * *", clock.Minute(), clock.Hour())
	return j.cron.AddFunc(expr, j.wrap(name, job))
}

// Every registers job to run at a fixed interval.
func (j *Jobs) Every(interval time.Duration, name string, job func(ctx context.Context) error) (cron.EntryID, error) {
	if interval < time.Second {
		return 0, fmt.Errorf("interval must be at least one second")
	}
	return j.cron.Schedule(cron.Every(interval), cron.FuncJob(j.wrap(name, job))), nil
}

func (j *Jobs) wrap(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()
		started := time.Now()
		if err := job(ctx); err != nil {
			j.log.Errorw("job failed", "job", name, "error", err)
			return
		}
		j.log.Debugw("job finished", "job", name, "took", time.Since(started))
	}
}

func (j *Jobs) Start() {
	j.cron.Start()
}

// Stop waits for running jobs to finish.
func (j *Jobs) Stop() {
	<-j.cron.Stop().Done()
}

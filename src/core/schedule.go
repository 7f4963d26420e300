package core

import (
	"context"

	"github.com/robfig/cron/v3"
)

// CreateRefreshSchedule runs RefreshAll once immediately and then on spec
// until ctx is done. A run still in progress when the next one is due makes
// the next one skip.
func CreateRefreshSchedule(ctx context.Context, r *Refresher, spec string) error {
	logger := cron.VerbosePrintfLogger(r.logger)
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	job := cron.FuncJob(func() {
		if _, err := r.RefreshAll(ctx); err != nil {
			r.logger.WithError(err).Error("scheduled refresh failed")
		}
	})
	if _, err := c.AddJob(spec, job); err != nil {
		return err
	}

	r.logger.WithField("schedule", spec).Info("refresh scheduled")
	c.Start()
	// 启动时先执行一次
	c.Entries()[0].WrappedJob.Run()

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return nil
}

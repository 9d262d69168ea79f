package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/thep200/github-stats-pipeline/internal/crawler"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

// Job crawls one window.
type Job func(ctx context.Context, from, to time.Time) error

// Schedule runs job on every tick of spec (standard five-field cron, UTC) for
// the day before the tick, until ctx ends. Ticks never overlap.
func Schedule(ctx context.Context, logger log.Logger, spec string, job Job) error {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	_, err := c.AddFunc(spec, func() {
		day := crawler.Day(time.Now()).AddDate(0, 0, -1)
		if err := job(ctx, day, day); err != nil {
			logger.Error(ctx, "Scheduled crawl of %s failed: %v", day.Format("2006-01-02"), err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	logger.Info(ctx, "Scheduled daily crawl with %q", spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

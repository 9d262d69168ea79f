package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/internal/crawler"
	githubapi "github.com/thep200/github-stats-pipeline/internal/github_api"
	"github.com/thep200/github-stats-pipeline/internal/limiter"
	"github.com/thep200/github-stats-pipeline/internal/pipeline"
	"github.com/thep200/github-stats-pipeline/internal/transport"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

type options struct {
	configDir string
	kind      string
	from      string
	to        string
	daysBack  int
	transport string
	schedule  string
}

func main() {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "run",
		Short: "Crawl GitHub repositories by creation day and publish per-day statistics",
		Long: `run searches the repositories created on every day of a window, classifies
them and publishes one aggregate per statistic kind and day to the kind's topic.
With --schedule it stays up and crawls the previous day on every tick.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&opts.configDir, "config", "", "directory holding mode.yaml (default cfg/yaml)")
	flags.StringVar(&opts.kind, "kind", "all", "statistic to crawl: commits, lang, tdd, tdd_cicd or all")
	flags.StringVar(&opts.from, "from", "", "first day, YYYY-MM-DD (default crawl.from or today minus days-back)")
	flags.StringVar(&opts.to, "to", "", "last day, YYYY-MM-DD (default crawl.to or today)")
	flags.IntVar(&opts.daysBack, "days-back", 0, "days before --to to include when --from is empty (default crawl.days_back)")
	flags.StringVar(&opts.transport, "transport", transport.KindKafka, "topic transport: kafka, or memory (in-process only, nothing survives exit)")
	flags.StringVar(&opts.schedule, "schedule", "", "cron spec; when set, crawl the previous day on every tick (default crawl.schedule)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cobra.Command, opts *options) error {
	config, logger, err := pipeline.Bootstrap(opts.configDir)
	if err != nil {
		return err
	}
	if err := config.ValidateProducer(); err != nil {
		logger.Critical(ctx, "%v", err)
		return err
	}

	kinds, err := pipeline.ParseKinds(opts.kind)
	if err != nil {
		return err
	}

	tr, err := transport.Open(opts.transport, config, logger.With("transport"))
	if err != nil {
		return err
	}
	defer tr.Close()

	httpClient, err := githubapi.NewHTTPClient(config)
	if err != nil {
		return err
	}
	newSource := func() (crawler.Source, error) {
		return newCaller(config, logger.With("github"), httpClient)
	}
	producer := pipeline.NewProducer(logger.With("crawler"), config, tr, newSource)

	schedule := config.Crawl.Schedule
	if cmd.Flags().Changed("schedule") {
		schedule = opts.schedule
	}
	if schedule != "" {
		return pipeline.Schedule(ctx, logger.With("schedule"), schedule, func(ctx context.Context, from, to time.Time) error {
			return producer.Run(ctx, kinds, from, to)
		})
	}

	from, to := firstNonEmpty(opts.from, config.Crawl.From), firstNonEmpty(opts.to, config.Crawl.To)
	daysBack := config.Crawl.DaysBack
	if cmd.Flags().Changed("days-back") {
		daysBack = opts.daysBack
	}
	start, end, err := crawler.ResolveWindow(time.Now(), from, to, daysBack)
	if err != nil {
		return err
	}

	logger.Info(ctx, "Starting GitHub statistics crawl of %v", kinds)
	if err := producer.Run(ctx, kinds, start, end); err != nil {
		logger.Error(ctx, "Crawl failed: %v", err)
		return err
	}
	logger.Info(ctx, "Successfully!")
	return nil
}

func newCaller(config *cfg.Config, logger log.Logger, httpClient *http.Client) (crawler.Source, error) {
	caller, err := githubapi.NewCaller(logger, config, httpClient, limiter.RealClock{})
	if err != nil {
		return nil, fmt.Errorf("failed to build GitHub caller: %w", err)
	}
	return caller, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/thep200/github-stats-pipeline/internal/consumer"
	"github.com/thep200/github-stats-pipeline/internal/pipeline"
	"github.com/thep200/github-stats-pipeline/internal/transport"
)

func main() {
	var configDir, transportKind string
	rootCmd := &cobra.Command{
		Use:   "consumer",
		Short: "Append every statistic topic to its JSONL log",
		Long: `consumer joins the shared subscription on all statistic topics and appends
each message to the log of its topic. A message is acknowledged only once its
line is on disk. Start several to split the stream between them.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			config, logger, err := pipeline.Bootstrap(configDir)
			if err != nil {
				return err
			}

			tr, err := transport.Open(transportKind, config, logger.With("transport"))
			if err != nil {
				return err
			}
			defer tr.Close()

			c, err := consumer.NewConsumer(logger.With("consumer"), config, tr)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Run(ctx); err != nil {
				logger.Error(ctx, "Consumer stopped: %v", err)
				return err
			}
			logger.Info(ctx, "Received shutdown signal, %d messages appended, %d dropped", c.Handled(), c.Dropped())
			return nil
		},
	}
	rootCmd.Flags().StringVar(&configDir, "config", "", "directory holding mode.yaml (default cfg/yaml)")
	rootCmd.Flags().StringVar(&transportKind, "transport", transport.KindKafka, "topic transport: kafka, or memory (in-process only, nothing survives exit)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

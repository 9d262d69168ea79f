package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/thep200/github-stats-pipeline/internal/model"
	"github.com/thep200/github-stats-pipeline/internal/pipeline"
	"github.com/thep200/github-stats-pipeline/internal/report"
	"github.com/thep200/github-stats-pipeline/pkg/db"
)

func main() {
	var configDir string
	var top int
	var store bool
	rootCmd := &cobra.Command{
		Use:          "report",
		Short:        "Replay the JSONL logs into ranked statistics",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			config, logger, err := pipeline.Bootstrap(configDir)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("top") {
				top = config.Report.Top
			}
			if !cmd.Flags().Changed("store") {
				store = config.Report.Store
			}

			rep, err := report.NewAccumulator(logger.With("report"), config).Build(ctx)
			if err != nil {
				return err
			}
			report.Render(cmd.OutOrStdout(), rep, top)

			if !store {
				return nil
			}
			database, err := db.NewDatabase(config)
			if err != nil {
				return err
			}
			defer database.Close()
			summary, err := model.NewSummary(config, logger.With("db"), database)
			if err != nil {
				return err
			}
			if err := database.Migrate(summary); err != nil {
				logger.Error(ctx, "Failed to migrate summaries: %v", err)
				return err
			}
			summaryStore := report.NewStore(summary)
			if err := summaryStore.Save(rep, top); err != nil {
				return err
			}
			saved, err := summaryStore.Saved()
			if err != nil {
				return err
			}
			report.RenderStored(cmd.OutOrStdout(), saved)
			return nil
		},
	}
	rootCmd.Flags().StringVar(&configDir, "config", "", "directory holding mode.yaml (default cfg/yaml)")
	rootCmd.Flags().IntVar(&top, "top", 10, "rows per statistic, 0 for all (default report.top)")
	rootCmd.Flags().BoolVar(&store, "store", false, "save the rankings to the summaries table (default report.store)")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

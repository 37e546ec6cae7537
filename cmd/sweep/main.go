package main

import (
	"context"
	"os"
	"time"

	"Lynx-Backend/internal/analytics"
	"Lynx-Backend/internal/config"
	"Lynx-Backend/internal/database"
	"Lynx-Backend/internal/repository/postgres"
	"Lynx-Backend/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// lynx-sweep prunes analytics events that have outlived the retention
// window of their owner's plan. Intended to run from cron.
func main() {
	var timeout time.Duration

	rootCmd := &cobra.Command{
		Use:          "lynx-sweep",
		Short:        "Delete analytics events past their plan's retention window",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoad()

			log := logger.New(cfg.Env)
			defer func() { _ = log.Sync() }()

			db, err := database.NewConnection(&cfg.Database, log)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db, log) }()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			sweeper := analytics.NewSweeper(postgres.New(db, log), log)
			deleted, err := sweeper.Run(ctx)
			if err != nil {
				return err
			}

			log.Info("sweep finished", zap.Int64("deleted_events", deleted))
			return nil
		},
	}

	rootCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "maximum time to spend sweeping")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/content-threads-api/internal/app"
	"github.com/content-threads-api/internal/config"
	"github.com/content-threads-api/internal/database"
	"github.com/content-threads-api/internal/service"
	"github.com/content-threads-api/pkg/logger"
)

var (
	cfg *config.Config
	log zerolog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "rollup",
		Short:         "Monthly comment statistics for the content threads API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig()
		},
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(daemonCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() error {
	log = logger.New()

	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg = loaded
	log = log.Level(logger.ParseLevel(cfg.Log.Level)).With().Str("component", "rollup-cli").Logger()
	return nil
}

func runCmd() *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Aggregate comment counts for one month",
		Long:  "Counts root comments per active author and globally for the given month and records the run. Defaults to the previous calendar month.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if year == 0 && month == 0 {
				year, month = service.PreviousMonth(time.Now())
			}
			if month < 1 || month > 12 {
				return fmt.Errorf("month must be between 1 and 12, got %d", month)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.Open(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer application.Close(context.Background())

			report, err := application.Services.Scheduler.RunNow(ctx, year, month)
			if err != nil {
				return fmt.Errorf("rollup %04d-%02d: %w", year, month, err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "year to aggregate (default: previous month)")
	cmd.Flags().IntVar(&month, "month", 0, "month to aggregate, 1-12 (default: previous month)")
	cmd.MarkFlagsRequiredTogether("year", "month")

	return cmd
}

func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the monthly rollup scheduler in the foreground",
		Long:  "Keeps running and aggregates the previous month on the configured day and time (ROLLUP_DAY_OF_MONTH, ROLLUP_AT). Stops on SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Rollup.Enabled = true

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.Open(ctx, cfg, log)
			if err != nil {
				return err
			}

			log.Info().Msg("Rollup daemon started")
			application.Services.Scheduler.Start(ctx)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			application.Close(shutdownCtx)

			log.Info().Msg("Rollup daemon exited")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the statistics database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(db *database.DB) error {
				return db.RunMigrations()
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert every applied migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(db *database.DB) error {
				return db.MigrateDown()
			})
		},
	})

	return cmd
}

func withDatabase(fn func(db *database.DB) error) error {
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(db)
}

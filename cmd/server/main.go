package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"homecare-dashboard/internal/config"
	"homecare-dashboard/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "homecare",
	Short: "Home care health dashboard",
	Long: `Web dashboard for tracking daily vital signs, medications and
health reports.

Available subcommands:
  serve   - Run the web server, the gRPC health probe and the reminder job
  migrate - Apply database migrations and exit
  seed    - Fill an account's empty history with demo readings
  remind  - Send the medication reminders for the current hour once`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(remindCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads config, builds the logger and opens the database.
func bootstrap(ctx context.Context) (*config.Config, *logrus.Logger, *store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	log := config.NewLogger(cfg)

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Info("connected to postgres")
	return cfg, log, st, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, log, st, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		applied, err := st.Migrate(cmd.Context())
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			log.Info("database is up to date")
		}
		for _, name := range applied {
			log.WithField("migration", name).Info("migration applied")
		}
		return nil
	},
}

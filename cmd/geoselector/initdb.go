package main

import (
	"github.com/spf13/cobra"

	"geoselector/pkg/logger"
	"geoselector/pkg/store"
	"geoselector/pkg/ui"
)

// initDBCmd represents the init-db command
var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the region, station and sublocality tables",
	Long: `Create the tables the crawler writes to when they do not exist yet.
Existing tables and rows are left untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := globalFlags(cmd)
		if cmd.Flags().Changed("db-driver") {
			flags["db-driver"] = dbDriver
		}
		if cmd.Flags().Changed("dsn") {
			flags["dsn"] = dsn
		}
		cfg, err := loadConfig(flags)
		if err != nil {
			return err
		}

		term := ui.NewTerminal(quiet, cfg.Logging.NoColor)
		opts := store.Options{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN, Logger: logger.GetLogger()}
		err = store.WithStore(cmd.Context(), opts, func(s *store.Store) error {
			return s.EnsureSchema(cmd.Context())
		})
		if err != nil {
			return err
		}
		term.PrintSuccess("Schema ready")
		term.PrintInfo("Database", cfg.Database.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initDBCmd)

	initDBCmd.Flags().StringVar(&dbDriver, "db-driver", "", "database driver (sqlite, postgres, mysql)")
	initDBCmd.Flags().StringVar(&dsn, "dsn", "", "database connection string")
}

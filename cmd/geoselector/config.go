package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"geoselector/pkg/config"
	errs "geoselector/pkg/errors"
	"geoselector/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file with every option set to its default.

The file is created as .geoselector.yaml in the current directory unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		term := ui.NewTerminal(quiet, noColor)
		path := configFile
		if path == "" {
			path = ".geoselector.yaml"
		}
		if _, err := os.Stat(path); err == nil {
			return errs.Newf(errs.ErrorTypeConfig, "config init", "%s already exists", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return errs.Wrap(errs.ErrorTypeConfig, "config init", err)
		}
		term.PrintSuccess("Configuration written")
		term.PrintInfo("Path", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging defaults, the configuration file,
environment variables and flags. Credentials in the DSN are masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(globalFlags(cmd))
		if err != nil {
			return err
		}

		display := *cfg
		display.Database.DSN = maskDSN(display.Database.DSN)
		data, err := yaml.Marshal(&display)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeConfig, "config show", err)
		}

		term := ui.NewTerminal(quiet, cfg.Logging.NoColor)
		term.PrintHighlight("Current Configuration")
		fmt.Fprint(term.Out(), string(data))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(globalFlags(cmd)); err != nil {
			return err
		}
		ui.NewTerminal(quiet, noColor).PrintSuccess("Configuration is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

// maskDSN hides the user info of a connection string
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	if scheme := strings.Index(dsn, "://"); scheme >= 0 && scheme < at {
		return dsn[:scheme+3] + "***" + dsn[at:]
	}
	return "***" + dsn[at:]
}

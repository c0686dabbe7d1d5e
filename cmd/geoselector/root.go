package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"geoselector/pkg/config"
	errs "geoselector/pkg/errors"
	"geoselector/pkg/logger"
	"geoselector/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "geoselector",
	Short: "Crawl the realty geoselector region tree into SQL",
	Long: `geoselector walks the region tree exposed by the realty geoselector
service and stores every region together with its metro stations and
sub-localities.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - GEOSELECTOR_* environment variables and .env files
  - Configuration file (.geoselector.yaml, ~/.config/geoselector/config.yaml)
  - Default values (lowest priority)`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// versionCmd prints the same text as --version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), versionText())
	},
}

func versionText() string {
	return fmt.Sprintf(`geoselector %s
Go Version: %s
OS/Arch: %s/%s
`, rootCmd.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Execute runs the root command and exits non-zero naming the failed phase
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		term := ui.NewTerminal(false, noColor)
		term.PrintError(fmt.Sprintf("%s failed", errs.Phase(err)), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.geoselector.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate("{{with .Version}}geoselector {{.}}\n{{end}}")
	rootCmd.AddCommand(versionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags collects the persistent flags the user actually set
func globalFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("log-level") {
		flags["log-level"] = logLevel
	}
	if cmd.Flags().Changed("no-color") {
		flags["no-color"] = noColor
	}
	return flags
}

// loadConfig loads the configuration, applies flags and initializes the
// global logger.
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, "load config", err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, "init logger", err)
	}
	return cfg, nil
}

/*
main.go - Application entry point

PURPOSE:
  The storemap binary: serves the lookup API for the map widget and
  offers one-shot lookups and cache maintenance from the terminal.

COMMANDS:
  serve            Start the HTTP API, load the catalog in the background
  lookup [query]   Load the catalog once and print the matches
  cache show       Print what the local cache holds
  cache clear      Delete the cached catalog

GLOBAL FLAGS:
  --config      YAML config file (default: storemap.yaml, optional)
  --endpoint    Catalog endpoint URL
  --db          SQLite database path (":memory:" for none)
  --log-level   debug, info, warn, error
  --dev         Console logging

  Flags override STOREMAP_* environment variables, which override the
  config file. See config/config.go.

SEE ALSO:
  - serve.go, lookup.go, cache.go: Subcommands
  - app.go: Dependency wiring
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/storemap/config"
	"github.com/warp/storemap/logging"
)

var (
	// Global flags
	configPath string
	endpoint   string
	dbPath     string
	logLevel   string
	devLogging bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "storemap",
	Short: "Store map lookup service",
	Long: `storemap finds products on the store map.

It fetches the product catalog and the shelf table from the configured
endpoint, keeps a local cache so lookups keep working offline, and
resolves every product to a pin or a line on the map image.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlags(cmd)

		logger, err = logging.New(cfg.LogLevel, cfg.LogDevelopment)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		cfg.Endpoint = endpoint
	}
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("dev") {
		cfg.LogDevelopment = devLogging
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "storemap.yaml", "config file")
	pf.StringVar(&endpoint, "endpoint", "", "catalog endpoint URL")
	pf.StringVar(&dbPath, "db", "", "SQLite database path")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&devLogging, "dev", false, "console logging")

	rootCmd.AddCommand(serveCmd, lookupCmd, cacheCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pthm/categorytree/internal/cli"
	"github.com/pthm/categorytree/internal/logging"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string

	// Persistent flags
	cfgFile string
	verbose int
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "cattree",
	Short: "Storefront category tree queries",
	Long: `cattree - storefront category tree queries

cattree translates a GraphQL field selection into a single attribute-joined
SQL query over a materialized-path category table.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}

		setupLogging()
		logging.Debug().Str("config", configPath).Msg("configuration loaded")
		return nil
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupQuery   = "query"
	groupCatalog = "catalog"
	groupUtility = "utility"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover cattree.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupQuery, Title: "Query:"},
		&cobra.Group{ID: groupCatalog, Title: "Catalog:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	treeCmd.GroupID = groupQuery
	sqlCmd.GroupID = groupQuery
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(sqlCmd)

	migrateCmd.GroupID = groupCatalog
	doctorCmd.GroupID = groupCatalog
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(doctorCmd)

	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// setupLogging installs the global logger. Each -v lowers the level by one
// step from the configured level; --quiet limits output to errors.
func setupLogging() {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || cfg.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	level -= zerolog.Level(verbose)
	if level < zerolog.TraceLevel {
		level = zerolog.TraceLevel
	}
	if quiet {
		level = zerolog.ErrorLevel
	}
	logging.SetGlobalLogger(logging.New(os.Stderr, level.String(), cfg.Log.Pretty))
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/vigil/internal/config"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Vigil - event-sourced suspicion engine for simulated towns",
	Long: `Vigil records what happens in a simulated town as a stream of typed events
and turns violations, gossip and witness reports into interrogations and
verdicts.

The CLI works on persisted event logs: replay them through a fresh engine,
list and filter them, or watch a running engine's live stream over Redis.

Host settings come from the environment:
  VIGIL_INSTANCE     instance name (default "default")
  VIGIL_REDIS_URL    redis:// URL for the live stream and event list
  VIGIL_SQL_DRIVER   sqlite or pgx (default sqlite)
  VIGIL_SQL_DSN      database for the SQL event table
  VIGIL_LOG_PATH     JSON lines file written by replays
  VIGIL_LOG_LEVEL    debug, info, warn or error (default info)
  VIGIL_LOG_FORMAT   json or console (default json)`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", config.FileName, "Path to the engine configuration")
}

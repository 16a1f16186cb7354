package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ghgate",
	Short: "Sign in to a GitHub organization with a personal access token",
	Long: `ghgate verifies a GitHub personal access token, checks the owner's
membership in an organization, and keeps the resulting session in the
system keychain so later commands can gate what they show by role.

Configuration is read from $GHGATE_HOME/config.yaml (default ~/.ghgate)
and can be overridden with GHGATE_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which commands use to
// cancel in-flight API requests.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $GHGATE_HOME/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
}

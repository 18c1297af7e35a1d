// Package cli implements the rolegate command line.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mrlokans/rolegate/internal/config"
	"github.com/mrlokans/rolegate/internal/logging"
)

// Set by Execute from the build's ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// global flags
var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "rolegate",
	Short: "Role-gated HTTP demo with API key and session authentication",
	Long: `rolegate serves a small set of role-protected endpoints.

In apikey mode callers send a static key in the Authorization header.
In session mode users sign up and log in with a password and receive a
signed access_token cookie.

Configuration is read from environment variables (AUTH_MODE, PORT,
DATABASE_PATH, AUTH_SESSION_SECRET, ...).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		logging.Init(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
		return nil
	},
}

// Execute runs the root command.
func Execute(v, c string) {
	version, commit = v, c
	rootCmd.Version = v
	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} {{.Version}} (commit %s)\n", c))
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("execution failed")
		os.Exit(1)
	}
}

func init() {
	// setup pre-flag logger
	logging.InitDefault()

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console, json); overrides LOG_FORMAT")

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

// loadConfig reads the environment and applies command line overrides.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.NewConfig()
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if f := cmd.Flags().Lookup("mode"); f != nil && f.Changed {
		cfg.Auth.Mode = config.AuthMode(f.Value.String())
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		if port, err := cmd.Flags().GetInt32("port"); err == nil {
			cfg.HTTP.Port = port
		}
	}
	return cfg
}

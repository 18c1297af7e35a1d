package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/rolegate/internal/entrypoint"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Example: `  AUTH_MODE=apikey rolegate serve
  AUTH_SESSION_SECRET=$(openssl rand -hex 32) rolegate serve --mode session --port 8080`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return entrypoint.Run(loadConfig(cmd), version)
	},
}

func init() {
	serveCmd.Flags().String("mode", "", "Authentication mode: apikey or session (overrides AUTH_MODE)")
	serveCmd.Flags().Int32("port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

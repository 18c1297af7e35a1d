package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "rolegate %s (commit %s, %s)\n", version, commit, runtime.Version())
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrlokans/rolegate/internal/auth"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Read a password from stdin and print its bcrypt hash",
	Long: `Reads one line from stdin and prints a bcrypt hash using AUTH_BCRYPT_COST.
Useful for provisioning password users directly in the database.`,
	Example: `  echo -n 'pw123' | rolegate hash-password`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)

		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("no password on stdin")
		}
		password := strings.TrimRight(line, "\r\n")

		hash, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost, cfg.Auth.MinPasswordLength).Hash(password)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
		return err
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}

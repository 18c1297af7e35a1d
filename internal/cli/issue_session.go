package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/rolegate/internal/auth"
)

var issueTTL string

var issueSessionCmd = &cobra.Command{
	Use:   "issue-session <username>",
	Short: "Mint a session token for debugging",
	Long: `Signs a session token for the given username with AUTH_SESSION_SECRET.
The token is accepted by a session-mode server using the same secret, as
long as the user exists in its store.`,
	Example: `  rolegate issue-session bob --ttl 5m`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		if cfg.Auth.SessionSecret == "" {
			return errors.New("AUTH_SESSION_SECRET must be set")
		}

		ttl := cfg.Auth.SessionTTL
		if issueTTL != "" {
			parsed, err := parseTTL(issueTTL)
			if err != nil {
				return err
			}
			ttl = parsed
		}

		issuer, err := auth.NewSessionIssuer(auth.DecodeSecret(cfg.Auth.SessionSecret), ttl, nil)
		if err != nil {
			return err
		}
		token, err := issuer.Issue(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	issueSessionCmd.Flags().StringVar(&issueTTL, "ttl", "", "Token lifetime, e.g. 5m (defaults to AUTH_SESSION_TTL)")
	rootCmd.AddCommand(issueSessionCmd)
}

package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrlokans/rolegate/internal/database"
	"github.com/mrlokans/rolegate/internal/database/audit"
	"github.com/mrlokans/rolegate/internal/entities"
)

var (
	auditUsername string
	auditAction   string
	auditLimit    int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recorded authentication events",
	Long: `Prints the most recent signup, login, logout, lockout and access denied
events from the database at DATABASE_PATH, newest first.`,
	Example: `  DATABASE_PATH=rolegate.db rolegate audit --action access_denied --limit 20`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		if cfg.Database.Path == "" {
			return errors.New("DATABASE_PATH must be set")
		}

		db, err := database.NewDatabase(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		events, total, err := audit.NewRepository(db.DB).GetEvents(audit.Filter{
			Username: auditUsername,
			Action:   entities.AuditAction(auditAction),
			Limit:    auditLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to list audit events: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tACTION\tSTATUS\tUSER\tROLE\tREQUIRED\tIP")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				e.CreatedAt.UTC().Format(time.RFC3339), e.Action, e.Status,
				e.Username, e.Role, e.Required, e.IPAddress)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d of %d events\n", len(events), total)
		return err
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditUsername, "username", "", "Only events for this username")
	auditCmd.Flags().StringVar(&auditAction, "action", "", "Only this action (signup, login, logout, lockout, access_denied)")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "Maximum number of events")
	rootCmd.AddCommand(auditCmd)
}

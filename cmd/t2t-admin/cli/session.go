package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/text2trait/t2t/internal/service"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and revoke admin sessions",
	}

	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionRevokeCmd())
	cmd.AddCommand(newSessionPurgeCmd())

	return cmd
}

// ---------- session list ----------

func newSessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list EMAIL",
		Aliases: []string{"ls"},
		Short:   "List an admin's active sessions",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, svc *services) error {
				return runSessionList(ctx, cmd.OutOrStdout(), svc, args[0])
			})
		},
	}
}

func runSessionList(ctx context.Context, w io.Writer, svc *services, email string) error {
	admin, err := svc.creds.Lookup(ctx, email)
	if errors.Is(err, service.ErrNotFound) {
		return fmt.Errorf("admin %s not found", email)
	}
	if err != nil {
		return err
	}

	sessions, err := svc.sessions.ListSessions(ctx, admin.ID)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintf(w, "%s has no active sessions.\n", admin.Email)
		return nil
	}

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.ID,
			s.CreatedAt.UTC().Format("2006-01-02 15:04"),
			s.ExpiresAt.UTC().Format("2006-01-02 15:04"),
			s.IPAddress,
			s.Device,
		})
	}
	printTable(w, []string{"ID", "Created", "Expires", "IP", "Device"}, rows)
	return nil
}

// ---------- session revoke ----------

func newSessionRevokeCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "revoke EMAIL",
		Short: "Sign an admin out of every session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := confirm(fmt.Sprintf("Revoke every session of %s", args[0]), yes); err != nil {
				return err
			}
			return withServices(func(ctx context.Context, svc *services) error {
				return runSessionRevoke(ctx, cmd.OutOrStdout(), svc, args[0])
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runSessionRevoke(ctx context.Context, w io.Writer, svc *services, email string) error {
	admin, err := svc.creds.Lookup(ctx, email)
	if errors.Is(err, service.ErrNotFound) {
		return fmt.Errorf("admin %s not found", email)
	}
	if err != nil {
		return err
	}

	n, err := svc.sessions.RevokeAll(ctx, admin.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Revoked %d session(s) for %s\n", n, admin.Email)
	return nil
}

// ---------- session purge ----------

func newSessionPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired sessions from the store",
		Long: `Delete every session whose expiry has passed.

Expired sessions are already rejected and removed when presented; purge only
reclaims rows for tokens that were never used again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, svc *services) error {
				n, err := svc.sessions.PurgeExpired(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired session(s)\n", n)
				return nil
			})
		},
	}
}

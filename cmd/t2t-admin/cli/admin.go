package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/text2trait/t2t/internal/model"
	"github.com/text2trait/t2t/internal/service"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
		Long:  "Provision, reset, disable, enable and list the administrators who can sign in to Text2Trait.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminResetCmd())
	cmd.AddCommand(newAdminSetActiveCmd("disable", false))
	cmd.AddCommand(newAdminSetActiveCmd("enable", true))
	cmd.AddCommand(newAdminListCmd())

	return cmd
}

// withServices opens the store, builds the managers and closes the store
// when fn returns.
func withServices(fn func(ctx context.Context, svc *services) error) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := newServices(store, nil, newLogger(os.Stderr))
	if err != nil {
		return err
	}
	return fn(context.Background(), svc)
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		name       string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "create EMAIL",
		Short: "Create an admin with a generated password",
		Example: `  t2t-admin admin create alice@example.org --name "Alice"
  t2t-admin admin create alice@example.org --output-file alice.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h := newHandoff(cmd.OutOrStdout(), outputFile)
			return withServices(func(ctx context.Context, svc *services) error {
				return runAdminCreate(ctx, svc.creds, h, args[0], name)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (default: the email local part)")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "Write the password to this new file (mode 0600) instead of the terminal")

	return cmd
}

func runAdminCreate(ctx context.Context, creds *service.CredentialManager, h *handoff, email, name string) error {
	if err := h.check(); err != nil {
		return err
	}

	admin, password, err := creds.ProvisionAccount(ctx, email, name)
	switch {
	case errors.Is(err, service.ErrAlreadyExists):
		return fmt.Errorf("admin %s already exists; use 't2t-admin admin reset %s' to issue a new password", email, email)
	case err != nil:
		return err
	}

	return h.deliver("Admin account created", admin.Email, password)
}

// ---------- admin reset ----------

func newAdminResetCmd() *cobra.Command {
	var (
		outputFile     string
		revokeSessions bool
		yes            bool
	)

	cmd := &cobra.Command{
		Use:   "reset EMAIL",
		Short: "Issue a new generated password for an admin",
		Long: `Replace an admin's password with a newly generated one.

Existing sessions stay valid unless --revoke-sessions is given or
auth.revoke_sessions_on_reset is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := confirm(fmt.Sprintf("Reset the password for %s", args[0]), yes); err != nil {
				return err
			}
			if cmd.Flags().Changed("revoke-sessions") {
				viper.Set("auth.revoke_sessions_on_reset", revokeSessions)
			}
			h := newHandoff(cmd.OutOrStdout(), outputFile)
			return withServices(func(ctx context.Context, svc *services) error {
				return runAdminReset(ctx, svc.creds, h, args[0])
			})
		},
	}

	cmd.Flags().StringVar(&outputFile, "output-file", "", "Write the password to this new file (mode 0600) instead of the terminal")
	cmd.Flags().BoolVar(&revokeSessions, "revoke-sessions", false, "Also sign the admin out everywhere")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runAdminReset(ctx context.Context, creds *service.CredentialManager, h *handoff, email string) error {
	if err := h.check(); err != nil {
		return err
	}

	admin, password, err := creds.ResetPassword(ctx, email)
	switch {
	case errors.Is(err, service.ErrNotFound):
		return fmt.Errorf("admin %s not found", email)
	case err != nil:
		return err
	}

	return h.deliver("Admin password reset", admin.Email, password)
}

// ---------- admin disable / enable ----------

func newAdminSetActiveCmd(use string, active bool) *cobra.Command {
	short := "Prevent an admin from signing in"
	if active {
		short = "Allow a disabled admin to sign in again"
	}

	return &cobra.Command{
		Use:   use + " EMAIL",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, svc *services) error {
				return runAdminSetActive(ctx, cmd.OutOrStdout(), svc.creds, args[0], active)
			})
		},
	}
}

func runAdminSetActive(ctx context.Context, w io.Writer, creds *service.CredentialManager, email string, active bool) error {
	admin, err := creds.SetActive(ctx, email, active)
	switch {
	case errors.Is(err, service.ErrNotFound):
		return fmt.Errorf("admin %s not found", email)
	case err != nil:
		return err
	}

	if active {
		fmt.Fprintf(w, "Enabled %s\n", admin.Email)
	} else {
		fmt.Fprintf(w, "Disabled %s\n", admin.Email)
		fmt.Fprintf(w, "Existing sessions are kept but rejected; run 't2t-admin session revoke %s' to remove them.\n", admin.Email)
	}
	return nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all admin accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, svc *services) error {
				return runAdminList(ctx, cmd.OutOrStdout(), svc.creds, jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(ctx context.Context, w io.Writer, creds *service.CredentialManager, jsonOutput bool) error {
	admins, err := creds.ListAccounts(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		if admins == nil {
			admins = []model.Admin{}
		}
		return printJSON(w, admins)
	}

	if len(admins) == 0 {
		fmt.Fprintln(w, "No admin accounts. Use 't2t-admin admin create EMAIL' to create one.")
		return nil
	}

	rows := make([][]string, 0, len(admins))
	for _, a := range admins {
		active := "yes"
		if !a.IsActive {
			active = "no"
		}
		lastLogin := "never"
		if a.LastLoginAt != nil {
			lastLogin = a.LastLoginAt.UTC().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{a.Email, a.DisplayName, active, lastLogin})
	}
	printTable(w, []string{"Email", "Name", "Active", "Last Login"}, rows)
	return nil
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/mapgame/mapgame/internal/service"
	"github.com/mapgame/mapgame/internal/store"
)

// cliActor is the actor ID recorded for changes made from the command line.
// No admin has ID 0, so self-action checks never trigger.
const cliActor = 0

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin users",
		Long: `Create, list and manage the admin accounts that sign in to the back office.
Admins are referenced by username, or by ID with a leading '#' (e.g. #3).`,
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())
	cmd.AddCommand(newAdminSetActiveCmd("deactivate", "Deactivate an admin and end their sessions", false))
	cmd.AddCommand(newAdminSetActiveCmd("activate", "Reactivate an admin", true))
	cmd.AddCommand(newAdminLogoutAllCmd())
	cmd.AddCommand(newAdminPasswdCmd())

	return cmd
}

// withStore loads the config, opens the store and runs fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, st *store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, st)
}

func adminService(st *store.Store) *service.AdminService {
	return service.NewAdminService(st, slog.New(slog.DiscardHandler))
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		n          service.NewAdmin
		superAdmin bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin user",
		Example: `  mapgame admin create --username curator --password secret123
  mapgame admin create --username curator --super  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n.Password == "" {
				pw, err := promptPassword()
				if err != nil {
					return err
				}
				n.Password = pw
			}
			n.IsSuperAdmin = superAdmin
			return withStore(cmd, func(ctx context.Context, st *store.Store) error {
				return runAdminCreate(ctx, adminService(st), n, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVar(&n.Username, "username", "", "Admin username (required)")
	cmd.Flags().StringVar(&n.Password, "password", "", "Admin password (prompted if omitted)")
	cmd.Flags().StringVar(&n.Email, "email", "", "Admin email address")
	cmd.Flags().StringVar(&n.FullName, "name", "", "Admin display name")
	cmd.Flags().BoolVar(&superAdmin, "super", false, "Grant super admin")
	cmd.MarkFlagRequired("username")

	return cmd
}

func runAdminCreate(ctx context.Context, admins *service.AdminService, n service.NewAdmin, out io.Writer) error {
	admin, err := admins.Create(ctx, n)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Created admin user %q (id %d)\n", admin.Username, admin.ID)
	return nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all admin users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st *store.Store) error {
				return runAdminList(ctx, adminService(st), jsonOutput, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(ctx context.Context, admins *service.AdminService, jsonOutput bool, out io.Writer) error {
	list, err := admins.List(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	if len(list) == 0 {
		fmt.Fprintln(out, "No admin users configured. Use 'mapgame admin create' to create one.")
		return nil
	}

	fmt.Fprintf(out, "%-6s %-20s %-24s %-7s %-6s %-20s\n", "ID", "USERNAME", "NAME", "ACTIVE", "SUPER", "LAST LOGIN")
	fmt.Fprintf(out, "%-6s %-20s %-24s %-7s %-6s %-20s\n", "--", "--------", "----", "------", "-----", "----------")
	for _, a := range list {
		lastLogin := "never"
		if a.LastLoginAt != nil {
			lastLogin = a.LastLoginAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(out, "%-6d %-20s %-24s %-7s %-6s %-20s\n",
			a.ID, a.Username, a.FullName, yesNo(a.IsActive), yesNo(a.IsSuperAdmin), lastLogin)
	}
	return nil
}

// ---------- admin activate / deactivate ----------

func newAdminSetActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <admin>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st *store.Store) error {
				return runAdminSetActive(ctx, st, args[0], active, cmd.OutOrStdout())
			})
		},
	}
}

func runAdminSetActive(ctx context.Context, st *store.Store, ref string, active bool, out io.Writer) error {
	admin, err := findAdmin(ctx, st, ref)
	if err != nil {
		return err
	}
	admins := adminService(st)
	if active {
		err = admins.Activate(ctx, cliActor, admin.ID)
	} else {
		err = admins.Deactivate(ctx, cliActor, admin.ID)
	}
	if err != nil {
		return err
	}

	if active {
		fmt.Fprintf(out, "Admin %q activated\n", admin.Username)
	} else {
		fmt.Fprintf(out, "Admin %q deactivated and signed out everywhere\n", admin.Username)
	}
	return nil
}

// ---------- admin logout-all ----------

func newAdminLogoutAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout-all <admin>",
		Short: "End every session of an admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st *store.Store) error {
				return runAdminLogoutAll(ctx, st, args[0], cmd.OutOrStdout())
			})
		},
	}
}

func runAdminLogoutAll(ctx context.Context, st *store.Store, ref string, out io.Writer) error {
	admin, err := findAdmin(ctx, st, ref)
	if err != nil {
		return err
	}
	n, err := service.NewAuthService(st).LogoutAll(ctx, admin.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Ended %d session(s) of %q\n", n, admin.Username)
	return nil
}

// ---------- admin passwd ----------

func newAdminPasswdCmd() *cobra.Command {
	var newPassword string

	cmd := &cobra.Command{
		Use:   "passwd <admin>",
		Short: "Reset an admin password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if newPassword == "" {
				pw, err := promptPassword()
				if err != nil {
					return err
				}
				newPassword = pw
			}
			return withStore(cmd, func(ctx context.Context, st *store.Store) error {
				return runAdminPasswd(ctx, st, args[0], newPassword, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVar(&newPassword, "password", "", "New password (prompted if omitted)")

	return cmd
}

func runAdminPasswd(ctx context.Context, st *store.Store, ref, newPassword string, out io.Writer) error {
	admin, err := findAdmin(ctx, st, ref)
	if err != nil {
		return err
	}
	if err := adminService(st).ChangePassword(ctx, cliActor, admin.ID, "", newPassword); err != nil {
		return err
	}
	fmt.Fprintf(out, "Password of %q updated\n", admin.Username)
	return nil
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mapgame/mapgame/internal/store"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and clean up admin sessions",
	}

	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionPruneCmd())

	return cmd
}

// ---------- session list ----------

func newSessionListCmd() *cobra.Command {
	var (
		adminRef   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List active admin sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st *store.Store) error {
				return runSessionList(ctx, st, adminRef, jsonOutput, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVar(&adminRef, "admin", "", "Only sessions of this admin")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runSessionList(ctx context.Context, st *store.Store, adminRef string, jsonOutput bool, out io.Writer) error {
	var adminID int64
	if adminRef != "" {
		admin, err := findAdmin(ctx, st, adminRef)
		if err != nil {
			return err
		}
		adminID = admin.ID
	}

	sessions, err := st.ListActiveSessions(ctx, adminID)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "No active sessions.")
		return nil
	}

	now := st.Now()
	fmt.Fprintf(out, "%-6s %-6s %-16s %-20s %-20s %s\n", "ID", "ADMIN", "IP", "LAST ACTIVITY", "EXPIRES", "STATE")
	fmt.Fprintf(out, "%-6s %-6s %-16s %-20s %-20s %s\n", "--", "-----", "--", "-------------", "-------", "-----")
	for _, s := range sessions {
		state := "valid"
		if !s.ValidAt(now) {
			state = "expired"
		}
		fmt.Fprintf(out, "%-6d %-6d %-16s %-20s %-20s %s\n",
			s.ID, s.AdminID, s.IPAddress,
			s.LastActivityAt.Local().Format(time.DateTime),
			s.ExpiresAt.Local().Format(time.DateTime),
			state)
	}
	return nil
}

// ---------- session prune ----------

func newSessionPruneCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete expired and signed-out sessions",
		Long: `Permanently delete sessions that expired, or were signed out, longer ago than
--older-than. Active sessions that have not expired are never removed.`,
		Example: `  mapgame session prune                   # older than 30 days
  mapgame session prune --older-than 24h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st *store.Store) error {
				return runSessionPrune(ctx, st, olderThan, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Retention window")

	return cmd
}

func runSessionPrune(ctx context.Context, st *store.Store, olderThan time.Duration, out io.Writer) error {
	if olderThan < 0 {
		return fmt.Errorf("--older-than must not be negative")
	}
	n, err := st.PruneSessions(ctx, st.Now().Add(-olderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Pruned %d session(s)\n", n)
	return nil
}

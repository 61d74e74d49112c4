package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/clawrelay/internal/state"
	"github.com/user/clawrelay/internal/types"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionClearCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage tracked sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tracked sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		threads := state.NewThreadStore(cfg.DataDir)

		list, err := threads.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}

		if len(list) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tCHANNEL\tTHREAD\tLAST ACTIVITY")
		for _, r := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				r.SessionID,
				r.Channel,
				r.ThreadHandle,
				time.UnixMilli(r.LastActivityMS).Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear <id|all>",
	Short: "Clear a session or all sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		sessionsDir := filepath.Join(cfg.DataDir, "sessions")

		if args[0] == "all" {
			if err := os.RemoveAll(sessionsDir); err != nil {
				return fmt.Errorf("remove sessions directory: %w", err)
			}
			fmt.Println("All sessions cleared.")
			return nil
		}

		// Validate path to prevent traversal before touching the filesystem.
		id := types.SessionID(args[0])
		sessionDir := filepath.Join(sessionsDir, id.StorageKey())
		resolved, err := filepath.Abs(sessionDir)
		if err != nil {
			return fmt.Errorf("resolve path: %w", err)
		}
		absSessionsDir, _ := filepath.Abs(sessionsDir)
		if !strings.HasPrefix(resolved, absSessionsDir+string(filepath.Separator)) {
			return fmt.Errorf("invalid session ID: %s", args[0])
		}

		threads := state.NewThreadStore(cfg.DataDir)
		record, err := threads.Load(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		if record == nil {
			return fmt.Errorf("session not found: %s", args[0])
		}
		if err := threads.Delete(cmd.Context(), id); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Session %s cleared.\n", args[0])
		return nil
	},
}

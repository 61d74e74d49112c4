package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/clawrelay/internal/state"
	"github.com/user/clawrelay/internal/sweeper"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove stale session threads now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		threads := state.NewThreadStore(cfg.DataDir)
		maxAge := time.Duration(cfg.Relay.ThreadTTLSeconds) * time.Second
		sw := sweeper.New(threads, maxAge, time.Minute)

		removed, err := sw.RunOnce(cmd.Context())
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Removed %d stale session(s).\n", removed)
		return nil
	},
}

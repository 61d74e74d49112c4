package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/clawrelay/internal/relay"
	"github.com/user/clawrelay/internal/state"
	"github.com/user/clawrelay/internal/telegram"
	"github.com/user/clawrelay/internal/types"
)

var (
	flagDryRun  bool
	flagTrace   bool
	flagChannel string
)

func init() {
	rootCmd.AddCommand(relayCmd)
	addRelayFlags(relayCmd)
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Read one hook event from stdin and deliver it",
	Args:  cobra.NoArgs,
	RunE:  runRelay,
}

func addRelayFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "log the formatted message without posting")
	cmd.Flags().BoolVar(&flagTrace, "trace", false, "append the raw event to the session audit log")
	cmd.Flags().StringVar(&flagChannel, "channel", "", "override the configured channel")
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	opts := relay.Options{
		DryRun: cfg.Relay.DryRun || flagDryRun,
		Trace:  cfg.Relay.Trace || flagTrace,
	}

	channel := cfg.Telegram.Channel
	if flagChannel != "" {
		channel = flagChannel
	}

	threads := state.NewThreadStore(cfg.DataDir)
	fingerprints := state.NewFingerprintStore(cfg.DataDir)
	traceLog := state.NewTraceLog(cfg.DataDir)

	var messenger types.Messenger
	if !opts.DryRun {
		if cfg.Telegram.Token == "" {
			return fmt.Errorf("telegram token not configured (run setup or set TELEGRAM_BOT_TOKEN)")
		}
		if channel == "" {
			return fmt.Errorf("channel not configured (set telegram.channel or pass --channel)")
		}
		adapter, err := telegram.New(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		messenger = adapter
	}

	pipeline := relay.New(threads, fingerprints, traceLog, messenger, types.ChannelID(channel), opts)

	// A hook invocation should never hang the calling shell indefinitely.
	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	return pipeline.Run(ctx, os.Stdin)
}

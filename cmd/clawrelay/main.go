package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/clawrelay/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "clawrelay",
	Short: "Relay coding-agent hook events into per-session chat threads",
	Long: `clawrelay reads a single hook event as JSON on stdin and forwards it
to a Telegram discussion thread dedicated to the originating session.
It is designed to be invoked by agent hook configurations.`,
	// Bare invocation behaves like the relay subcommand so hook configs
	// can call the binary directly.
	RunE: runRelay,
}

func init() {
	defaultCfg := filepath.Join(os.Getenv("HOME"), ".clawrelay", "config.json")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultCfg, "config file path")
	addRelayFlags(rootCmd)
}

// loadConfig loads the config file, exiting on failure. Commands that can
// work without a valid config should not use this.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

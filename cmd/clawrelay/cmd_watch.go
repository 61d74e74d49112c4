package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/clawrelay/internal/state"
	"github.com/user/clawrelay/internal/sweeper"
	"github.com/user/clawrelay/internal/webhook"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the background daemon (periodic sweep, optional HTTP endpoints)",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "clawrelay.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	threads := state.NewThreadStore(cfg.DataDir)

	maxAge := time.Duration(cfg.Relay.ThreadTTLSeconds) * time.Second
	interval := time.Duration(cfg.Relay.SweepIntervalSeconds) * time.Second
	sw := sweeper.New(threads, maxAge, interval)
	if err := sw.Start(); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	defer sw.Stop()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	slog.Info("clawrelay watch started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"thread_ttl", maxAge.String(),
		"sweep_interval", interval.String(),
		"pid_file", pidPath,
	)

	if cfg.HTTP.Enabled {
		srv := webhook.NewServer(threads, func(ctx context.Context) (int, error) {
			return sw.RunOnce(ctx)
		})
		httpServer := &http.Server{
			Addr:    cfg.HTTP.Listen,
			Handler: srv,
		}
		go func() {
			slog.Info("webhook server started", "listen", cfg.HTTP.Listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("webhook server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			// Clean up PID file before re-exec
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				// Re-write PID file since we failed to re-exec
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}

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

	"github.com/user/artifactdl/internal/exporter"
	"github.com/user/artifactdl/internal/httpapi"
	"github.com/user/artifactdl/internal/scheduler"
	"github.com/user/artifactdl/internal/state"
	"github.com/user/artifactdl/internal/stats"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the artifactdl daemon",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, pidFileName)
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	a.exporter.Start(ctx)
	defer a.exporter.Stop()

	slog.Info("artifactdl started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"max_concurrent", cfg.MaxConcurrent,
		"store", cfg.Store.Driver,
		"sinks", a.sinks.Prefixes(),
		"pid_file", pidPath,
	)

	sched := scheduler.New(a.watches, func(w state.Watch) {
		log := slog.With("watch", w.Name, "conversation_id", w.ConversationID)
		report, err := a.runWatch(ctx, w)
		if err != nil {
			log.Error("watch run failed", "error", err)
			return
		}
		if report != nil {
			log.Info("watch run complete", "status", string(report.Status), "location", report.Location)
		}
	})
	n, err := sched.Start()
	if err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()
	slog.Info("scheduler started", "watches", n)

	if cfg.HTTP.Enabled {
		counter, err := stats.NewCounter(cfg.Export.TokenModel)
		if err != nil {
			slog.Warn("token counts unavailable", "error", err)
		}
		srv := httpapi.NewServer(a.payloads, a.history, a.exporter, httpapi.Options{
			DefaultDestination: a.defaultDestination(),
			Counter:            counter,
			Watches:            a.watches,
			RunWatch: func(r *http.Request, w state.Watch) (*exporter.Report, error) {
				return a.runWatch(r.Context(), w)
			},
		})
		httpServer := &http.Server{
			Addr:              cfg.HTTP.Listen,
			Handler:           srv,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("http server started", "listen", cfg.HTTP.Listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
			defer done()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Warn("http server shutdown", "error", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)

	for {
		sig := <-sigChan
		switch sig {
		case syscall.SIGUSR1:
			n, err := sched.Reload()
			if err != nil {
				slog.Error("reload watches", "error", err)
				continue
			}
			slog.Info("watches reloaded", "watches", n)
			continue
		case syscall.SIGHUP:
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			os.Remove(pidPath)
			// The bolt file lock must be released before the new image opens it.
			a.Close()
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				return fmt.Errorf("re-exec: %w", err)
			}
		}
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}

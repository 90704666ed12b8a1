package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/addcountry/internal/config"
	"github.com/JonMunkholm/addcountry/internal/core"
	"github.com/JonMunkholm/addcountry/internal/history"
	"github.com/JonMunkholm/addcountry/internal/logging"
	"github.com/JonMunkholm/addcountry/internal/trigger"
	"github.com/JonMunkholm/addcountry/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"base_dir", cfg.Files.BaseDir,
		"history_driver", cfg.History.Driver,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	// Run history store
	rec, err := history.Open(ctx, cfg.History)
	if err != nil {
		slog.Error("failed to open run history", "driver", cfg.History.Driver, "error", err)
		os.Exit(1)
	}
	defer rec.Close()

	svcCfg, err := core.ServiceConfigFrom(cfg)
	if err != nil {
		slog.Error("invalid enrichment settings", "error", err)
		os.Exit(1)
	}
	service := core.NewService(svcCfg, rec)
	paths := core.PathsFrom(cfg.Files)

	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	var scheduler *trigger.Scheduler
	if cfg.Trigger.Schedule != "" {
		scheduler, err = trigger.NewScheduler(cfg.Trigger.Schedule, service, paths)
		if err != nil {
			slog.Error("failed to create scheduler", "error", err)
			os.Exit(1)
		}
		scheduler.Start(jobCtx)
	}

	var watcher *trigger.Watcher
	if cfg.Trigger.WatchInputs {
		watcher, err = trigger.NewWatcher(service, paths, cfg.Trigger.WatchDebounce)
		if err != nil {
			slog.Error("failed to watch input files", "error", err)
			os.Exit(1)
		}
		watcher.Start(jobCtx)
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop triggers from starting new runs
		if scheduler != nil {
			scheduler.Stop()
		}
		if watcher != nil {
			if err := watcher.Close(); err != nil {
				slog.Warn("watcher close error", "error", err)
			}
		}

		// Wait for active runs to complete (with timeout)
		runStatus := service.Limiter().Status()
		if runStatus.Active > 0 {
			slog.Info("waiting for runs to complete", "active", runStatus.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			} else {
				slog.Info("all runs completed")
			}
		}

		// Abort anything a trigger still has in flight
		cancelJobs()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		cancelJobs()
		rec.Close()
		os.Exit(1)
	}

	<-done
	slog.Info("server stopped")
}

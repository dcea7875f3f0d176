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

	"github.com/JonMunkholm/shipbatch/internal/address"
	"github.com/JonMunkholm/shipbatch/internal/config"
	"github.com/JonMunkholm/shipbatch/internal/core"
	"github.com/JonMunkholm/shipbatch/internal/events"
	"github.com/JonMunkholm/shipbatch/internal/lock"
	"github.com/JonMunkholm/shipbatch/internal/logging"
	"github.com/JonMunkholm/shipbatch/internal/store/memory"
	"github.com/JonMunkholm/shipbatch/internal/store/postgres"
	"github.com/JonMunkholm/shipbatch/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"address_provider", cfg.Address.Provider,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()
	checks := map[string]web.HealthCheck{}

	store, closeStore, err := openStore(ctx, cfg, checks)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	deps := core.Deps{
		Store:     store,
		Validator: address.New(cfg.Address),
	}

	if cfg.Redis.Addr != "" {
		rdb, err := lock.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		deps.Locker = lock.NewRedis(rdb, cfg.Redis.LockTTL, cfg.Redis.LockWait)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		slog.Info("using redis batch locks", "addr", cfg.Redis.Addr)
	}

	publisher := events.New(cfg.Events)
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Warn("closing event publisher", "error", err)
		}
	}()
	deps.Events = publisher

	service := core.NewService(deps, cfg)
	server := web.NewServer(service, cfg, checks)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartJanitor(jobCtx, cfg.Janitor)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight ingests finish before the listener goes away.
		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		return
	}
	slog.Info("server stopped")
}

// openStore opens the configured store and registers its health check.
func openStore(ctx context.Context, cfg *config.Config, checks map[string]web.HealthCheck) (core.Store, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		pg, err := postgres.Open(ctx, cfg.Store)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		checks["database"] = pg.Ping
		slog.Info("connected to postgres", "max_conns", cfg.Store.MaxConns)
		return pg, pg.Close, nil
	default:
		slog.Info("using in-memory store; batches are lost on restart")
		return memory.New(), func() {}, nil
	}
}

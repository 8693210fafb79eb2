package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mklatt/glowcast/internal/app"
	"github.com/mklatt/glowcast/internal/cache"
	"github.com/mklatt/glowcast/internal/config"
	"github.com/mklatt/glowcast/internal/domain"
	"github.com/mklatt/glowcast/internal/hub"
	"github.com/mklatt/glowcast/internal/logging"
	"github.com/mklatt/glowcast/internal/server"
	"github.com/mklatt/glowcast/internal/store/memory"
	"github.com/mklatt/glowcast/internal/store/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, readyChecks, closeStore := setupStore(ctx, cfg, clock)
	defer closeStore()

	var rotationCache app.RotationCache
	if cfg.RedisURL != "" {
		redisClient := setupRedis(ctx, cfg.RedisURL)
		defer redisClient.Close()
		rotationCache = cache.NewRotationCache(redisClient)
		readyChecks = append(readyChecks, server.ReadyCheck{
			Name:  "redis",
			Probe: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	h := hub.New(clock, cfg.MaxViewersPerChannel)
	svc := app.NewService(store, h, rotationCache)

	sweeper := app.NewSweeper(store, h, clock, cfg.SweepInterval)
	go sweeper.Run(ctx)

	srv := server.New(cfg, svc, h, readyChecks)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutdown signal received, cleaning up...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
	h.Stop()
}

func setupStore(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (domain.PageStore, []server.ReadyCheck, func()) {
	if cfg.StoreBackend == config.BackendMemory {
		slog.Warn("Using in-memory page store, state will not survive a restart")
		return memory.New(clock), nil, func() {}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(connectCtx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := postgres.RunMigrations(connectCtx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := postgres.NewStore(pool)
	checks := []server.ReadyCheck{{Name: "postgres", Probe: store.Ping}}
	return store, checks, pool.Close
}

func setupRedis(ctx context.Context, redisURL string) *goredis.Client {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := cache.Connect(connectCtx, redisURL)
	if err != nil {
		slog.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	return client
}

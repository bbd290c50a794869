// Command janitor periodically deletes expired refresh tokens, single-use
// tokens and admin sessions. Runs alongside the API as a separate process.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gatehouse-dev/gatehouse/internal/admin"
	"github.com/gatehouse-dev/gatehouse/internal/config"
	"github.com/gatehouse-dev/gatehouse/internal/storage"
	"github.com/gatehouse-dev/gatehouse/internal/token"
	"github.com/gatehouse-dev/gatehouse/pkg/logger"
)

// Expired refresh tokens stay around for a day so reuse detection can still
// see recently rotated rows.
const refreshGrace = 24 * time.Hour

func main() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Setup(cfg.Env)

	if cfg.DatabaseURL == "" {
		log.Error("database_url_missing")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := storage.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database_connect_failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	refreshStore := token.NewRefreshStore(pool)
	singleUseStore := token.NewSingleUseStore(pool)
	adminStore := admin.NewStore(pool)

	log.Info("janitor_started", "interval", "1h")

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	run := func() {
		log.Info("cleanup_cycle_started")
		if err := refreshStore.DeleteExpired(ctx, refreshGrace); err != nil {
			log.Error("refresh_token_cleanup_failed", "error", err)
		}
		if err := singleUseStore.CleanupExpired(ctx); err != nil {
			log.Error("single_use_token_cleanup_failed", "error", err)
		}
		if err := adminStore.DeleteExpiredSessions(ctx); err != nil {
			log.Error("admin_session_cleanup_failed", "error", err)
		}
		log.Info("cleanup_cycle_finished")
	}

	run()
	for {
		select {
		case <-ticker.C:
			run()
		case <-quit:
			log.Info("janitor_shutting_down")
			return
		}
	}
}

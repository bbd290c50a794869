package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"github.com/gatehouse-dev/gatehouse/internal/admin"
	"github.com/gatehouse-dev/gatehouse/internal/api"
	"github.com/gatehouse-dev/gatehouse/internal/audit"
	"github.com/gatehouse-dev/gatehouse/internal/auth"
	"github.com/gatehouse-dev/gatehouse/internal/config"
	"github.com/gatehouse-dev/gatehouse/internal/crypto"
	"github.com/gatehouse-dev/gatehouse/internal/mailer"
	"github.com/gatehouse-dev/gatehouse/internal/oauth"
	"github.com/gatehouse-dev/gatehouse/internal/project"
	"github.com/gatehouse-dev/gatehouse/internal/ratelimit"
	"github.com/gatehouse-dev/gatehouse/internal/storage"
	"github.com/gatehouse-dev/gatehouse/internal/token"
	"github.com/gatehouse-dev/gatehouse/internal/user"
	"github.com/gatehouse-dev/gatehouse/pkg/logger"
)

func main() {
	// Local dev config; in production these files don't exist and system
	// env vars win.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg := config.Load()

	log := logger.Setup(cfg.Env)
	log.Info("application_startup", "env", cfg.Env)

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 1.0,
			Environment:      cfg.Env,
		})
		if err != nil {
			log.Error("sentry_init_failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
			log.Info("sentry_initialized")
		}
	} else {
		log.Warn("sentry_dsn_missing", "details", "skipping_init")
	}

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
	log.Info("database_connected")

	var keeper *crypto.Keeper
	if cfg.SecretsEncryptionKey != "" {
		keeper, err = crypto.NewKeeper(cfg.SecretsEncryptionKey)
		if err != nil {
			log.Error("encryption_key_invalid", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("secrets_encryption_key_missing", "details", "oauth_secrets_stored_plaintext")
	}

	// Shared client for OAuth providers and email APIs.
	outbound := &http.Client{Timeout: cfg.OutboundTimeout}

	auditLogger := audit.NewDBLogger(pool, log)

	projectStore := project.NewStore(pool)
	userStore := user.NewStore(pool)
	refreshStore := token.NewRefreshStore(pool)
	singleUseStore := token.NewSingleUseStore(pool)
	limiter := ratelimit.NewEngine(pool)
	ruleStore := ratelimit.NewRuleStore(pool)

	templateStore := mailer.NewTemplateStore(pool)
	providerStore := mailer.NewProviderStore(pool)
	var fallbackMailer mailer.Mailer
	if cfg.Env != "production" {
		fallbackMailer = &mailer.DevMailer{Log: log}
	}
	mailService := mailer.NewService(templateStore, providerStore, outbound, fallbackMailer, log)

	authEngine := auth.NewEngine(pool, projectStore, userStore, refreshStore, singleUseStore, limiter, auditLogger, mailService, log)
	projectService := project.NewService(projectStore, auditLogger, log)
	oauthConfigs := oauth.NewConfigStore(pool, keeper)
	oauthEngine := oauth.NewEngine(oauthConfigs, projectStore, userStore, authEngine, limiter, auditLogger, outbound, log)

	adminStore := admin.NewStore(pool)
	adminService := admin.NewService(adminStore, auditLogger, log)

	if err := adminService.Bootstrap(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
		log.Error("admin_bootstrap_failed", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(api.Handlers{
		Auth:   api.NewAuthHandler(authEngine),
		OAuth:  api.NewOAuthHandler(oauthEngine),
		Admin:  api.NewAdminHandler(adminService),
		Config: api.NewConfigHandler(oauthConfigs, ruleStore, providerStore, templateStore),
		Proj:   api.NewProjectHandler(projectService, userStore, authEngine),
		Audit:  api.NewAuditHandler(auditLogger),
	}, adminService)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server_listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server_failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server_shutdown_failed", "error", err)
	}
	log.Info("server_stopped")
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/extgov-platform/extgov/internal/allowlist"
	"github.com/extgov-platform/extgov/internal/api"
	"github.com/extgov-platform/extgov/internal/audit"
	"github.com/extgov-platform/extgov/internal/auth"
	"github.com/extgov-platform/extgov/internal/commands"
	"github.com/extgov-platform/extgov/internal/config"
	"github.com/extgov-platform/extgov/internal/database"
	"github.com/extgov-platform/extgov/internal/enforcement"
	"github.com/extgov-platform/extgov/internal/middleware"
	inats "github.com/extgov-platform/extgov/internal/nats"
	"github.com/extgov-platform/extgov/internal/notify"
	"github.com/extgov-platform/extgov/internal/provider"
	"github.com/extgov-platform/extgov/internal/provision"
	iredis "github.com/extgov-platform/extgov/internal/redis"
	"github.com/extgov-platform/extgov/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("migrating database", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional)
	var natsClient *inats.Client
	var publisher *inats.Publisher
	if cfg.NATS.Enabled {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = inats.NewPublisher(natsClient.JetStream())
	}

	// Trust configuration: compiled-in baseline plus remote additions.
	registry := allowlist.NewRegistry(allowlist.Baseline())
	cache := provision.NewCache(cfg.Provision.CachePath)

	// XMPP ops alerts (optional)
	var alerter provision.Alerter
	if cfg.XMPP.AlertJID != "" {
		notifier, err := notify.NewNotifier(cfg.XMPP)
		if err != nil {
			slog.Error("creating xmpp notifier", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := notifier.Start(ctx); err != nil {
				slog.Error("xmpp notifier stopped", "error", err)
			}
		}()
		defer notifier.Stop()
		alerter = notifier
	}

	// Provision runner
	var runner *provision.Runner
	if cfg.Provision.Disabled {
		slog.Warn("remote provisioning disabled, serving baseline only")
	} else {
		fetcher := provision.NewFetcher(cfg.Provision.URL, cfg.Provision.Timeout, cfg.Provision.MaxAttempts, registry, cache)
		runner = provision.NewRunner(fetcher, registry, cache, publisher, alerter, cfg.Provision.Interval)
		go runner.Run(ctx)
	}

	// Audit trail: NATS events persisted to postgres.
	auditRepo := audit.NewRepository(pool)
	if natsClient != nil {
		consumer := audit.NewConsumer(auditRepo, inats.NewConsumerManager(natsClient.JetStream()))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	// Auth
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	authSvc := auth.NewService(jwtManager, cfg.Auth.AdminKeyHash)
	authHandler := auth.NewHandler(authSvc)

	// Governance surfaces
	bridge := provider.NewBridge(registry, !cfg.Provision.Disabled)
	providerHandler := provider.NewHandler(bridge)

	guard := enforcement.NewDisableGuard(registry, publisher)
	gate := enforcement.NewOverrideGate(registry, publisher)
	enforcementHandler := enforcement.NewHandler(guard, gate)

	commandsHandler := commands.NewHandler(cfg.Features)

	var provisionHandler *provision.Handler
	provisionState := func() string { return "disabled" }
	if runner != nil {
		provisionHandler = provision.NewHandler(runner)
		provisionState = func() string { return string(runner.Status().State) }
	}

	auditHandler := audit.NewHandler(auditRepo)

	// Token endpoint rate limiting
	rateLimiter := middleware.NewRateLimiter(redisClient, cfg.Auth.RateLimitMax, cfg.Auth.RateLimitWindow)

	handlers := api.HandlerSet{
		Token: authHandler.Token,

		ListProviderExtensions: providerHandler.ListExtensions,
		CheckDisable:           enforcementHandler.CheckDisable,
		CheckOverride:          enforcementHandler.CheckOverride,
		ListCommands:           commandsHandler.List,

		ListAuditLogs: auditHandler.List,

		AuthMiddleware: auth.Middleware(authSvc),
		ProvisionState: provisionState,
	}
	if provisionHandler != nil {
		handlers.ProvisionStatus = provisionHandler.Status
		handlers.ProvisionRefresh = provisionHandler.Refresh
	} else {
		handlers.ProvisionStatus = provisionDisabledHandler
		handlers.ProvisionRefresh = provisionDisabledHandler
	}

	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		TokenRateLimiter:   rateLimiter.Middleware,
	}, handlers)

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func provisionDisabledHandler(w http.ResponseWriter, r *http.Request) {
	api.JSONErrorMessage(w, http.StatusConflict, "remote provisioning is disabled")
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dukerupert/remindr/internal"
	"github.com/dukerupert/remindr/internal/auth"
	"github.com/dukerupert/remindr/internal/billing"
	"github.com/dukerupert/remindr/internal/cookie"
	"github.com/dukerupert/remindr/internal/domain"
	"github.com/dukerupert/remindr/internal/handler"
	"github.com/dukerupert/remindr/internal/handler/api"
	"github.com/dukerupert/remindr/internal/handler/web"
	"github.com/dukerupert/remindr/internal/handler/webhook"
	"github.com/dukerupert/remindr/internal/middleware"
	"github.com/dukerupert/remindr/internal/postgres"
	"github.com/dukerupert/remindr/internal/router"
	"github.com/dukerupert/remindr/internal/routes"
	"github.com/dukerupert/remindr/internal/service"
	"github.com/dukerupert/remindr/internal/storage"
	"github.com/dukerupert/remindr/internal/telemetry"
)

const (
	metricsNamespace = "remindr"
	shutdownTimeout  = 15 * time.Second
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	defer flushSentry()

	telemetry.InitBusinessMetrics(metricsNamespace)
	metrics := middleware.NewMetrics(nil, metricsNamespace)

	// Migrations run over database/sql; the app itself uses pgxpool.
	migrationDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	if err := migrationDB.PingContext(ctx); err != nil {
		migrationDB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if err := internal.RunMigrations(migrationDB, logger); err != nil {
		migrationDB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	migrationDB.Close()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseUrl, postgres.DefaultPoolConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("Connected to database")

	health := handler.NewHealthHandler().Require("postgres", handler.PingFunc(pool.Ping))

	// The idempotency ledger is optional. Without it duplicate webhook
	// deliveries are reprocessed, which the reconciliation writes tolerate.
	var ledger service.EventLedger
	redisClient, err := storage.NewRedisClient(ctx, cfg.RedisUrl)
	if err != nil {
		logger.Warn("Redis unavailable, webhook deduplication disabled", "error", err)
	} else {
		defer redisClient.Close()
		redisLedger := storage.NewRedisEventLedger(redisClient, storage.DefaultLedgerTTL)
		ledger = redisLedger
		health.Optional("redis", redisLedger)
		logger.Info("Connected to Redis")
	}

	// Repositories
	accounts := postgres.NewAccountStore(pool)
	events := postgres.NewEventStore(pool)

	// Auth provider
	authClient := auth.NewClient(auth.ClientConfig{
		URL:     cfg.Supabase.URL,
		AnonKey: cfg.Supabase.AnonKey,
		Logger:  logger,
	})
	if !authClient.Configured() {
		logger.Warn("SUPABASE_URL not set, every session will be rejected")
	}
	sessionCookies := auth.NewSessionCookies(cookie.NewConfig(cfg.Cookie.Domain, cfg.Cookie.Secure), cfg.Supabase.ProjectRef())
	resolver := auth.NewResolver(authClient, auth.NewTokenVerifier(cfg.Supabase.JWTSecret), sessionCookies, logger)

	// Billing provider
	stripeProvider := billing.NewStripeProvider(billing.StripeConfig{
		APIKey:        cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	}, logger)
	if stripeProvider.Configured() && cfg.Stripe.WebhookSecret == "" {
		logger.Warn("STRIPE_WEBHOOK_SECRET not set, webhook deliveries will be rejected")
	}

	// Services
	billingService := service.NewBillingService(stripeProvider, accounts, service.BillingConfig{
		AppURL:   cfg.AppURL,
		PriceIDs: cfg.Stripe.Prices.List(),
	}, logger)
	authService := service.NewAuthService(authClient, accounts, logger)
	eventService := service.NewEventService(events, logger)
	webhookService := service.NewWebhookService(stripeProvider, accounts, ledger, logger)

	// Rate limiters
	limiterConfig := middleware.RateLimiterConfig{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		BurstSize:         cfg.RateLimit.Burst,
		CleanupInterval:   cfg.RateLimit.CleanupInterval,
	}
	billingLimiter := middleware.NewRateLimiter(limiterConfig)
	defer billingLimiter.Stop()
	callbackLimiter := middleware.NewRateLimiter(limiterConfig)
	defer callbackLimiter.Stop()

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.Cookie.Secure)),
		middleware.MaxBodySize(),
		middleware.Timeout(),
		router.Logger(logger),
		middleware.WithRequestLogger(logger),
		telemetry.SentryMiddleware(),
		middleware.CSRF(middleware.DefaultCSRFConfig(cfg.AppURL)),
	)

	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		Health:  health,
		Metrics: metrics.Handler(),
	})

	routes.RegisterAuthRoutes(r, routes.AuthDeps{
		CallbackHandler: web.NewCallbackHandler(authService, sessionCookies, cfg.AppURL),
		RateLimiter:     callbackLimiter,
	})

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		BillingHandler: api.NewBillingHandler(billingService),
		EventsHandler:  api.NewEventsHandler(eventService),
		RateLimiter:    billingLimiter,
		Session:        sessionMiddleware(resolver),
	})

	routes.RegisterWebhookRoutes(r, routes.WebhookDeps{
		StripeHandler: webhook.NewStripeHandler(webhookService).HandleWebhook,
	})

	r.NotFound(handler.NotFoundResponse)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// sessionMiddleware resolves the principal and tags the Sentry scope with it.
func sessionMiddleware(resolver *auth.Resolver) router.Middleware {
	withPrincipal := middleware.WithPrincipal(resolver)
	tagUser := telemetry.SentryUserMiddleware(func(ctx context.Context) *telemetry.UserInfo {
		p := domain.PrincipalFromContext(ctx)
		if p == nil {
			return nil
		}
		return &telemetry.UserInfo{ID: p.UserID.String(), Email: p.Email}
	})
	return func(next http.Handler) http.Handler {
		return withPrincipal(tagUser(next))
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

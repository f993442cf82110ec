package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	adapterports "github.com/billfold/checkout-service/internal/adapters/ports"
	"github.com/billfold/checkout-service/internal/adapters/postgres"
	"github.com/billfold/checkout-service/internal/adapters/secrets"
	stripeadapter "github.com/billfold/checkout-service/internal/adapters/stripe"
	"github.com/billfold/checkout-service/internal/config"
	checkoutHandler "github.com/billfold/checkout-service/internal/handlers/checkout"
	subscriptionHandler "github.com/billfold/checkout-service/internal/handlers/subscription"
	webhookHandler "github.com/billfold/checkout-service/internal/handlers/webhook"
	checkoutService "github.com/billfold/checkout-service/internal/services/checkout"
	subscriptionService "github.com/billfold/checkout-service/internal/services/subscription"
	webhookService "github.com/billfold/checkout-service/internal/services/webhook"
	"github.com/billfold/checkout-service/pkg/logging"
	"github.com/billfold/checkout-service/pkg/observability"
	"github.com/billfold/checkout-service/pkg/shutdown"
)

func main() {
	_ = godotenv.Load()

	// Initialize logger
	logger := initLogger()
	defer logger.Sync()

	logger.Info("Starting checkout service",
		zap.String("version", "0.1.0"),
	)

	// Load configuration from environment
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize database connection pool
	dbPool, err := initDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("Database connection established",
		zap.String("database", cfg.Database.Database),
	)

	// Resolve processor credentials, via the secret manager when configured
	apiKey, webhookSecret, err := resolveStripeCredentials(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to resolve processor credentials", zap.Error(err))
	}

	// Wire adapters
	db := postgres.NewDBExecutor(dbPool)
	saleRepo := postgres.NewSaleRepository(db)
	subscriptionRepo := postgres.NewSubscriptionRepository(db)
	planRepo := postgres.NewPlanRepository(db)
	gateway := stripeadapter.NewGateway(apiKey, logger)
	serviceLogger := logging.NewZapAdapter(logger)

	// Wire services
	checkoutSvc := checkoutService.NewService(saleRepo, gateway, serviceLogger)
	subscriptionSvc := subscriptionService.NewService(subscriptionRepo, planRepo, gateway, serviceLogger)
	webhookSvc := webhookService.NewService(db, saleRepo, subscriptionRepo, gateway, serviceLogger)

	// Background processor work accepted by the API keeps running after the
	// accepting request returns; the tracker lets shutdown wait for it
	tracker := shutdown.NewTracker("processor-work", cfg.Server.ChargeTimeout, logger)

	// Wire handlers
	mux := http.NewServeMux()
	checkoutHandler.NewHandler(checkoutSvc, tracker, logger).Register(mux)
	subscriptionHandler.NewHandler(subscriptionSvc, tracker, logger).Register(mux)
	webhookHandler.NewHandler(webhookSvc, webhookSecret, logger).Register(mux)

	apiServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      observability.InstrumentHandler("api", mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics and health endpoints on their own port
	healthChecker := observability.NewHealthChecker(dbPool)
	metricsServer := observability.StartMetricsServer(
		fmt.Sprintf("%d", cfg.Server.MetricsPort), healthChecker, logger)

	// Graceful shutdown: reverse order, so the API stops accepting first,
	// then in-flight processor work drains, then metrics and the pool close
	shutdownManager := shutdown.NewManager(logger, 30*time.Second)
	shutdownManager.RegisterNoErr("database-pool", dbPool.Close)
	shutdownManager.Register("metrics-server", func(ctx context.Context) error {
		return observability.ShutdownMetricsServer(metricsServer)
	})
	shutdownManager.Register("processor-work", tracker.Shutdown)
	shutdownManager.RegisterHTTPServer("api-server", apiServer)

	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", apiServer.Addr),
		)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	shutdownManager.WaitForShutdown()
}

func initLogger() *zap.Logger {
	env := getEnv("ENVIRONMENT", "development")

	if env == "production" {
		zapCfg := zap.NewProductionConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		logger, _ := zapCfg.Build()
		return logger
	}

	logger, _ := zap.NewDevelopment()
	return logger
}

func initDatabase(cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// resolveStripeCredentials returns the API key and webhook signing secret,
// reading from the secret manager for any value configured by path
func resolveStripeCredentials(cfg *config.Config, logger *zap.Logger) (string, string, error) {
	apiKey := cfg.Stripe.APIKey
	webhookSecret := cfg.Stripe.WebhookSecret

	if cfg.Stripe.APIKeySecretPath == "" && cfg.Stripe.WebhookSecretPath == "" {
		return apiKey, webhookSecret, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	manager, err := newSecretManager(ctx, cfg, logger)
	if err != nil {
		return "", "", err
	}

	if cfg.Stripe.APIKeySecretPath != "" {
		secret, err := manager.GetSecret(ctx, cfg.Stripe.APIKeySecretPath)
		if err != nil {
			return "", "", fmt.Errorf("fetch api key secret: %w", err)
		}
		apiKey = secret.Value
	}
	if cfg.Stripe.WebhookSecretPath != "" {
		secret, err := manager.GetSecret(ctx, cfg.Stripe.WebhookSecretPath)
		if err != nil {
			return "", "", fmt.Errorf("fetch webhook secret: %w", err)
		}
		webhookSecret = secret.Value
	}

	return apiKey, webhookSecret, nil
}

func newSecretManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (adapterports.SecretManager, error) {
	if cfg.Secrets.Provider == "aws" {
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.Secrets.Region)
		return secrets.NewAWSSecretsManager(ctx, awsCfg, logger)
	}
	return secrets.NewLocalSecretManager(cfg.Secrets.LocalDir, logger), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

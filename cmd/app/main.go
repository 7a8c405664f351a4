package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"parchaoo-bot/internal/cache"
	"parchaoo-bot/internal/config"
	"parchaoo-bot/internal/convo"
	"parchaoo-bot/internal/directory"
	"parchaoo-bot/internal/httpserver"
	"parchaoo-bot/internal/llm"
	"parchaoo-bot/internal/logging"
	"parchaoo-bot/internal/metrics"
	"parchaoo-bot/internal/repo"
	"parchaoo-bot/internal/wa"
	"parchaoo-bot/migrations"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("starting parchaoo-bot", "env", cfg.AppEnv)

	if cfg.PublicBaseURL != "" {
		webhookURL := strings.TrimRight(cfg.PublicBaseURL, "/") + "/webhook"
		logger.Info("public base url configured", "base_url", cfg.PublicBaseURL, "webhook_url", webhookURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	repository, err := repo.New(ctx, cfg.DatabaseURL, cfg.DatabaseSchema, logger)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer repository.Close()

	if err := repository.RunMigrations(ctx, migrations.Files); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrated")

	redisClient := cache.New(cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		UseTLS:   cfg.RedisTLS,
	}, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed closing redis", "error", err)
		}
	}()
	if err := redisClient.Ping(ctx); err != nil {
		logger.Warn("redis ping failed", "error", err)
	}

	dirService := directory.New(repository, redisClient, metricRegistry, logger, directory.Config{
		Timezone:    cfg.Timezone,
		DefaultCity: cfg.DefaultCity,
	})

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, falling back to UTC", "timezone", cfg.Timezone, "error", err)
		loc = time.UTC
	}

	gateway := llm.New(ctx, llm.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GeminiTimeout,
	}, loc, metricRegistry, logger)
	defer gateway.Close()

	waClient := wa.New(wa.Config{
		BaseURL:       cfg.MetaBaseURL,
		AccessToken:   cfg.MetaAccessToken,
		PhoneNumberID: cfg.MetaPhoneNumberID,
		Timeout:       cfg.MetaTimeout,
	}, logger, metricRegistry)
	if !waClient.Configured() {
		logger.Warn("whatsapp credentials not configured, outbound sends will fail")
	}

	resolver := convo.NewResolver(dirService, logger)
	engine := convo.NewEngine(resolver, gateway, waClient, repository, metricRegistry, logger)

	webhookHandler := wa.NewWebhookHandler(engine, cfg.MetaVerifyToken, metricRegistry, logger)

	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, httpserver.Handlers{
		Webhook: webhookHandler,
	}, cfg.PublicBasePath)
	httpSrv.SetDependencies(httpserver.Dependencies{
		Repository: repository,
		Redis:      redisClient,
		Directory:  dirService,
		Config:     cfg,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return nil
}

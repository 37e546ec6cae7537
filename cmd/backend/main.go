package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Lynx-Backend/internal/analytics"
	"Lynx-Backend/internal/auth"
	"Lynx-Backend/internal/cache"
	"Lynx-Backend/internal/config"
	"Lynx-Backend/internal/database"
	handler "Lynx-Backend/internal/handler/http"
	"Lynx-Backend/internal/metrics"
	"Lynx-Backend/internal/plan"
	"Lynx-Backend/internal/repository/postgres"
	"Lynx-Backend/internal/service"
	"Lynx-Backend/internal/shortcode"
	"Lynx-Backend/pkg/logger"
	"Lynx-Backend/pkg/useragent"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()

	log := logger.New(cfg.Env)
	defer func() { _ = log.Sync() }()

	log.Info("starting lynx backend", zap.String("env", cfg.Env), zap.String("address", cfg.HTTPServer.Address))

	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	if cfg.Database.SeedData {
		if err := database.SeedPlans(db, log); err != nil {
			log.Fatal("failed to seed plans", zap.Error(err))
		}
	}

	storage := postgres.New(db, log)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	plans, err := plan.NewCache(rootCtx, storage, log)
	if err != nil {
		log.Fatal("failed to load subscription plans", zap.Error(err))
	}
	go plans.Run(rootCtx, cfg.Plans.RefreshInterval)

	var linkCache *cache.LinkCache
	if cfg.Redis.Enabled {
		linkCache, err = cache.New(rootCtx, &cfg.Redis, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	uaParser, err := useragent.New(cfg.Analytics.UARegexesPath, log)
	if err != nil {
		log.Fatal("failed to initialize user agent parser", zap.Error(err))
	}

	processor := analytics.NewProcessor(storage, uaParser, m, log, analytics.Config{
		Workers:         cfg.Analytics.Workers,
		BufferSize:      cfg.Analytics.BufferSize,
		RetryAttempts:   cfg.Analytics.RetryAttempts,
		RetryDelay:      cfg.Analytics.RetryDelay,
		ShutdownTimeout: cfg.Analytics.ShutdownTimeout,
	})
	if err := processor.Start(); err != nil {
		log.Fatal("failed to start analytics processor", zap.Error(err))
	}

	generator := shortcode.New(cfg.ShortCode.Length, cfg.ShortCode.MaxCustomLength)
	meter := service.NewUsageMeter(storage, plans, log)
	shortener := service.NewShortener(storage, generator, meter, plans, linkCache, m, log, cfg.ShortCode.MaxAttempts)
	resolver := service.NewResolver(storage, linkCache, processor, m, log)

	jwtService := auth.NewJWTService(&auth.JWTConfig{
		SecretKey:           []byte(cfg.Auth.JWTSecret),
		AccessTokenDuration: 15 * time.Minute,
		Issuer:              cfg.Auth.Issuer,
	})

	srv := handler.NewServer(storage, shortener, resolver, meter, plans, jwtService, m, registry, log, cfg.HTTPServer.BaseURL)

	httpServer := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      srv.SetupRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("http server listening", zap.String("address", cfg.HTTPServer.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}

	// Drain queued click events before closing the database.
	if err := processor.Stop(); err != nil {
		log.Error("analytics processor shutdown failed", zap.Error(err))
	}

	rootCancel()

	if linkCache != nil {
		if err := linkCache.Close(); err != nil {
			log.Error("failed to close redis connection", zap.Error(err))
		}
	}
	if err := database.Close(db, log); err != nil {
		log.Error("failed to close database connection", zap.Error(err))
	}

	log.Info("shutdown complete")
}

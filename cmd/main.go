package main

import (
	"context"
	"errors"
	"fluxe/backend/internal/api/handler"
	"fluxe/backend/internal/chathub"
	"fluxe/backend/internal/config"
	"fluxe/backend/internal/logging"
	"fluxe/backend/internal/storage"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// setupGuard повертає Redis guard, якщо REDIS_ADDR задано, інакше in-memory
func setupGuard(ctx context.Context, cfg config.Config, logger *zap.Logger) (chathub.Guard, func()) {
	if cfg.RedisAddr == "" {
		return chathub.NewMemoryGuard(cfg.GuardTTL, config.DefaultGuardMaxEntries), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// Перевірка з'єднання Redis
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Fatal("failed to connect redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	logger.Info("redis guard enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.GuardTTL))
	return storage.NewRedisGuard(rdb, cfg.GuardTTL), func() { _ = rdb.Close() }
}

func main() {
	cfg, envLoaded := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting fluxe backend", zap.Bool("env_file", envLoaded), zap.String("store", cfg.StoreDriver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Ініціалізація залежностей
	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer closeStore()

	guard, closeGuard := setupGuard(ctx, cfg, logger)
	defer closeGuard()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// 2. Ініціалізація Chat Hub
	hub := chathub.NewManagerService(chathub.Options{
		Storage: store,
		Guard:   guard,
		Logger:  logger,
		Metrics: chathub.NewMetrics(reg),
	})
	hub.RecoverOpenRooms(ctx)

	// 3. Налаштування Gin та роутингу
	gin.SetMode(gin.ReleaseMode)
	h := handler.NewHandler(hub, cfg, logger)

	server := &http.Server{
		Addr:           cfg.Addr(),
		Handler:        handler.NewRouter(h, reg),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}
}

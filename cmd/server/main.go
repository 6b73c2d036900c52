// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/cache"
	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/database"
	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/repository"
	"github.com/javajoker/storefront-backend/internal/router"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logrus.SetLevel(logrus.DebugLevel)
	}

	utils.SetJWTSecret(cfg.JWT.SecretKey)

	if err := i18n.Initialize(cfg.I18n.LocalesPath, cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore := openStore(cfg)
	defer closeStore()

	if cfg.Database.SeedData {
		if err := database.SeedInitialData(ctx, store); err != nil {
			logrus.WithError(err).Fatal("Failed to seed initial data")
		}
	}

	idempotency, closeIdempotency := openIdempotencyStore(ctx, cfg.Redis)
	defer closeIdempotency()

	storage, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}

	svc := router.NewServices(cfg, router.Dependencies{
		Store:       store,
		Processor:   services.NewStripeProcessor(cfg.Payment),
		Idempotency: idempotency,
		Storage:     storage,
	})
	defer svc.Limiters.Stop()

	go cleanupSessions(ctx, svc.Auth, time.Duration(cfg.Session.CleanupInterval)*time.Minute)

	r := router.Initialize(cfg, svc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"port":    cfg.Server.Port,
			"storage": cfg.Storage.Driver,
			"env":     cfg.Environment,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}

func openStore(cfg *config.Config) (repository.Store, func()) {
	if cfg.Storage.Driver == "memory" {
		logrus.Warn("Using in-memory storage; data is lost on restart")
		return repository.NewMemoryStore(), func() {}
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}

	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	return repository.NewGormStore(db), func() { database.Close(db) }
}

// openIdempotencyStore prefers Redis so webhook dedup survives restarts and
// is shared between instances.
func openIdempotencyStore(ctx context.Context, cfg config.RedisConfig) (cache.IdempotencyStore, func()) {
	if !cfg.Enabled {
		return cache.NewMemoryIdempotencyStore(cache.DefaultIdempotencyTTL), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logrus.WithError(err).Warn("Redis unavailable, using in-memory idempotency store")
		client.Close()
		return cache.NewMemoryIdempotencyStore(cache.DefaultIdempotencyTTL), func() {}
	}

	logrus.WithField("addr", cfg.Addr()).Info("Connected to Redis")
	return cache.NewRedisIdempotencyStore(client, cache.DefaultIdempotencyTTL), func() { client.Close() }
}

func cleanupSessions(ctx context.Context, auth *services.AuthService, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := auth.CleanupExpiredSessions(ctx)
			if err != nil {
				logrus.WithError(err).Warn("Failed to clean up expired sessions")
				continue
			}
			if removed > 0 {
				logrus.WithField("removed", removed).Info("Expired sessions cleaned up")
			}
		}
	}
}

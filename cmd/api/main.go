package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/boardlab/notify-api/pkg/logger"
	"github.com/boardlab/notify-api/pkg/messaging"
	redisbroker "github.com/boardlab/notify-api/pkg/messaging/redis"
	"github.com/boardlab/notify-api/pkg/metrics"

	"github.com/boardlab/notify-api/internal/config"
	"github.com/boardlab/notify-api/internal/handler"
	notificationHandler "github.com/boardlab/notify-api/internal/handler/notification"
	"github.com/boardlab/notify-api/internal/hub"
	"github.com/boardlab/notify-api/internal/middleware"
	"github.com/boardlab/notify-api/internal/repository/postgres"
	"github.com/boardlab/notify-api/internal/router"
	notificationService "github.com/boardlab/notify-api/internal/service/notification"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	notificationRepo := postgres.NewNotificationRepository(base)
	queueRepo := postgres.NewDeliveryQueueRepository(base)
	userRepo := postgres.NewUserRepository(base)

	m := metrics.NewMetrics("notify")
	liveHub := hub.NewHub(hub.Config{
		BufferSize:     cfg.Hub.BufferSize,
		MaxSubscribers: cfg.Hub.MaxSubscribers,
	}, m)
	defer liveHub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The redis bridge is optional; without it live publishes stay local to
	// this process.
	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		zl := log.Logger
		broker, err = redisbroker.NewRedisBroker(redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, &zl)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer broker.Close()

		bridge := hub.NewBridge(liveHub, broker, appLogger)
		go func() {
			if err := bridge.Run(ctx); err != nil {
				appLogger.Error(err, "notification bridge exited")
			}
		}()
	}

	notificationSvc := notificationService.NewService(
		notificationRepo, queueRepo, userRepo, liveHub, broker, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	notificationH := notificationHandler.NewHandler(notificationSvc, liveHub)
	healthH := handler.NewHealthHandler(db)

	r := router.NewRouter(authMiddleware, notificationH, healthH, router.Config{
		RateLimit: rate.Limit(cfg.Server.RateLimit),
		RateBurst: cfg.Server.RateBurst,
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
		// No WriteTimeout: the stream endpoint holds connections open
		// indefinitely.
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	go func() {
		appLogger.Info("starting API server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "forced shutdown")
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/boardlab/notify-api/pkg/logger"
	"github.com/boardlab/notify-api/pkg/metrics"

	"github.com/boardlab/notify-api/internal/config"
	"github.com/boardlab/notify-api/internal/dispatcher"
	"github.com/boardlab/notify-api/internal/model"
	"github.com/boardlab/notify-api/internal/repository/postgres"
	"github.com/boardlab/notify-api/internal/sender"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	env, err := config.LoadWorkerEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load worker environment")
	}
	env.Apply(&cfg.Dispatcher)

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	queueRepo := postgres.NewDeliveryQueueRepository(base)
	userRepo := postgres.NewUserRepository(base)

	multi := sender.NewMultiSender()
	multi.Register(model.DeliveryMethodEmail, sender.NewEmailSender(sender.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}))
	if cfg.Gateways.PushURL != "" {
		multi.Register(model.DeliveryMethodPush, sender.NewWebhookSender(cfg.Gateways.PushURL))
	}
	if cfg.Gateways.SMSURL != "" {
		multi.Register(model.DeliveryMethodSMS, sender.NewWebhookSender(cfg.Gateways.SMSURL))
	}
	snd := sender.NewBreakerSender(multi, 5, cfg.Dispatcher.PollInterval)

	m := metrics.NewMetrics("notify_worker")
	d := dispatcher.NewDispatcher(queueRepo, userRepo, snd, dispatcher.Config{
		RetryCeiling: cfg.Dispatcher.RetryCeiling,
		PollInterval: cfg.Dispatcher.PollInterval,
		SendTimeout:  cfg.Dispatcher.SendTimeout,
		WorkerPool:   cfg.Dispatcher.WorkerPool,
	}, appLogger, m)

	setupHealthCheck(env.HealthPort, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	go d.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down worker")
	cancel()
}

func setupHealthCheck(port int, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			appLogger.Error(err, "health check server failed")
			os.Exit(1)
		}
	}()
}

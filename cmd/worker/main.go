package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/medrefer/referral-api/internal/config"
	"github.com/medrefer/referral-api/internal/email"
	"github.com/medrefer/referral-api/internal/notification"
	"github.com/medrefer/referral-api/internal/repository/postgres"
	"github.com/medrefer/referral-api/pkg/logger"
	"github.com/medrefer/referral-api/pkg/messaging/redis"
	"github.com/medrefer/referral-api/pkg/metrics"
	"github.com/medrefer/referral-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	lg := logger.NewLogger(nil)
	m := metrics.NewMetrics("referral_worker")

	brokerLogger := log.With().Str("component", "redis-broker").Logger()
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &brokerLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.SMTP.Host != "" {
		emailSvc := email.NewSMTPService(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		consumer := notification.NewConsumer(broker, emailSvc, postgres.NewHospitalRepository(db), lg)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				lg.Error(err, "notification consumer stopped")
			}
		}()
	}

	outboxRepo := postgres.NewOutboxRepository(db)
	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:    cfg.Outbox.BatchSize,
		PollInterval: cfg.Outbox.PollInterval,
		Retention:    cfg.Outbox.Retention,
	}, lg, m)

	go processor.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker...")
	cancel()
}

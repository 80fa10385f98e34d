package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/medrefer/referral-api/internal/model"
	"github.com/medrefer/referral-api/internal/repository"
	"github.com/medrefer/referral-api/pkg/logger"
	"github.com/medrefer/referral-api/pkg/messaging"
	"github.com/medrefer/referral-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	Retention    time.Duration
}

// OutboxProcessor drains pending outbox events to the message broker
// and prunes processed rows past the retention window.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processEvents(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
			p.prune(ctx)
		}
	}
}

func (p *OutboxProcessor) processEvents(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	processed, failed, err := p.repo.ProcessPending(ctx, p.config.BatchSize, func(evt *model.OutboxEvent) error {
		if err := p.broker.Publish(ctx, messaging.ReferralEventsChannel, map[string]interface{}{
			"event_type": evt.EventType,
			"payload":    string(evt.Payload),
		}); err != nil {
			p.logger.Error(err, "Failed to publish event", "event_id", evt.ID)
			return err
		}
		return nil
	})
	p.metrics.OutboxEventsProcessed.Add(float64(processed))
	p.metrics.OutboxEventsFailed.Add(float64(failed))
	if err != nil {
		return fmt.Errorf("failed to process outbox batch: %w", err)
	}
	return nil
}

func (p *OutboxProcessor) prune(ctx context.Context) {
	if p.config.Retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-p.config.Retention)
	if _, err := p.repo.DeleteProcessedBefore(ctx, cutoff); err != nil {
		p.logger.Error(err, "Failed to prune outbox")
	}
}

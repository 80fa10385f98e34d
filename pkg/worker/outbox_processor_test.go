package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrefer/referral-api/internal/model"
	"github.com/medrefer/referral-api/internal/repository/memory"
	"github.com/medrefer/referral-api/pkg/logger"
	"github.com/medrefer/referral-api/pkg/messaging"
	"github.com/medrefer/referral-api/pkg/metrics"
)

type recordingBroker struct {
	published []map[string]interface{}
	failures  int
}

func (b *recordingBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	if channel != messaging.ReferralEventsChannel {
		return fmt.Errorf("unexpected channel %s", channel)
	}
	if b.failures > 0 {
		b.failures--
		return fmt.Errorf("broker unavailable")
	}
	b.published = append(b.published, message.(map[string]interface{}))
	return nil
}

func (b *recordingBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, fmt.Errorf("not implemented")
}

func (b *recordingBroker) Close() error { return nil }

func TestProcessEventsMarksOutcomes(t *testing.T) {
	repo := memory.NewOutboxRepository()
	broker := &recordingBroker{failures: 1}
	p := NewOutboxProcessor(repo, broker, OutboxProcessorConfig{BatchSize: 10}, logger.NewLogger(nil), metrics.NewMetrics("worker_test"))

	ctx := context.Background()
	payload, err := json.Marshal(map[string]string{"referral_id": "8c2"})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, &model.OutboxEvent{EventType: "REFERRAL_CREATE", Payload: payload}))
	require.NoError(t, repo.Create(ctx, &model.OutboxEvent{EventType: "REFERRAL_STATUS_CHANGE", Payload: payload}))

	require.NoError(t, p.processEvents(ctx))

	events := repo.Events()
	require.Len(t, events, 2)
	assert.Equal(t, string(model.OutboxStatusFailed), events[0].Status)
	require.NotNil(t, events[0].ErrorMessage)
	assert.Equal(t, string(model.OutboxStatusProcessed), events[1].Status)
	require.NotNil(t, events[1].ProcessedAt)

	require.Len(t, broker.published, 1)
	assert.Equal(t, "REFERRAL_STATUS_CHANGE", broker.published[0]["event_type"])
	assert.Equal(t, string(payload), broker.published[0]["payload"])

	// Failed events stay failed; the next pass finds nothing pending.
	require.NoError(t, p.processEvents(ctx))
	assert.Len(t, broker.published, 1)
}

package messaging

import (
	"context"
)

// ReferralEventsChannel carries every outbox event published by the
// worker; consumers subscribe here.
const ReferralEventsChannel = "referral-events"

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

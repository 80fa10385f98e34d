// Package notification turns published referral events into email to
// the hospitals involved. It runs inside the worker binary, downstream
// of the outbox, so a mail outage never slows down the API.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/medrefer/referral-api/internal/email"
	"github.com/medrefer/referral-api/internal/model"
	"github.com/medrefer/referral-api/internal/repository"
	"github.com/medrefer/referral-api/pkg/logger"
	"github.com/medrefer/referral-api/pkg/messaging"
)

type Consumer struct {
	broker    messaging.Broker
	email     email.Service
	hospitals repository.HospitalRepository
	logger    *logger.Logger
}

func NewConsumer(broker messaging.Broker, emailSvc email.Service, hospitals repository.HospitalRepository, lg *logger.Logger) *Consumer {
	return &Consumer{
		broker:    broker,
		email:     emailSvc,
		hospitals: hospitals,
		logger:    lg,
	}
}

// envelope mirrors what the outbox processor publishes.
type envelope struct {
	EventType string `json:"event_type"`
	Payload   string `json:"payload"`
}

// Run consumes referral events until ctx is cancelled. Delivery
// failures are logged and skipped; the event stream is best-effort
// on top of the durable outbox.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.broker.Subscribe(ctx, messaging.ReferralEventsChannel)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	c.logger.Info("Starting notification consumer")
	for msg := range messages {
		if err := c.handle(ctx, msg); err != nil {
			c.logger.Error(err, "Failed to handle event")
		}
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, msg []byte) error {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return fmt.Errorf("malformed event: %w", err)
	}

	switch env.EventType {
	case "REFERRAL_CREATE":
		referral, err := decodeReferral(env.Payload)
		if err != nil {
			return err
		}
		// A new referral is the receiving hospital's concern.
		return c.notify(ctx, referral.ReceivingID, func(to string) error {
			return c.email.SendReferralCreated(ctx, to, referral)
		})
	case "REFERRAL_STATUS_CHANGE":
		referral, err := decodeReferral(env.Payload)
		if err != nil {
			return err
		}
		// Status moves are reported back to the referring hospital.
		return c.notify(ctx, referral.ReferringID, func(to string) error {
			return c.email.SendReferralStatusChanged(ctx, to, referral)
		})
	}
	return nil
}

func decodeReferral(payload string) (*model.Referral, error) {
	var referral model.Referral
	if err := json.Unmarshal([]byte(payload), &referral); err != nil {
		return nil, fmt.Errorf("malformed referral payload: %w", err)
	}
	return &referral, nil
}

func (c *Consumer) notify(ctx context.Context, hospitalID uuid.UUID, send func(string) error) error {
	hospital, err := c.hospitals.Get(ctx, hospitalID)
	if err != nil {
		return fmt.Errorf("failed to look up hospital: %w", err)
	}
	if hospital == nil || hospital.AdminEmail == "" {
		return nil
	}
	return send(hospital.AdminEmail)
}

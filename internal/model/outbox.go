package model

import (
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxEvent is a pending cross-process notification, written in the
// same store as the change it describes and published asynchronously.
type OutboxEvent struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	EventType    string     `json:"event_type" db:"event_type"`
	Payload      []byte     `json:"payload" db:"payload"`
	Status       string     `json:"status" db:"status"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

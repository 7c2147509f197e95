package model

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryMethod string

const (
	DeliveryMethodEmail DeliveryMethod = "EMAIL"
	DeliveryMethodPush  DeliveryMethod = "PUSH"
	DeliveryMethodSMS   DeliveryMethod = "SMS"
)

type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "PENDING"
	DeliveryStatusSent    DeliveryStatus = "SENT"
	DeliveryStatusFailed  DeliveryStatus = "FAILED"
)

// DeliveryQueueItem is one out-of-band delivery awaiting dispatch. PENDING is
// the only state a transition starts from; SENT and FAILED are terminal.
// FAILED means retries exhausted, a failed attempt short of the ceiling stays
// PENDING with the counter incremented.
type DeliveryQueueItem struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	UserID        uuid.UUID      `db:"user_id" json:"user_id"`
	Method        DeliveryMethod `db:"method" json:"method"`
	Payload       string         `db:"payload" json:"payload"`
	Status        DeliveryStatus `db:"status" json:"status"`
	RetryCount    int            `db:"retry_count" json:"retry_count"`
	RequestedAt   time.Time      `db:"requested_at" json:"requested_at"`
	LastAttemptAt *time.Time     `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
}

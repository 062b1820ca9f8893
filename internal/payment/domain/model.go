package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const EventTypeCheckoutSessionCompleted = "checkout.session.completed"

// EventRecord is a verified Stripe event. EventID is unique, which is what
// makes redelivered webhooks a no-op.
type EventRecord struct {
	ID          snowflake.ID   `json:"id" gorm:"primaryKey"`
	EventID     string         `json:"event_id" gorm:"type:text;not null;uniqueIndex"`
	EventType   string         `json:"event_type" gorm:"type:text;not null"`
	Payload     datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt  time.Time      `json:"received_at" gorm:"not null;index"`
	ProcessedAt *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "stripe_events" }

// Event is the canonical event parsed by the adapter. Checkout is only set
// for completed checkout sessions.
type Event struct {
	ID         string
	Type       string
	OccurredAt time.Time
	Checkout   *CheckoutSession
}

type CheckoutSession struct {
	ID            string
	CustomerEmail string
	CustomerName  string
	AmountTotal   int64
	Currency      string
	PaymentStatus string
}

const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
)

type IngestResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Outcome   string `json:"outcome"`
}

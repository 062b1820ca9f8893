package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"
)

type Service interface {
	IngestWebhook(ctx context.Context, payload []byte, headers http.Header) (*IngestResult, error)
	// CleanupEvents deletes events received before cutoff.
	CleanupEvents(ctx context.Context, cutoff time.Time) (int64, error)
}

type Repository interface {
	InsertEvent(ctx context.Context, db *gorm.DB, record *EventRecord) error
	MarkProcessed(ctx context.Context, db *gorm.DB, eventID string, at time.Time) error
	DeleteReceivedBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}

var (
	ErrNotConfigured         = errors.New("webhook_not_configured")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
)

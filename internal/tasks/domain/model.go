package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TypeCreateAffiliate = "tapfiliate.create_affiliate"
	TypeEnrollAffiliate = "tapfiliate.enroll_affiliate"
	TypeSubscribe       = "mailinglist.subscribe"
)

var (
	ErrQueueFull       = errors.New("task_queue_full")
	ErrQueueStopped    = errors.New("task_queue_stopped")
	ErrUnknownTaskType = errors.New("unknown_task_type")
	ErrInvalidPayload  = errors.New("invalid_task_payload")
	// ErrPermanent marks a failure that retrying cannot fix.
	ErrPermanent       = errors.New("permanent_task_failure")
)

// Task is one unit of deferred work. Payload is the JSON encoding of the
// value passed to Enqueue.
type Task struct {
	ID      string
	Type    string
	Payload json.RawMessage
	Attempt int
}

// Decode unmarshals the payload into v.
func (t Task) Decode(v any) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return errors.Join(ErrPermanent, ErrInvalidPayload, err)
	}
	return nil
}

type Handler func(ctx context.Context, task Task) error

// Permanent wraps err so the queue stops retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrPermanent, err)
}

// Enqueuer accepts work for asynchronous execution. Enqueue must not block.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload any) (string, error)
}

// Failure is one failed attempt, kept for operators to inspect and replay.
type Failure struct {
	ID       string         `json:"id" gorm:"primaryKey"`
	TaskID   string         `json:"task_id" gorm:"not null"`
	TaskType string         `json:"task_type" gorm:"not null"`
	Payload  datatypes.JSON `json:"payload" gorm:"not null"`
	Error    string         `json:"error" gorm:"not null"`
	Attempt  int            `json:"attempt" gorm:"not null"`
	FailedAt time.Time      `json:"failed_at" gorm:"not null"`
}

func (Failure) TableName() string { return "task_failures" }

// FailureLog exposes recorded task failures for inspection and replay.
type FailureLog interface {
	ListFailures(ctx context.Context, taskType string, limit int) ([]Failure, error)
}

type Repository interface {
	InsertFailure(ctx context.Context, db *gorm.DB, failure *Failure) error
	ListFailures(ctx context.Context, db *gorm.DB, taskType string, limit int) ([]Failure, error)
}

// CreateAffiliatePayload asks for an affiliate account on the network. When
// PartnerID is set the new affiliate id is linked back to that partner.
type CreateAffiliatePayload struct {
	PartnerID    string `json:"partner_id,omitempty"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	ReferralCode string `json:"referral_code,omitempty"`
	Source       string `json:"source"`
}

// EnrollAffiliatePayload finishes onboarding for an affiliate that already
// exists on the network, so retries never create a second account.
type EnrollAffiliatePayload struct {
	AffiliateID  string `json:"affiliate_id"`
	PartnerID    string `json:"partner_id,omitempty"`
	ReferralCode string `json:"referral_code,omitempty"`
	Source       string `json:"source"`
}

type SubscribePayload struct {
	Email  string            `json:"email"`
	Name   string            `json:"name"`
	Fields map[string]string `json:"fields,omitempty"`
}

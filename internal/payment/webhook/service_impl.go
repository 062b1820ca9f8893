package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/partnerops/internal/clock"
	"github.com/railzwaylabs/partnerops/internal/config"
	"github.com/railzwaylabs/partnerops/internal/payment/adapters/stripe"
	paymentdomain "github.com/railzwaylabs/partnerops/internal/payment/domain"
	taskdomain "github.com/railzwaylabs/partnerops/internal/tasks/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const taskSource = "stripe_checkout"

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Cfg   config.Config
	Repo  paymentdomain.Repository
	Tasks taskdomain.Enqueuer
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    paymentdomain.Repository
	tasks   taskdomain.Enqueuer
	adapter paymentdomain.WebhookAdapter
}

func NewService(p Params) *Service {
	var adapter paymentdomain.WebhookAdapter
	if secret := strings.TrimSpace(p.Cfg.Stripe.WebhookSecret); secret != "" {
		adapter = stripe.NewAdapter(secret, p.Cfg.Stripe.WebhookTolerance)
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("payment.webhook"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		tasks:   p.Tasks,
		adapter: adapter,
	}
}

// IngestWebhook verifies and records a Stripe event, then turns completed
// checkouts into affiliate-creation tasks. Redelivered events are
// acknowledged without side effects.
func (s *Service) IngestWebhook(ctx context.Context, payload []byte, headers http.Header) (*paymentdomain.IngestResult, error) {
	if s.adapter == nil {
		return nil, paymentdomain.ErrNotConfigured
	}
	if !json.Valid(payload) {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if err := s.adapter.Verify(payload, headers); err != nil {
		s.log.Warn("webhook signature rejected", zap.Int("payload_size", len(payload)))
		return nil, err
	}

	event, err := s.adapter.Parse(payload)
	if err != nil {
		return nil, err
	}
	result := &paymentdomain.IngestResult{EventID: event.ID, EventType: event.Type}
	log := s.log.With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))

	now := s.clock.Now(ctx)
	err = s.repo.InsertEvent(ctx, s.db, &paymentdomain.EventRecord{
		ID:         s.genID.Generate(),
		EventID:    event.ID,
		EventType:  event.Type,
		Payload:    datatypes.JSON(maskPayload(payload)),
		ReceivedAt: now,
	})
	if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
		log.Info("duplicate webhook event acknowledged")
		result.Outcome = paymentdomain.OutcomeDuplicate
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	if event.Checkout == nil {
		log.Debug("webhook event ignored")
		result.Outcome = paymentdomain.OutcomeIgnored
		return result, nil
	}
	if event.Checkout.CustomerEmail == "" {
		log.Warn("checkout session has no customer email", zap.String("session_id", event.Checkout.ID))
		result.Outcome = paymentdomain.OutcomeIgnored
		return result, nil
	}

	first, last := splitName(event.Checkout.CustomerName)
	taskID, err := s.tasks.Enqueue(ctx, taskdomain.TypeCreateAffiliate, taskdomain.CreateAffiliatePayload{
		Email:     event.Checkout.CustomerEmail,
		FirstName: first,
		LastName:  last,
		Source:    taskSource,
	})
	if err != nil {
		// The queue has already recorded the failure for replay.
		log.Warn("failed to enqueue affiliate creation", zap.String("task_id", taskID), zap.Error(err))
	}

	if err := s.repo.MarkProcessed(ctx, s.db, event.ID, s.clock.Now(ctx)); err != nil {
		log.Error("failed to mark webhook event processed", zap.Error(err))
	}

	log.Info("checkout session processed", zap.String("session_id", event.Checkout.ID))
	result.Outcome = paymentdomain.OutcomeProcessed
	return result, nil
}

func (s *Service) CleanupEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := s.repo.DeleteReceivedBefore(ctx, s.db, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.Info("webhook events cleaned up", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	return deleted, nil
}

func splitName(name string) (string, string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

func maskPayload(raw []byte) []byte {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw // fallback
	}
	maskMap(obj)
	masked, err := json.Marshal(obj)
	if err != nil {
		return raw
	}
	return masked
}

func maskMap(m map[string]any) {
	for k, v := range m {
		switch strings.ToLower(k) {
		case "card", "billing_details", "shipping_details", "payment_method_details", "address", "phone":
			m[k] = "***"
		default:
			if nested, ok := v.(map[string]any); ok {
				maskMap(nested)
			} else if arr, ok := v.([]any); ok {
				for _, item := range arr {
					if itemMap, ok := item.(map[string]any); ok {
						maskMap(itemMap)
					}
				}
			}
		}
	}
}

var _ paymentdomain.Service = (*Service)(nil)

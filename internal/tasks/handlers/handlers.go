package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/railzwaylabs/partnerops/internal/config"
	"github.com/railzwaylabs/partnerops/internal/mailinglist"
	partnerdomain "github.com/railzwaylabs/partnerops/internal/partner/domain"
	"github.com/railzwaylabs/partnerops/internal/tapfiliate"
	"github.com/railzwaylabs/partnerops/internal/tasks/domain"
	"github.com/railzwaylabs/partnerops/internal/tasks/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type AffiliateNetwork interface {
	CreateAffiliate(ctx context.Context, input tapfiliate.CreateAffiliateInput) (string, error)
	AddAffiliateToProgram(ctx context.Context, programID, affiliateID, referralCode string) error
}

type AffiliateLinker interface {
	LinkAffiliate(ctx context.Context, partnerID string, affiliateID string) (*partnerdomain.Partner, error)
}

type MailingList interface {
	Subscribe(ctx context.Context, sub mailinglist.Subscriber) error
}

type Params struct {
	fx.In

	Queue    *service.Queue
	Cfg      config.Config
	Log      *zap.Logger
	Network  *tapfiliate.Client
	Partners partnerdomain.Service
	Mailing  *mailinglist.Provider
}

// Register wires the side-effect handlers into the queue.
func Register(p Params) {
	h := New(strings.TrimSpace(p.Cfg.Tapfiliate.ProgramID), p.Network, p.Partners, p.Mailing, p.Queue, p.Log)
	p.Queue.Register(domain.TypeCreateAffiliate, h.CreateAffiliate)
	p.Queue.Register(domain.TypeEnrollAffiliate, h.EnrollAffiliate)
	p.Queue.Register(domain.TypeSubscribe, h.Subscribe)
}

type Handlers struct {
	programID string
	network   AffiliateNetwork
	partners  AffiliateLinker
	mailing   MailingList
	tasks     domain.Enqueuer
	log       *zap.Logger
}

func New(programID string, network AffiliateNetwork, partners AffiliateLinker, mailing MailingList, tasks domain.Enqueuer, log *zap.Logger) *Handlers {
	return &Handlers{
		programID: programID,
		network:   network,
		partners:  partners,
		mailing:   mailing,
		tasks:     tasks,
		log:       log.Named("tasks.handlers"),
	}
}

// CreateAffiliate opens an affiliate account and hands the new id to an
// enroll task. Creation is the only step not safe to repeat, so nothing after
// it runs under this task's retries.
func (h *Handlers) CreateAffiliate(ctx context.Context, task domain.Task) error {
	var payload domain.CreateAffiliatePayload
	if err := task.Decode(&payload); err != nil {
		return err
	}
	if strings.TrimSpace(payload.Email) == "" {
		return domain.Permanent(errors.New("missing email"))
	}

	affiliateID, err := h.network.CreateAffiliate(ctx, tapfiliate.CreateAffiliateInput{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
	})
	if err != nil {
		if errors.Is(err, tapfiliate.ErrNotConfigured) {
			return domain.Permanent(err)
		}
		return err
	}

	log := h.log.With(
		zap.String("affiliate_id", affiliateID),
		zap.String("partner_id", payload.PartnerID),
		zap.String("source", payload.Source))

	enrollID, err := h.tasks.Enqueue(ctx, domain.TypeEnrollAffiliate, domain.EnrollAffiliatePayload{
		AffiliateID:  affiliateID,
		PartnerID:    payload.PartnerID,
		ReferralCode: payload.ReferralCode,
		Source:       payload.Source,
	})
	if err != nil {
		log.Error("affiliate created but enroll task not queued", zap.Error(err))
		return domain.Permanent(fmt.Errorf("affiliate %s created, enroll not queued: %w", affiliateID, err))
	}

	log.Info("affiliate created", zap.String("enroll_task_id", enrollID))
	return nil
}

// EnrollAffiliate links an existing affiliate to its partner and adds it to
// the program. Linking the same id twice is a no-op, so the task can be
// retried as a whole.
func (h *Handlers) EnrollAffiliate(ctx context.Context, task domain.Task) error {
	var payload domain.EnrollAffiliatePayload
	if err := task.Decode(&payload); err != nil {
		return err
	}
	if strings.TrimSpace(payload.AffiliateID) == "" {
		return domain.Permanent(errors.New("missing affiliate id"))
	}

	if payload.PartnerID != "" {
		_, err := h.partners.LinkAffiliate(ctx, payload.PartnerID, payload.AffiliateID)
		switch {
		case errors.Is(err, partnerdomain.ErrAffiliateAlreadyLinked),
			errors.Is(err, partnerdomain.ErrAffiliateInUse),
			errors.Is(err, partnerdomain.ErrNotFound):
			return domain.Permanent(err)
		case err != nil:
			return err
		}
	}

	if h.programID != "" {
		if err := h.network.AddAffiliateToProgram(ctx, h.programID, payload.AffiliateID, payload.ReferralCode); err != nil {
			if errors.Is(err, tapfiliate.ErrNotConfigured) {
				return domain.Permanent(err)
			}
			return err
		}
	}

	h.log.Info("affiliate enrolled",
		zap.String("affiliate_id", payload.AffiliateID),
		zap.String("partner_id", payload.PartnerID),
		zap.Int("attempt", task.Attempt))
	return nil
}

func (h *Handlers) Subscribe(ctx context.Context, task domain.Task) error {
	var payload domain.SubscribePayload
	if err := task.Decode(&payload); err != nil {
		return err
	}
	err := h.mailing.Subscribe(ctx, mailinglist.Subscriber{
		Email:  payload.Email,
		Name:   payload.Name,
		Fields: payload.Fields,
	})
	if errors.Is(err, mailinglist.ErrInvalidEmail) {
		return domain.Permanent(err)
	}
	return err
}

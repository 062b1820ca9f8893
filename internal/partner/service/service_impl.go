package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/railzwaylabs/partnerops/internal/clock"
	"github.com/railzwaylabs/partnerops/internal/partner/domain"
	taskdomain "github.com/railzwaylabs/partnerops/internal/tasks/domain"
	"github.com/railzwaylabs/partnerops/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxSlugLength = 32

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Tasks taskdomain.Enqueuer
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	tasks taskdomain.Enqueuer
}

func New(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("partner.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		tasks: p.Tasks,
	}
}

func (s *Service) SubmitApplication(ctx context.Context, req domain.SubmitApplicationRequest) (*domain.Application, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	app := &domain.Application{
		ID:            s.genID.Generate(),
		Name:          name,
		Email:         email,
		Company:       optional(req.Company),
		Website:       optional(req.Website),
		Country:       optional(strings.ToUpper(req.Country)),
		Audience:      optional(req.Audience),
		PromotionPlan: optional(req.PromotionPlan),
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindOpenApplicationByEmail(ctx, tx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateApplication
		}
		return s.repo.InsertApplication(ctx, tx, app)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, domain.ErrDuplicateApplication
		}
		return nil, err
	}

	s.log.Info("partner application submitted", zap.String("application_id", app.ID.String()))
	return app, nil
}

func (s *Service) ListApplications(ctx context.Context, status string) ([]domain.Application, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "", domain.StatusPending, domain.StatusApproved, domain.StatusRejected:
	default:
		return nil, domain.ErrInvalidStatus
	}
	return s.repo.ListApplications(ctx, s.db, status)
}

func (s *Service) GetApplication(ctx context.Context, id string) (*domain.Application, error) {
	appID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	app, err := s.repo.FindApplicationByID(ctx, s.db, appID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, domain.ErrNotFound
	}
	return app, nil
}

// ApproveApplication creates the partner in the same transaction as the
// status change. Onboarding side effects are queued after commit and never
// fail the approval.
func (s *Service) ApproveApplication(ctx context.Context, id string) (*domain.Partner, error) {
	appID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	var partner *domain.Partner
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := s.repo.FindApplicationByID(ctx, tx, appID)
		if err != nil {
			return err
		}
		if app == nil {
			return domain.ErrNotFound
		}
		if app.Status != domain.StatusPending {
			return domain.ErrApplicationNotPending
		}

		changed, err := s.repo.ReviewApplication(ctx, tx, appID, domain.StatusApproved, nil, now)
		if err != nil {
			return err
		}
		if !changed {
			return domain.ErrApplicationNotPending
		}

		partnerID := s.genID.Generate()
		partner = &domain.Partner{
			ID:            partnerID,
			ApplicationID: &appID,
			Name:          app.Name,
			Email:         app.Email,
			ReferralCode:  referralCode(app.Name, partnerID),
			Tier:          domain.DefaultTier,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return s.repo.InsertPartner(ctx, tx, partner)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("partner application approved",
		zap.String("application_id", appID.String()),
		zap.String("partner_id", partner.ID.String()))
	s.enqueueOnboarding(ctx, partner)
	return partner, nil
}

func (s *Service) enqueueOnboarding(ctx context.Context, partner *domain.Partner) {
	first, last := splitName(partner.Name)
	jobs := []struct {
		taskType string
		payload  any
	}{
		{taskdomain.TypeCreateAffiliate, taskdomain.CreateAffiliatePayload{
			PartnerID:    partner.ID.String(),
			Email:        partner.Email,
			FirstName:    first,
			LastName:     last,
			ReferralCode: partner.ReferralCode,
			Source:       "application",
		}},
		{taskdomain.TypeSubscribe, taskdomain.SubscribePayload{
			Email: partner.Email,
			Name:  partner.Name,
			Fields: map[string]string{
				"referral_code": partner.ReferralCode,
				"tier":          partner.Tier,
			},
		}},
	}

	for _, job := range jobs {
		if _, err := s.tasks.Enqueue(ctx, job.taskType, job.payload); err != nil {
			s.log.Warn("failed to enqueue onboarding task",
				zap.String("partner_id", partner.ID.String()),
				zap.String("task_type", job.taskType),
				zap.Error(err))
		}
	}
}

func (s *Service) RejectApplication(ctx context.Context, id string, reason string) (*domain.Application, error) {
	appID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	changed, err := s.repo.ReviewApplication(ctx, s.db, appID, domain.StatusRejected, optional(reason), now)
	if err != nil {
		return nil, err
	}

	app, err := s.repo.FindApplicationByID(ctx, s.db, appID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, domain.ErrNotFound
	}
	if !changed {
		return nil, domain.ErrApplicationNotPending
	}

	s.log.Info("partner application rejected", zap.String("application_id", appID.String()))
	return app, nil
}

func (s *Service) ListPartners(ctx context.Context) ([]domain.Partner, error) {
	return s.repo.ListPartners(ctx, s.db)
}

func (s *Service) GetPartner(ctx context.Context, id string) (*domain.Partner, error) {
	partnerID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.findPartner(ctx, s.db, partnerID)
}

func (s *Service) LinkAffiliate(ctx context.Context, id string, affiliateID string) (*domain.Partner, error) {
	partnerID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	affiliateID = strings.TrimSpace(affiliateID)
	if affiliateID == "" {
		return nil, domain.ErrInvalidAffiliate
	}

	changed, err := s.repo.SetAffiliateIfUnset(ctx, s.db, partnerID, affiliateID, s.clock.Now(ctx))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, domain.ErrAffiliateInUse
		}
		return nil, err
	}

	partner, err := s.findPartner(ctx, s.db, partnerID)
	if err != nil {
		return nil, err
	}
	if changed {
		s.log.Info("affiliate linked",
			zap.String("partner_id", partnerID.String()),
			zap.String("affiliate_id", affiliateID))
		return partner, nil
	}

	current := ""
	if partner.TapfiliateAffiliateID != nil {
		current = *partner.TapfiliateAffiliateID
	}
	if current != affiliateID {
		return nil, domain.ErrAffiliateAlreadyLinked
	}
	return partner, nil
}

func (s *Service) ListLinkedAffiliates(ctx context.Context) (map[string]snowflake.ID, error) {
	partners, err := s.repo.ListLinked(ctx, s.db)
	if err != nil {
		return nil, err
	}
	out := make(map[string]snowflake.ID, len(partners))
	for _, p := range partners {
		if p.TapfiliateAffiliateID == nil {
			continue
		}
		out[*p.TapfiliateAffiliateID] = p.ID
	}
	return out, nil
}

func (s *Service) findPartner(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Partner, error) {
	partner, err := s.repo.FindPartnerByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, domain.ErrNotFound
	}
	return partner, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func normalizeEmail(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return "", domain.ErrInvalidEmail
	}
	return value, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// referralCode is the slugged name plus the tail of the partner id in base36.
func referralCode(name string, id snowflake.ID) string {
	base := slug.Make(name)
	if len(base) > maxSlugLength {
		base = strings.Trim(base[:maxSlugLength], "-")
	}
	if base == "" {
		base = "partner"
	}
	suffix := strings.ToLower(id.Base36())
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return base + "-" + suffix
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

var _ domain.Service = (*Service)(nil)

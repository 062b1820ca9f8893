package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	SubmitApplication(ctx context.Context, req SubmitApplicationRequest) (*Application, error)
	ListApplications(ctx context.Context, status string) ([]Application, error)
	GetApplication(ctx context.Context, id string) (*Application, error)
	ApproveApplication(ctx context.Context, id string) (*Partner, error)
	RejectApplication(ctx context.Context, id string, reason string) (*Application, error)

	ListPartners(ctx context.Context) ([]Partner, error)
	GetPartner(ctx context.Context, id string) (*Partner, error)
	// LinkAffiliate records the partner's affiliate id. The first value
	// written wins; later different values are rejected.
	LinkAffiliate(ctx context.Context, partnerID string, affiliateID string) (*Partner, error)
	ListLinkedAffiliates(ctx context.Context) (map[string]snowflake.ID, error)
}

type Repository interface {
	InsertApplication(ctx context.Context, db *gorm.DB, app *Application) error
	FindApplicationByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Application, error)
	FindOpenApplicationByEmail(ctx context.Context, db *gorm.DB, email string) (*Application, error)
	ListApplications(ctx context.Context, db *gorm.DB, status string) ([]Application, error)
	// ReviewApplication moves a pending application to status and reports
	// whether a row changed.
	ReviewApplication(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, reason *string, at time.Time) (bool, error)

	InsertPartner(ctx context.Context, db *gorm.DB, partner *Partner) error
	FindPartnerByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Partner, error)
	ListPartners(ctx context.Context, db *gorm.DB) ([]Partner, error)
	SetAffiliateIfUnset(ctx context.Context, db *gorm.DB, id snowflake.ID, affiliateID string, at time.Time) (bool, error)
	ListLinked(ctx context.Context, db *gorm.DB) ([]Partner, error)
}

type SubmitApplicationRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Company       string `json:"company"`
	Website       string `json:"website"`
	Country       string `json:"country"`
	Audience      string `json:"audience"`
	PromotionPlan string `json:"promotion_plan"`
}

var (
	ErrInvalidName            = errors.New("invalid_name")
	ErrInvalidEmail           = errors.New("invalid_email")
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidStatus          = errors.New("invalid_status")
	ErrInvalidAffiliate       = errors.New("invalid_affiliate")
	ErrNotFound               = errors.New("not_found")
	ErrDuplicateApplication   = errors.New("duplicate_application")
	ErrApplicationNotPending  = errors.New("application_not_pending")
	ErrAffiliateAlreadyLinked = errors.New("affiliate_already_linked")
	ErrAffiliateInUse         = errors.New("affiliate_in_use")
)

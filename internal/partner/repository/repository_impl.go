package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/partnerops/internal/partner/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const applicationColumns = `id, name, email, company, website, country, audience, promotion_plan,
	status, rejection_reason, reviewed_at, created_at, updated_at`

const partnerColumns = `id, application_id, name, email, referral_code, tier,
	tapfiliate_affiliate_id, created_at, updated_at`

func (r *repo) InsertApplication(ctx context.Context, db *gorm.DB, app *domain.Application) error {
	return db.WithContext(ctx).Create(app).Error
}

func (r *repo) FindApplicationByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Application, error) {
	var app domain.Application
	err := db.WithContext(ctx).Raw(
		`SELECT `+applicationColumns+` FROM partner_applications WHERE id = ?`,
		id,
	).Scan(&app).Error
	if err != nil {
		return nil, err
	}
	if app.ID == 0 {
		return nil, nil
	}
	return &app, nil
}

func (r *repo) FindOpenApplicationByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Application, error) {
	var app domain.Application
	err := db.WithContext(ctx).Raw(
		`SELECT `+applicationColumns+` FROM partner_applications
		 WHERE email = ? AND status IN (?, ?) LIMIT 1`,
		email,
		domain.StatusPending,
		domain.StatusApproved,
	).Scan(&app).Error
	if err != nil {
		return nil, err
	}
	if app.ID == 0 {
		return nil, nil
	}
	return &app, nil
}

func (r *repo) ListApplications(ctx context.Context, db *gorm.DB, status string) ([]domain.Application, error) {
	var items []domain.Application
	stmt := db.WithContext(ctx).Model(&domain.Application{})
	if status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	if err := stmt.Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ReviewApplication(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, reason *string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE partner_applications
		 SET status = ?, rejection_reason = ?, reviewed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		status,
		reason,
		at,
		at,
		id,
		domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertPartner(ctx context.Context, db *gorm.DB, partner *domain.Partner) error {
	return db.WithContext(ctx).Create(partner).Error
}

func (r *repo) FindPartnerByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Partner, error) {
	var p domain.Partner
	err := db.WithContext(ctx).Raw(
		`SELECT `+partnerColumns+` FROM partners WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ListPartners(ctx context.Context, db *gorm.DB) ([]domain.Partner, error) {
	var items []domain.Partner
	err := db.WithContext(ctx).Raw(
		`SELECT ` + partnerColumns + ` FROM partners ORDER BY created_at DESC, id DESC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// SetAffiliateIfUnset only writes when the column is still NULL, so two
// concurrent links cannot overwrite each other.
func (r *repo) SetAffiliateIfUnset(ctx context.Context, db *gorm.DB, id snowflake.ID, affiliateID string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE partners
		 SET tapfiliate_affiliate_id = ?, updated_at = ?
		 WHERE id = ? AND tapfiliate_affiliate_id IS NULL`,
		affiliateID,
		at,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListLinked(ctx context.Context, db *gorm.DB) ([]domain.Partner, error) {
	var items []domain.Partner
	err := db.WithContext(ctx).Raw(
		`SELECT ` + partnerColumns + ` FROM partners
		 WHERE tapfiliate_affiliate_id IS NOT NULL AND tapfiliate_affiliate_id <> ''
		 ORDER BY id ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

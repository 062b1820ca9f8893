package repository

import (
	"context"

	earningsdomain "github.com/railzwaylabs/partnerops/internal/earnings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() earningsdomain.Repository {
	return &repo{}
}

var upsertColumns = []string{
	"gross_revenue",
	"net_revenue",
	"commission_rate",
	"commission_amount",
	"source",
	"updated_at",
}

// Upsert writes the row keyed by (partner_id, period, currency), replacing the
// numeric fields when it already exists, and returns the stored row.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, rec *earningsdomain.EarningsRecord) (*earningsdomain.EarningsRecord, error) {
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "partner_id"},
				{Name: "period"},
				{Name: "currency"},
			},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).
		Create(rec).Error
	if err != nil {
		return nil, err
	}

	var stored earningsdomain.EarningsRecord
	err = db.WithContext(ctx).
		Where("partner_id = ? AND period = ? AND currency = ?", rec.PartnerID, rec.Period, rec.Currency).
		Take(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter earningsdomain.ListFilter) ([]earningsdomain.EarningsRecord, error) {
	var items []earningsdomain.EarningsRecord

	query := db.WithContext(ctx).Model(&earningsdomain.EarningsRecord{})
	if filter.Period != nil {
		query = query.Where("period = ?", filter.Period.Start())
	}
	if filter.PartnerID != 0 {
		query = query.Where("partner_id = ?", filter.PartnerID)
	}

	err := query.
		Order("period DESC").
		Order("partner_id ASC").
		Order("currency ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

package repository

import (
	"context"
	"time"

	"github.com/railzwaylabs/partnerops/internal/payment/domain"
	"github.com/railzwaylabs/partnerops/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, conn *gorm.DB, record *domain.EventRecord) error {
	if err := conn.WithContext(ctx).Create(record).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return domain.ErrEventAlreadyProcessed
		}
		return err
	}
	return nil
}

func (r *repo) MarkProcessed(ctx context.Context, conn *gorm.DB, eventID string, at time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE stripe_events SET processed_at = ? WHERE event_id = ?`,
		at,
		eventID,
	).Error
}

func (r *repo) DeleteReceivedBefore(ctx context.Context, conn *gorm.DB, cutoff time.Time) (int64, error) {
	res := conn.WithContext(ctx).Exec(`DELETE FROM stripe_events WHERE received_at < ?`, cutoff)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

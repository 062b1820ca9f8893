package repository

import (
	"context"

	"github.com/railzwaylabs/partnerops/internal/tasks/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertFailure(ctx context.Context, db *gorm.DB, failure *domain.Failure) error {
	return db.WithContext(ctx).Create(failure).Error
}

func (r *repo) ListFailures(ctx context.Context, db *gorm.DB, taskType string, limit int) ([]domain.Failure, error) {
	var items []domain.Failure
	stmt := db.WithContext(ctx).Model(&domain.Failure{})
	if taskType != "" {
		stmt = stmt.Where("task_type = ?", taskType)
	}
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Order("failed_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

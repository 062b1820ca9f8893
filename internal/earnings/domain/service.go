package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	// SyncPeriod recomputes the ledger for one YYYY-MM period from the
	// affiliate network's conversions.
	SyncPeriod(ctx context.Context, period string) (*SyncSummary, error)
	List(ctx context.Context, filter ListFilter) ([]EarningsRecord, error)
	PartnerStatement(ctx context.Context, partnerID snowflake.ID, period string) ([]EarningsRecord, error)
	// CurrentPeriods returns the previous and current month.
	CurrentPeriods(ctx context.Context) []string
}

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, record *EarningsRecord) (*EarningsRecord, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]EarningsRecord, error)
}

// AffiliateDirectory resolves affiliate network ids to internal partners.
type AffiliateDirectory interface {
	ListLinkedAffiliates(ctx context.Context) (map[string]snowflake.ID, error)
}

// ConversionSource pages through the affiliate network's conversions.
// from is inclusive, to is exclusive.
type ConversionSource interface {
	ListConversions(ctx context.Context, programID string, from, to time.Time, page int) ([]map[string]any, error)
}

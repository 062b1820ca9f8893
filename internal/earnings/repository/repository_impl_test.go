package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	earningsdomain "github.com/railzwaylabs/partnerops/internal/earnings/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&earningsdomain.EarningsRecord{}))
	return db
}

func record(id snowflake.ID, partnerID snowflake.ID, period time.Time, currency string, gross string) *earningsdomain.EarningsRecord {
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	return &earningsdomain.EarningsRecord{
		ID:               id,
		PartnerID:        partnerID,
		Period:           period,
		Currency:         currency,
		GrossRevenue:     decimal.RequireFromString(gross),
		NetRevenue:       decimal.RequireFromString(gross),
		CommissionRate:   decimal.RequireFromString("0.5"),
		CommissionAmount: decimal.RequireFromString(gross).Div(decimal.NewFromInt(2)),
		Source:           "tapfiliate",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestUpsertReplacesExistingRow(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := repo.Upsert(ctx, db, record(1, 7, jan, "usd", "10"))
	require.NoError(t, err)
	require.Equal(t, snowflake.ID(1), first.ID)

	second, err := repo.Upsert(ctx, db, record(2, 7, jan, "usd", "40"))
	require.NoError(t, err)
	require.Equal(t, snowflake.ID(1), second.ID)
	require.True(t, second.GrossRevenue.Equal(decimal.NewFromInt(40)))
	require.True(t, second.CommissionAmount.Equal(decimal.NewFromInt(20)))

	var count int64
	require.NoError(t, db.Model(&earningsdomain.EarningsRecord{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	for _, rec := range []*earningsdomain.EarningsRecord{
		record(1, 8, jan, "usd", "1"),
		record(2, 7, jan, "usd", "2"),
		record(3, 7, jan, "eur", "3"),
		record(4, 7, feb, "usd", "4"),
	} {
		_, err := repo.Upsert(ctx, db, rec)
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, db, earningsdomain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, snowflake.ID(4), all[0].ID)
	require.Equal(t, snowflake.ID(3), all[1].ID)
	require.Equal(t, snowflake.ID(2), all[2].ID)
	require.Equal(t, snowflake.ID(1), all[3].ID)

	period := earningsdomain.Period{Year: 2025, Month: time.January}
	janRows, err := repo.List(ctx, db, earningsdomain.ListFilter{Period: &period, PartnerID: 7})
	require.NoError(t, err)
	require.Len(t, janRows, 2)
	require.Equal(t, "eur", janRows[0].Currency)
	require.Equal(t, "usd", janRows[1].Currency)
}

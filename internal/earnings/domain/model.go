package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// EarningsRecord is one ledger row. (PartnerID, Period, Currency) is unique;
// re-running a period replaces the numeric fields in place.
type EarningsRecord struct {
	ID               snowflake.ID    `json:"id" gorm:"primaryKey"`
	PartnerID        snowflake.ID    `json:"partner_id" gorm:"not null;uniqueIndex:ux_partner_earnings_key,priority:1"`
	Period           time.Time       `json:"period" gorm:"type:date;not null;uniqueIndex:ux_partner_earnings_key,priority:2"`
	Currency         string          `json:"currency" gorm:"type:text;not null;uniqueIndex:ux_partner_earnings_key,priority:3"`
	GrossRevenue     decimal.Decimal `json:"gross_revenue" gorm:"type:numeric(20,6);not null"`
	NetRevenue       decimal.Decimal `json:"net_revenue" gorm:"type:numeric(20,6);not null"`
	CommissionRate   decimal.Decimal `json:"commission_rate" gorm:"type:numeric(10,6);not null"`
	CommissionAmount decimal.Decimal `json:"commission_amount" gorm:"type:numeric(20,6);not null"`
	Source           string          `json:"source" gorm:"type:text;not null"`
	CreatedAt        time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"not null"`
}

func (EarningsRecord) TableName() string { return "partner_earnings" }

// Conversion is a raw conversion object as returned by the affiliate network.
// Its shape is not uniform across accounts, so it stays untyped until the
// aggregator extracts the fields it needs.
type Conversion map[string]any

// Totals is the per (partner, currency) result of one reconciliation run.
type Totals struct {
	PartnerID        snowflake.ID    `json:"partnerId"`
	Currency         string          `json:"currency"`
	Gross            decimal.Decimal `json:"gross"`
	Net              decimal.Decimal `json:"net"`
	CommissionRate   decimal.Decimal `json:"commissionRate"`
	CommissionAmount decimal.Decimal `json:"commissionAmount"`
}

type SyncSummary struct {
	Period string   `json:"period"`
	Totals []Totals `json:"totals"`
	Note   string   `json:"note,omitempty"`
}

type ListFilter struct {
	Period    *Period
	PartnerID snowflake.ID
}

package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/partnerops/internal/clock"
	"github.com/railzwaylabs/partnerops/internal/config"
	earningsdomain "github.com/railzwaylabs/partnerops/internal/earnings/domain"
	"github.com/railzwaylabs/partnerops/internal/observability"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	noteNoLinkedPartners = "no partners are linked to an affiliate"
	noteNoConversions    = "no attributable conversions in period"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Cfg        config.Config
	Repo       earningsdomain.Repository
	Affiliates earningsdomain.AffiliateDirectory
	Source     earningsdomain.ConversionSource
	Metrics    *observability.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       earningsdomain.Repository
	affiliates earningsdomain.AffiliateDirectory
	source     earningsdomain.ConversionSource
	metrics    *observability.Metrics

	configured     bool
	programID      string
	pageSize       int
	maxPages       int
	commissionRate decimal.Decimal
	fees           earningsdomain.FeeModel
	sourceTag      string
}

func NewService(p ServiceParam) *Service {
	metrics := p.Metrics
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}

	return &Service{
		db:         p.DB,
		log:        p.Log.Named("earnings.service"),
		genID:      p.GenID,
		clock:      clk,
		repo:       p.Repo,
		affiliates: p.Affiliates,
		source:     p.Source,
		metrics:    metrics,

		configured:     p.Cfg.Tapfiliate.Configured(),
		programID:      p.Cfg.Tapfiliate.ProgramID,
		pageSize:       p.Cfg.Tapfiliate.PageSize,
		maxPages:       p.Cfg.Tapfiliate.MaxPages,
		commissionRate: decimal.NewFromFloat(p.Cfg.Earnings.CommissionRate),
		fees:           earningsdomain.NewFeeModel(p.Cfg.Earnings.FeePercent, p.Cfg.Earnings.FeeFixed),
		sourceTag:      p.Cfg.Earnings.SourceTag,
	}
}

func (s *Service) SyncPeriod(ctx context.Context, value string) (*earningsdomain.SyncSummary, error) {
	summary, err := s.syncPeriod(ctx, value)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.metrics.EarningsSyncRuns.WithLabelValues(outcome).Inc()
	return summary, err
}

func (s *Service) syncPeriod(ctx context.Context, value string) (*earningsdomain.SyncSummary, error) {
	period, err := earningsdomain.ParsePeriod(value)
	if err != nil {
		return nil, err
	}
	if !s.configured {
		return nil, earningsdomain.ErrTapfiliateNotConfigured
	}

	log := s.log.With(zap.String("period", period.String()))

	affiliates, err := s.affiliates.ListLinkedAffiliates(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve affiliates: %w", err)
	}
	if len(affiliates) == 0 {
		log.Info("earnings sync skipped, no linked partners")
		return &earningsdomain.SyncSummary{
			Period: period.String(),
			Totals: []earningsdomain.Totals{},
			Note:   noteNoLinkedPartners,
		}, nil
	}

	conversions, err := s.fetchConversions(ctx, period)
	if err != nil {
		log.Error("conversion fetch failed", zap.Error(err))
		return nil, err
	}

	agg := aggregate(conversions, affiliates, s.fees)
	for reason, count := range agg.skipped {
		s.metrics.ConversionsSkipped.WithLabelValues(reason).Add(float64(count))
		log.Debug("conversions skipped", zap.String("reason", reason), zap.Int("count", count))
	}

	totals, err := s.writeLedger(ctx, period, agg.buckets)
	if err != nil {
		log.Error("ledger write failed", zap.Error(err))
		return nil, err
	}

	log.Info("earnings synced",
		zap.Int("conversions", len(conversions)),
		zap.Int("linked_partners", len(affiliates)),
		zap.Int("rows", len(totals)))

	summary := &earningsdomain.SyncSummary{Period: period.String(), Totals: totals}
	if len(totals) == 0 {
		summary.Note = noteNoConversions
	}
	return summary, nil
}

// writeLedger upserts every bucket in one transaction so a failed run leaves
// the previous ledger state untouched.
func (s *Service) writeLedger(ctx context.Context, period earningsdomain.Period, buckets []*bucket) ([]earningsdomain.Totals, error) {
	totals := make([]earningsdomain.Totals, 0, len(buckets))
	if len(buckets) == 0 {
		return totals, nil
	}

	now := s.clock.Now(ctx)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, b := range buckets {
			rec := &earningsdomain.EarningsRecord{
				ID:               s.genID.Generate(),
				PartnerID:        b.partnerID,
				Period:           period.Start(),
				Currency:         b.currency,
				GrossRevenue:     b.gross,
				NetRevenue:       b.net,
				CommissionRate:   s.commissionRate,
				CommissionAmount: b.net.Mul(s.commissionRate),
				Source:           s.sourceTag,
				CreatedAt:        now,
				UpdatedAt:        now,
			}

			stored, err := s.repo.Upsert(ctx, tx, rec)
			if err != nil {
				return fmt.Errorf("%w: partner %s %s: %w", earningsdomain.ErrLedgerWriteFailed, b.partnerID, b.currency, err)
			}
			totals = append(totals, toTotals(stored))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.EarningsRowsUpserted.Add(float64(len(totals)))
	return totals, nil
}

func (s *Service) List(ctx context.Context, filter earningsdomain.ListFilter) ([]earningsdomain.EarningsRecord, error) {
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) PartnerStatement(ctx context.Context, partnerID snowflake.ID, value string) ([]earningsdomain.EarningsRecord, error) {
	if partnerID == 0 {
		return nil, earningsdomain.ErrInvalidPartner
	}
	period, err := earningsdomain.ParsePeriod(value)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, s.db, earningsdomain.ListFilter{Period: &period, PartnerID: partnerID})
}

// CurrentPeriods returns the previous and current month, the window the
// scheduler keeps reconciled.
func (s *Service) CurrentPeriods(ctx context.Context) []string {
	current := earningsdomain.PeriodOf(s.clock.Now(ctx))
	return []string{current.Previous().String(), current.String()}
}

func toTotals(rec *earningsdomain.EarningsRecord) earningsdomain.Totals {
	return earningsdomain.Totals{
		PartnerID:        rec.PartnerID,
		Currency:         rec.Currency,
		Gross:            rec.GrossRevenue,
		Net:              rec.NetRevenue,
		CommissionRate:   rec.CommissionRate,
		CommissionAmount: rec.CommissionAmount,
	}
}

var _ earningsdomain.Service = (*Service)(nil)

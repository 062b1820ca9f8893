package scheduler

import (
	"context"
	"time"

	"github.com/railzwaylabs/partnerops/internal/clock"
	"github.com/railzwaylabs/partnerops/internal/config"
	earningsdomain "github.com/railzwaylabs/partnerops/internal/earnings/domain"
	paymentdomain "github.com/railzwaylabs/partnerops/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
)

const (
	defaultEarningsInterval = 6 * time.Hour
	defaultCleanupInterval  = 24 * time.Hour
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Cfg      config.Config
	Earnings earningsdomain.Service
	Payments paymentdomain.Service
}

type Scheduler struct {
	log      *zap.Logger
	clock    clock.Clock
	cfg      config.Config
	earnings earningsdomain.Service
	payments paymentdomain.Service
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:      p.Log.Named("scheduler"),
		clock:    p.Clock,
		cfg:      p.Cfg,
		earnings: p.Earnings,
		payments: p.Payments,
	}
}

// RunForever runs every job once, then on its own ticker until ctx is done.
// A failing job is logged and retried on its next tick.
func (s *Scheduler) RunForever(ctx context.Context) {
	if !s.cfg.Scheduler.Enabled {
		s.log.Info("scheduler disabled")
		return
	}

	earningsEvery := s.cfg.Scheduler.EarningsInterval
	if earningsEvery <= 0 {
		earningsEvery = defaultEarningsInterval
	}
	cleanupEvery := s.cfg.Scheduler.CleanupInterval
	if cleanupEvery <= 0 {
		cleanupEvery = defaultCleanupInterval
	}

	earningsTicker := time.NewTicker(earningsEvery)
	defer earningsTicker.Stop()
	cleanupTicker := time.NewTicker(cleanupEvery)
	defer cleanupTicker.Stop()

	_ = s.SyncEarningsJob(ctx)
	_ = s.CleanupWebhookEventsJob(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-earningsTicker.C:
			_ = s.SyncEarningsJob(ctx)
		case <-cleanupTicker.C:
			_ = s.CleanupWebhookEventsJob(ctx)
		}
	}
}

// SyncEarningsJob reconciles the previous and the current month. Late
// conversions for last month keep arriving for a while after it closes.
func (s *Scheduler) SyncEarningsJob(ctx context.Context) error {
	run := s.startJob("sync_earnings")
	defer s.finishJob(run)

	var firstErr error
	for _, period := range s.earnings.CurrentPeriods(ctx) {
		summary, err := s.earnings.SyncPeriod(ctx, period)
		if err != nil {
			s.logJobError(run, err, zap.String("period", period))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		run.AddProcessed(len(summary.Totals))
	}
	return firstErr
}

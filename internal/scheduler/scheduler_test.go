package scheduler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/partnerops/internal/clock"
	"github.com/railzwaylabs/partnerops/internal/config"
	earningsdomain "github.com/railzwaylabs/partnerops/internal/earnings/domain"
	paymentdomain "github.com/railzwaylabs/partnerops/internal/payment/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type earningsMock struct {
	mock.Mock
}

func (m *earningsMock) SyncPeriod(ctx context.Context, period string) (*earningsdomain.SyncSummary, error) {
	args := m.Called(ctx, period)
	summary, _ := args.Get(0).(*earningsdomain.SyncSummary)
	return summary, args.Error(1)
}

func (m *earningsMock) List(ctx context.Context, filter earningsdomain.ListFilter) ([]earningsdomain.EarningsRecord, error) {
	args := m.Called(ctx, filter)
	records, _ := args.Get(0).([]earningsdomain.EarningsRecord)
	return records, args.Error(1)
}

func (m *earningsMock) PartnerStatement(ctx context.Context, partnerID snowflake.ID, period string) ([]earningsdomain.EarningsRecord, error) {
	args := m.Called(ctx, partnerID, period)
	records, _ := args.Get(0).([]earningsdomain.EarningsRecord)
	return records, args.Error(1)
}

func (m *earningsMock) CurrentPeriods(ctx context.Context) []string {
	args := m.Called(ctx)
	periods, _ := args.Get(0).([]string)
	return periods
}

type paymentMock struct {
	mock.Mock
}

func (m *paymentMock) IngestWebhook(ctx context.Context, payload []byte, headers http.Header) (*paymentdomain.IngestResult, error) {
	args := m.Called(ctx, payload, headers)
	result, _ := args.Get(0).(*paymentdomain.IngestResult)
	return result, args.Error(1)
}

func (m *paymentMock) CleanupEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

var now = time.Date(2025, time.February, 3, 10, 0, 0, 0, time.UTC)

func newTestScheduler(cfg config.Config, earnings *earningsMock, payments *paymentMock) *Scheduler {
	return New(Params{
		Log:      zap.NewNop(),
		Clock:    clock.Fixed(now),
		Cfg:      cfg,
		Earnings: earnings,
		Payments: payments,
	})
}

func TestSyncEarningsJob_ContinuesAfterFailure(t *testing.T) {
	earnings := &earningsMock{}
	earnings.On("CurrentPeriods", mock.Anything).Return([]string{"2025-01", "2025-02"})
	earnings.On("SyncPeriod", mock.Anything, "2025-01").Return(nil, earningsdomain.ErrConversionFetchFailed)
	earnings.On("SyncPeriod", mock.Anything, "2025-02").Return(&earningsdomain.SyncSummary{Period: "2025-02"}, nil)

	s := newTestScheduler(config.Config{}, earnings, &paymentMock{})

	err := s.SyncEarningsJob(context.Background())
	require.ErrorIs(t, err, earningsdomain.ErrConversionFetchFailed)
	earnings.AssertExpectations(t)
}

func TestCleanupWebhookEventsJob(t *testing.T) {
	payments := &paymentMock{}
	payments.On("CleanupEvents", mock.Anything, now.AddDate(0, 0, -30)).Return(int64(4), nil).Once()

	s := newTestScheduler(config.Config{WebhookRetentionDays: 30}, &earningsMock{}, payments)

	require.NoError(t, s.CleanupWebhookEventsJob(context.Background()))
	payments.AssertExpectations(t)
}

func TestCleanupWebhookEventsJob_Disabled(t *testing.T) {
	payments := &paymentMock{}
	s := newTestScheduler(config.Config{}, &earningsMock{}, payments)

	require.NoError(t, s.CleanupWebhookEventsJob(context.Background()))
	payments.AssertNotCalled(t, "CleanupEvents", mock.Anything, mock.Anything)
}

func TestCleanupWebhookEventsJob_Error(t *testing.T) {
	payments := &paymentMock{}
	payments.On("CleanupEvents", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

	s := newTestScheduler(config.Config{WebhookRetentionDays: 1}, &earningsMock{}, payments)

	require.EqualError(t, s.CleanupWebhookEventsJob(context.Background()), "db down")
}

func TestRunForever_RunsJobsUntilCancelled(t *testing.T) {
	earnings := &earningsMock{}
	earnings.On("CurrentPeriods", mock.Anything).Return([]string{"2025-02"})
	earnings.On("SyncPeriod", mock.Anything, "2025-02").Return(&earningsdomain.SyncSummary{Period: "2025-02"}, nil)
	cleaned := make(chan struct{}, 1)
	payments := &paymentMock{}
	payments.On("CleanupEvents", mock.Anything, mock.Anything).Return(int64(0), nil).Run(func(mock.Arguments) {
		select {
		case cleaned <- struct{}{}:
		default:
		}
	})

	cfg := config.Config{
		WebhookRetentionDays: 7,
		Scheduler: config.SchedulerConfig{
			Enabled:          true,
			EarningsInterval: time.Hour,
			CleanupInterval:  time.Hour,
		},
	}
	s := newTestScheduler(cfg, earnings, payments)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunForever(ctx)
		close(done)
	}()

	select {
	case <-cleaned:
	case <-time.After(time.Second):
		t.Fatal("cleanup job did not run")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	earnings.AssertCalled(t, "SyncPeriod", mock.Anything, "2025-02")
}

func TestRunForever_Disabled(t *testing.T) {
	earnings := &earningsMock{}
	s := newTestScheduler(config.Config{}, earnings, &paymentMock{})

	s.RunForever(context.Background())
	earnings.AssertNotCalled(t, "CurrentPeriods", mock.Anything)
}

package billing

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/school-admin/internal/lib/period"
	"github.com/magabrotheeeer/school-admin/internal/metrics"
	"github.com/magabrotheeeer/school-admin/internal/models"
)

type RepositoryMock struct {
	mock.Mock
}

func (m *RepositoryMock) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepositoryMock) StartTrial(ctx context.Context, userID int64, start, end time.Time) error {
	return m.Called(ctx, userID, start, end).Error(0)
}

func (m *RepositoryMock) CurrentPeriod(ctx context.Context, userID int64, today time.Time) (*models.BillingPeriod, error) {
	args := m.Called(ctx, userID, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BillingPeriod), args.Error(1)
}

func (m *RepositoryMock) ListPeriods(ctx context.Context, userID int64) ([]*models.BillingPeriod, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BillingPeriod), args.Error(1)
}

func (m *RepositoryMock) ExtendPeriod(ctx context.Context, userID int64, today time.Time, cycleDays int) (*models.BillingPeriod, error) {
	args := m.Called(ctx, userID, today, cycleDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BillingPeriod), args.Error(1)
}

func (m *RepositoryMock) CancelActive(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepositoryMock) ClearCancellation(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type GuardMock struct {
	mock.Mock
}

func (m *GuardMock) MarkOnce(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *GuardMock) Forget(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

// freezeToday фиксирует "сегодня" для period.Today на время теста.
func freezeToday(t *testing.T, today time.Time) {
	t.Helper()
	prev := period.NowFunc
	period.NowFunc = func() time.Time { return today.Add(13 * time.Hour) }
	t.Cleanup(func() { period.NowFunc = prev })
}

func defaultOptions() Options {
	return Options{TrialDays: 7, BillingDays: 30, MonthlyPrice: 1000, Currency: "dzd"}
}

func newTestService(repo Repository, opts Options) (*Service, *metrics.Metrics) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return New(newNoopLogger(), repo, m, opts), m
}

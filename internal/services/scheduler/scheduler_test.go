package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/school-admin/internal/lib/period"
	"github.com/magabrotheeeer/school-admin/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindTrialsEndingOn(ctx context.Context, day time.Time) ([]*models.User, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockRepository) FindPeriodsEndingOn(ctx context.Context, day time.Time) ([]*models.User, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func freezeToday(t *testing.T, y int, m time.Month, d int) (today, tomorrow time.Time) {
	t.Helper()
	prev := period.NowFunc
	period.NowFunc = func() time.Time { return time.Date(y, m, d, 15, 30, 0, 0, time.UTC) }
	t.Cleanup(func() { period.NowFunc = prev })
	today = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return today, today.AddDate(0, 0, 1)
}

func TestSchedulerService_RunOnce(t *testing.T) {
	today, tomorrow := freezeToday(t, 2024, time.June, 30)

	trialUser := &models.User{ID: 1, Email: "trial@school.dz", Username: "trial"}
	paidUser := &models.User{ID: 2, Email: "paid@school.dz"}

	tests := []struct {
		name       string
		setupMocks func(r *MockRepository, n *MockNotifier)
	}{
		{
			name: "publishes both kinds",
			setupMocks: func(r *MockRepository, n *MockNotifier) {
				r.On("FindTrialsEndingOn", mock.Anything, today).Return([]*models.User{trialUser}, nil).Once()
				r.On("FindPeriodsEndingOn", mock.Anything, tomorrow).Return([]*models.User{paidUser}, nil).Once()
				n.On("Notify", mock.Anything, models.Notification{
					Kind: models.NotificationTrialEnding, Email: "trial@school.dz", Username: "trial", Date: "2024-06-30",
				}).Return(nil).Once()
				n.On("Notify", mock.Anything, models.Notification{
					Kind: models.NotificationPeriodEnding, Email: "paid@school.dz", Date: "2024-07-01",
				}).Return(nil).Once()
			},
		},
		{
			name: "nothing to send",
			setupMocks: func(r *MockRepository, _ *MockNotifier) {
				r.On("FindTrialsEndingOn", mock.Anything, today).Return([]*models.User{}, nil).Once()
				r.On("FindPeriodsEndingOn", mock.Anything, tomorrow).Return([]*models.User{}, nil).Once()
			},
		},
		{
			name: "trial lookup fails, periods still processed",
			setupMocks: func(r *MockRepository, n *MockNotifier) {
				r.On("FindTrialsEndingOn", mock.Anything, today).Return(nil, errors.New("db down")).Once()
				r.On("FindPeriodsEndingOn", mock.Anything, tomorrow).Return([]*models.User{paidUser}, nil).Once()
				n.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()
			},
		},
		{
			name: "publish error does not stop the loop",
			setupMocks: func(r *MockRepository, n *MockNotifier) {
				r.On("FindTrialsEndingOn", mock.Anything, today).Return([]*models.User{trialUser, trialUser}, nil).Once()
				r.On("FindPeriodsEndingOn", mock.Anything, tomorrow).Return(nil, nil).Once()
				n.On("Notify", mock.Anything, mock.Anything).Return(errors.New("broker down")).Twice()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			notifier := new(MockNotifier)
			tt.setupMocks(repo, notifier)

			svc := NewSchedulerService(repo, notifier, newNoopLogger())
			svc.RunOnce(context.Background())

			repo.AssertExpectations(t)
			notifier.AssertExpectations(t)
		})
	}
}

func TestSchedulerService_Start(t *testing.T) {
	svc := NewSchedulerService(new(MockRepository), new(MockNotifier), newNoopLogger())

	err := svc.Start(context.Background(), "not a cron spec")
	assert.Error(t, err)

	require.NoError(t, svc.Start(context.Background(), "@daily"))
	svc.Stop()
}

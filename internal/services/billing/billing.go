// Package billing содержит правила доступа, пробного периода, отмены
// и продления оплаченных периодов, а также обработку вебхуков шлюза.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/school-admin/internal/lib/period"
	"github.com/magabrotheeeer/school-admin/internal/lib/sl"
	"github.com/magabrotheeeer/school-admin/internal/models"
)

// Repository хранилище пользователей и журнала периодов.
type Repository interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	StartTrial(ctx context.Context, userID int64, start, end time.Time) error
	CurrentPeriod(ctx context.Context, userID int64, today time.Time) (*models.BillingPeriod, error)
	ListPeriods(ctx context.Context, userID int64) ([]*models.BillingPeriod, error)
	ExtendPeriod(ctx context.Context, userID int64, today time.Time, cycleDays int) (*models.BillingPeriod, error)
	CancelActive(ctx context.Context, userID int64) (int64, error)
	ClearCancellation(ctx context.Context, userID int64) (int64, error)
}

// ReplayGuard отмечает уже обработанные события шлюза.
type ReplayGuard interface {
	MarkOnce(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

// Recorder принимает события для метрик.
type Recorder interface {
	WebhookHandled(result string)
	PeriodExtended()
	TrialStarted()
	AccessDenied()
}

// Options параметры тарифа и защиты вебхука.
type Options struct {
	TrialDays    int
	BillingDays  int
	MonthlyPrice int
	Currency     string

	// Guard включает отбрасывание повторных доставок; nil оставляет его выключенным.
	Guard ReplayGuard
	// SigningSecret включает проверку заголовка signature; пустая строка выключает.
	SigningSecret string
}

// Service бизнес-логика подписки.
type Service struct {
	repo    Repository
	metrics Recorder
	log     *slog.Logger
	opts    Options
}

// New создаёт сервис подписки.
func New(log *slog.Logger, repo Repository, metrics Recorder, opts Options) *Service {
	return &Service{
		repo:    repo,
		metrics: metrics,
		log:     log,
		opts:    opts,
	}
}

// HasAccess решает, может ли пользователь открыть защищённые страницы:
// действует пробный период или есть активный оплаченный период, не закончившийся сегодня.
// Неизвестный пользователь получает отказ, а не ошибку.
func (s *Service) HasAccess(ctx context.Context, userID int64) (bool, error) {
	const op = "billing.HasAccess"
	user, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, models.ErrUserNotFound) {
		s.metrics.AccessDenied()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	today := period.Today()
	if period.TrialActive(user, today) {
		return true, nil
	}

	current, err := s.repo.CurrentPeriod(ctx, userID, today)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if period.Covers(current, today) {
		return true, nil
	}
	s.metrics.AccessDenied()
	return false, nil
}

// Status собирает данные для страницы аккаунта.
func (s *Service) Status(ctx context.Context, userID int64) (*models.AccountStatus, error) {
	const op = "billing.Status"
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	today := period.Today()

	current, err := s.repo.CurrentPeriod(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	periods, err := s.repo.ListPeriods(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	trialActive := period.TrialActive(user, today)
	return &models.AccountStatus{
		User:          user,
		HasAccess:     trialActive || period.Covers(current, today),
		TrialActive:   trialActive,
		TrialUsed:     user.TrialUsed(),
		CurrentPeriod: current,
		Periods:       periods,
		MonthlyPrice:  s.opts.MonthlyPrice,
		Currency:      s.opts.Currency,
		TrialDays:     s.opts.TrialDays,
		BillingDays:   s.opts.BillingDays,
	}, nil
}

// StartTrial активирует пробный период один раз за жизнь аккаунта и возвращает дату окончания.
// Повторный вызов возвращает models.ErrTrialAlreadyUsed без изменения дат.
func (s *Service) StartTrial(ctx context.Context, userID int64) (time.Time, error) {
	const op = "billing.StartTrial"
	today := period.Today()
	end := period.AddDays(today, s.opts.TrialDays)

	if err := s.repo.StartTrial(ctx, userID, today, end); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.TrialStarted()
	s.log.Info("trial started",
		slog.String("op", op),
		sl.UserID(userID),
		slog.String("trial_ends_at", end.Format(time.DateOnly)),
	)
	return end, nil
}

// Cancel помечает активные периоды для отмены в конце срока.
// Доступ сохраняется до даты окончания; повторный вызов ничего не меняет.
func (s *Service) Cancel(ctx context.Context, userID int64) (int64, error) {
	const op = "billing.Cancel"
	n, err := s.repo.CancelActive(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("cancellation requested", slog.String("op", op), sl.UserID(userID), slog.Int64("rows", n))
	return n, nil
}

// Extend добавляет оплаченный период и возвращает его.
func (s *Service) Extend(ctx context.Context, userID int64) (*models.BillingPeriod, error) {
	const op = "billing.Extend"
	p, err := s.repo.ExtendPeriod(ctx, userID, period.Today(), s.opts.BillingDays)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.PeriodExtended()
	return p, nil
}

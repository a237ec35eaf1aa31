// Package services содержит планировщик напоминаний об окончании пробного и оплаченного периодов.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/school-admin/internal/lib/period"
	"github.com/magabrotheeeer/school-admin/internal/lib/sl"
	"github.com/magabrotheeeer/school-admin/internal/models"
)

const dateLayout = "2006-01-02"

// Repository выборки пользователей, которым пора напомнить об оплате.
type Repository interface {
	FindTrialsEndingOn(ctx context.Context, day time.Time) ([]*models.User, error)
	FindPeriodsEndingOn(ctx context.Context, day time.Time) ([]*models.User, error)
}

// Notifier доставляет уведомление потребителям.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// SchedulerService раз в сутки (или по заданному расписанию) рассылает напоминания.
type SchedulerService struct {
	repo     Repository
	notifier Notifier
	log      *slog.Logger
	cron     *cron.Cron
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo Repository, notifier Notifier, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:     repo,
		notifier: notifier,
		log:      log,
		cron:     cron.New(),
	}
}

// Start регистрирует задачу по cron-выражению spec и запускает планировщик.
func (s *SchedulerService) Start(ctx context.Context, spec string) error {
	const op = "services.scheduler.Start"

	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.cron.Start()
	s.log.Info("scheduler started", slog.String("op", op), slog.String("spec", spec))
	return nil
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *SchedulerService) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce выполняет один проход: пробные периоды, которые заканчиваются сегодня,
// и оплаченные периоды, которые заканчиваются завтра.
func (s *SchedulerService) RunOnce(ctx context.Context) {
	today := period.Today()
	s.notifyTrialsEnding(ctx, today)
	s.notifyPeriodsEnding(ctx, period.AddDays(today, 1))
}

func (s *SchedulerService) notifyTrialsEnding(ctx context.Context, day time.Time) {
	const op = "services.scheduler.notifyTrialsEnding"
	log := s.log.With(slog.String("op", op))

	users, err := s.repo.FindTrialsEndingOn(ctx, day)
	if err != nil {
		log.Error("failed to find trials", sl.Err(err))
		return
	}
	if len(users) == 0 {
		log.Info("no trials ending")
		return
	}
	log.Info("found trials ending", slog.Int("count", len(users)))
	s.publish(ctx, log, models.NotificationTrialEnding, day, users)
}

func (s *SchedulerService) notifyPeriodsEnding(ctx context.Context, day time.Time) {
	const op = "services.scheduler.notifyPeriodsEnding"
	log := s.log.With(slog.String("op", op))

	users, err := s.repo.FindPeriodsEndingOn(ctx, day)
	if err != nil {
		log.Error("failed to find periods", sl.Err(err))
		return
	}
	if len(users) == 0 {
		log.Info("no periods ending")
		return
	}
	log.Info("found periods ending", slog.Int("count", len(users)))
	s.publish(ctx, log, models.NotificationPeriodEnding, day, users)
}

func (s *SchedulerService) publish(ctx context.Context, log *slog.Logger, kind string, day time.Time, users []*models.User) {
	for _, u := range users {
		err := s.notifier.Notify(ctx, models.Notification{
			Kind:     kind,
			Email:    u.Email,
			Username: u.Username,
			Date:     day.Format(dateLayout),
		})
		if err != nil {
			log.Error("failed to publish message", sl.UserID(u.ID), sl.Err(err))
		}
	}
}

// Package scheduler собирает приложение рассылки напоминаний об окончании периодов.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/school-admin/internal/config"
	"github.com/magabrotheeeer/school-admin/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/school-admin/internal/lib/sl"
	"github.com/magabrotheeeer/school-admin/internal/metrics"
	"github.com/magabrotheeeer/school-admin/internal/services/notifier"
	schedulerservice "github.com/magabrotheeeer/school-admin/internal/services/scheduler"
	"github.com/magabrotheeeer/school-admin/internal/storage/repository"
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.SchedulerService
	spec             string
	db               *repository.Storage
	conn             *amqp.Connection
	ch               *amqp.Channel
	logger           *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	var err error
	for range 10 {
		if err = db.CheckDatabaseReady(ctx); err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// New создает новый экземпляр приложения планировщика.
// Без RabbitMQ напоминания пишутся в лог.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger, spec: cfg.Spec}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	a.db = db

	if err := waitForDB(ctx, db); err != nil {
		a.closeResources()
		return nil, err
	}

	var notify schedulerservice.Notifier
	if cfg.RabbitMQURL != "" {
		a.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
		}
		a.ch, err = rabbitmq.SetupChannel(a.conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
		}
		notify = notifier.NewBroker(logger, a.ch, metrics.NewMetrics(prometheus.NewRegistry()))
	} else {
		logger.Warn("rabbitmq is not configured, reminders are only logged")
		notify = notifier.NewLog(logger)
	}

	a.schedulerService = schedulerservice.NewSchedulerService(db, notify, logger)
	return a, nil
}

func (a *App) closeResources() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database", sl.Err(err))
		}
	}
}

// Run запускает планировщик и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) error {
	if err := a.schedulerService.Start(ctx, a.spec); err != nil {
		a.closeResources()
		return err
	}

	<-ctx.Done()

	a.logger.Info("shutting down scheduler service")
	a.schedulerService.Stop()
	a.closeResources()
	return nil
}

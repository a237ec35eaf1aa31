// Package notifier передаёт уведомления потребителям: в брокер сообщений
// или, если брокер не настроен, в лог.
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/school-admin/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/school-admin/internal/models"
)

// Recorder принимает события для метрик.
type Recorder interface {
	NotificationPublished(kind string, err error)
}

// Broker публикует уведомления в обменник notifications с ключом, равным виду уведомления.
type Broker struct {
	ch      rabbitmq.Channel
	metrics Recorder
	log     *slog.Logger
}

// NewBroker создаёт публикатор поверх открытого канала.
func NewBroker(log *slog.Logger, ch rabbitmq.Channel, metrics Recorder) *Broker {
	return &Broker{
		ch:      ch,
		metrics: metrics,
		log:     log,
	}
}

// Notify публикует уведомление.
func (b *Broker) Notify(ctx context.Context, n models.Notification) error {
	const op = "notifier.Notify"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err := rabbitmq.PublishMessage(b.ch, rabbitmq.ExchangeNotifications, n.Kind, n)
	b.metrics.NotificationPublished(n.Kind, err)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	b.log.Debug("notification published", slog.String("op", op), slog.String("kind", n.Kind))
	return nil
}

// Log пишет уведомления в лог. Используется локально, когда брокер не поднят.
type Log struct {
	log *slog.Logger
}

// NewLog создаёт уведомитель для dev-режима.
func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

// Notify пишет уведомление в лог.
func (l *Log) Notify(_ context.Context, n models.Notification) error {
	l.log.Info("notification",
		slog.String("kind", n.Kind),
		slog.String("email", n.Email),
		slog.String("url", n.URL),
		slog.String("date", n.Date),
	)
	return nil
}

package rabbitmq

import "github.com/magabrotheeeer/school-admin/internal/models"

// Ключи маршрутизации уведомлений.
const (
	RoutingPasswordReset = models.NotificationPasswordReset
	RoutingTrialEnding   = models.NotificationTrialEnding
	RoutingPeriodEnding  = models.NotificationPeriodEnding
)

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди, которые читают отправители писем.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.password_reset", RoutingKey: RoutingPasswordReset},
		{QueueName: "notification.trial_ending", RoutingKey: RoutingTrialEnding},
		{QueueName: "notification.period_ending", RoutingKey: RoutingPeriodEnding},
	}
}

package models

// WebhookEvent нормализованное уведомление платёжного шлюза.
// Поля уже извлечены либо с верхнего уровня, либо из вложенного объекта data.
type WebhookEvent struct {
	ID     string // Идентификатор события или чекаута, если шлюз его передал
	Entity string
	Status string
	UserID string // metadata.user_id в исходном виде
}

// Paid сообщает, что событие подтверждает успешную оплату чекаута.
func (e *WebhookEvent) Paid() bool {
	if e.Entity != "checkout" {
		return false
	}
	switch e.Status {
	case "paid", "succeeded", "success":
		return true
	}
	return false
}

// Виды уведомлений, совпадают с ключами маршрутизации брокера.
const (
	NotificationPasswordReset = "password_reset"
	NotificationTrialEnding   = "trial_ending"
	NotificationPeriodEnding  = "period_ending"
)

// Notification сообщение для брокера, которое потребители превращают в письмо.
type Notification struct {
	Kind     string `json:"kind"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	URL      string `json:"url,omitempty"`
	Date     string `json:"date,omitempty"`
}

package models

import "time"

// Статусы периода оплаты.
const (
	PeriodStatusActive   = "active"
	PeriodStatusCanceled = "canceled"
)

// BillingPeriod строка журнала оплаченных периодов.
// PeriodStart и PeriodEnd календарные даты (полночь UTC), обе границы включительно.
type BillingPeriod struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	Status            string    `json:"status"`
	PeriodStart       time.Time `json:"current_period_start"`
	PeriodEnd         time.Time `json:"current_period_end"`
	CancelAtPeriodEnd bool      `json:"cancel_at_period_end"`
	CreatedAt         time.Time `json:"created_at"`
}

// AccountStatus описывает состояние доступа пользователя для страницы аккаунта.
type AccountStatus struct {
	User          *User            `json:"user"`
	HasAccess     bool             `json:"has_access"`
	TrialActive   bool             `json:"trial_active"`
	TrialUsed     bool             `json:"trial_used"`
	CurrentPeriod *BillingPeriod   `json:"current_period,omitempty"`
	Periods       []*BillingPeriod `json:"periods"`
	MonthlyPrice  int              `json:"monthly_price"`
	Currency      string           `json:"currency"`
	TrialDays     int              `json:"trial_days"`
	BillingDays   int              `json:"billing_days"`
}

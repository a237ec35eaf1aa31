// Package models содержит доменные структуры учётных записей, периодов оплаты
// и восстановления пароля. Структуры используются в бизнес‑логике и при
// работе с хранилищем.
package models

import "time"

// Роли пользователей.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID             int64      `json:"id"`               // Идентификатор пользователя
	Email          string     `json:"email"`            // Электронная почта (уникальная)
	Username       string     `json:"username"`         // Отображаемое имя, может быть пустым
	PasswordHash   string     `json:"-"`                // bcrypt‑хэш пароля
	Role           string     `json:"role"`             // admin или teacher
	TrialStartedAt *time.Time `json:"trial_started_at"` // Дата начала пробного периода
	TrialEndsAt    *time.Time `json:"trial_ends_at"`    // Последний день пробного периода
	CreatedAt      time.Time  `json:"created_at"`
}

// TrialUsed сообщает, активировал ли пользователь пробный период хотя бы раз.
func (u *User) TrialUsed() bool {
	return u.TrialStartedAt != nil
}

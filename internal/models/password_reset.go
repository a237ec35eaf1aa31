package models

import "time"

// PasswordReset одноразовый запрос на восстановление пароля.
type PasswordReset struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Expired сообщает, истёк ли срок действия ссылки на момент now.
func (r *PasswordReset) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/school-admin/internal/models"
)

// CreateReset сохраняет токен восстановления пароля.
func (s *Storage) CreateReset(ctx context.Context, userID int64, token string, expiresAt time.Time) (int64, error) {
	const op = "storage.CreateReset"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO password_resets (user_id, token, expires_at)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	var id int64
	if err := s.DB.QueryRowContext(ctx, query, userID, token, expiresAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetReset возвращает неиспользованный запрос по токену.
// Неизвестный или уже использованный токен даёт models.ErrResetTokenInvalid.
func (s *Storage) GetReset(ctx context.Context, token string) (*models.PasswordReset, error) {
	const op = "storage.GetReset"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, token, expires_at, used, created_at
			  FROM password_resets
			  WHERE token = $1 AND used = FALSE`
	r := &models.PasswordReset{}
	err := s.DB.QueryRowContext(ctx, query, token).Scan(&r.ID, &r.UserID, &r.Token, &r.ExpiresAt, &r.Used, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrResetTokenInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

// ConsumeReset помечает запрос использованным и меняет пароль в одной транзакции.
// Если токен успели использовать параллельно, возвращается models.ErrResetTokenInvalid.
func (s *Storage) ConsumeReset(ctx context.Context, reset *models.PasswordReset, passwordHash string) error {
	const op = "storage.ConsumeReset"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `UPDATE password_resets SET used = TRUE WHERE id = $1 AND used = FALSE`, reset.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrResetTokenInvalid)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, reset.UserID, passwordHash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

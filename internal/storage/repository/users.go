package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/magabrotheeeer/school-admin/internal/lib/period"
	"github.com/magabrotheeeer/school-admin/internal/models"
)

const userColumns = `id, email, COALESCE(username, ''), password_hash, role,
	trial_started_at, trial_ends_at, created_at`

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	var trialStartedAt, trialEndsAt sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role,
		&trialStartedAt, &trialEndsAt, &u.CreatedAt); err != nil {
		return nil, err
	}
	if trialStartedAt.Valid {
		d := period.Date(trialStartedAt.Time)
		u.TrialStartedAt = &d
	}
	if trialEndsAt.Valid {
		d := period.Date(trialEndsAt.Time)
		u.TrialEndsAt = &d
	}
	return u, nil
}

// CreateUser сохраняет нового пользователя и возвращает его ID.
// Повторный email возвращает models.ErrEmailTaken.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (int64, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (username, email, password_hash, role)
			  VALUES (NULLIF($1, ''), $2, $3, $4)
			  RETURNING id`
	var id int64
	err := s.DB.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.Role).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, fmt.Errorf("%s: %w", op, models.ErrEmailTaken)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetUser возвращает пользователя по ID.
func (s *Storage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// StartTrial записывает даты пробного периода, если он ещё не использовался.
// Условие в WHERE не даёт двум параллельным запросам активировать пробный период дважды.
func (s *Storage) StartTrial(ctx context.Context, userID int64, start, end time.Time) error {
	const op = "storage.StartTrial"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET trial_started_at = $2, trial_ends_at = $3
			  WHERE id = $1 AND trial_started_at IS NULL`
	result, err := s.DB.ExecContext(ctx, query, userID, period.Date(start), period.Date(end))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 1 {
		return nil
	}

	var exists bool
	err = s.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	return fmt.Errorf("%s: %w", op, models.ErrTrialAlreadyUsed)
}

// UpdatePassword заменяет хэш пароля пользователя.
func (s *Storage) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	const op = "storage.UpdatePassword"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := s.DB.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	return nil
}

// FindTrialsEndingOn находит пользователей, у которых пробный период заканчивается в день day.
// Пользователи, уже оплатившие период после day, не попадают в выборку.
func (s *Storage) FindTrialsEndingOn(ctx context.Context, day time.Time) ([]*models.User, error) {
	const op = "storage.FindTrialsEndingOn"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users
			  WHERE trial_ends_at = $1
			    AND NOT EXISTS (
			        SELECT 1 FROM subscriptions s
			        WHERE s.user_id = users.id AND s.status = 'active' AND s.current_period_end > $1
			    )
			  ORDER BY id`
	return s.queryUsers(ctx, op, query, period.Date(day))
}

// FindPeriodsEndingOn находит пользователей с активным периодом, который заканчивается в день day.
// Если следующий период уже оплачен (цепочка продолжается после day), напоминание не нужно.
func (s *Storage) FindPeriodsEndingOn(ctx context.Context, day time.Time) ([]*models.User, error) {
	const op = "storage.FindPeriodsEndingOn"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users
			  WHERE id IN (
			      SELECT s.user_id FROM subscriptions s
			      WHERE s.status = 'active' AND s.current_period_end = $1
			        AND NOT EXISTS (
			            SELECT 1 FROM subscriptions later
			            WHERE later.user_id = s.user_id AND later.status = 'active' AND later.current_period_end > $1
			        )
			  )
			  ORDER BY id`
	return s.queryUsers(ctx, op, query, period.Date(day))
}

func (s *Storage) queryUsers(ctx context.Context, op, query string, args ...any) ([]*models.User, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

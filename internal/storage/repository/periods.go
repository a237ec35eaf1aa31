package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/school-admin/internal/lib/period"
	"github.com/magabrotheeeer/school-admin/internal/models"
)

const periodColumns = `id, user_id, status, current_period_start, current_period_end,
	cancel_at_period_end, created_at`

func scanPeriod(row scanner) (*models.BillingPeriod, error) {
	p := &models.BillingPeriod{}
	if err := row.Scan(&p.ID, &p.UserID, &p.Status, &p.PeriodStart, &p.PeriodEnd,
		&p.CancelAtPeriodEnd, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.PeriodStart = period.Date(p.PeriodStart)
	p.PeriodEnd = period.Date(p.PeriodEnd)
	return p, nil
}

// CurrentPeriod возвращает активный период с самой поздней датой окончания,
// не закончившийся к дню today. Если такого нет, возвращает nil без ошибки.
func (s *Storage) CurrentPeriod(ctx context.Context, userID int64, today time.Time) (*models.BillingPeriod, error) {
	const op = "storage.CurrentPeriod"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + periodColumns + ` FROM subscriptions
			  WHERE user_id = $1 AND status = 'active' AND current_period_end >= $2
			  ORDER BY current_period_end DESC
			  LIMIT 1`
	p, err := scanPeriod(s.DB.QueryRowContext(ctx, query, userID, period.Date(today)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPeriods возвращает весь журнал периодов пользователя, новые первыми.
func (s *Storage) ListPeriods(ctx context.Context, userID int64) ([]*models.BillingPeriod, error) {
	const op = "storage.ListPeriods"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + periodColumns + ` FROM subscriptions
			  WHERE user_id = $1
			  ORDER BY current_period_end DESC, id DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []*models.BillingPeriod{}
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ExtendPeriod добавляет в журнал новый активный период длиной cycleDays дней.
//
// Чтение последнего периода, расчёт границ и вставка выполняются в одной
// транзакции под блокировкой строки пользователя, поэтому два одновременных
// продления одного пользователя выстраиваются друг за другом и не пересекаются.
func (s *Storage) ExtendPeriod(ctx context.Context, userID int64, today time.Time, cycleDays int) (*models.BillingPeriod, error) {
	const op = "storage.ExtendPeriod"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var lockedID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&lockedID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lastQuery := `SELECT ` + periodColumns + ` FROM subscriptions
			  WHERE user_id = $1 AND status = 'active'
			  ORDER BY current_period_end DESC
			  LIMIT 1`
	last, err := scanPeriod(tx.QueryRowContext(ctx, lastQuery, userID))
	if errors.Is(err, sql.ErrNoRows) {
		last = nil
	} else if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	start, end := period.Next(last, today, cycleDays)
	p := &models.BillingPeriod{
		UserID:      userID,
		Status:      models.PeriodStatusActive,
		PeriodStart: start,
		PeriodEnd:   end,
	}
	insertQuery := `INSERT INTO subscriptions (user_id, status, current_period_start, current_period_end)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id, created_at`
	if err = tx.QueryRowContext(ctx, insertQuery, userID, p.Status, start, end).Scan(&p.ID, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// CancelActive ставит флаг отмены в конце периода на активные строки без флага.
// Возвращает число изменённых строк; повторный вызов вернёт 0.
func (s *Storage) CancelActive(ctx context.Context, userID int64) (int64, error) {
	const op = "storage.CancelActive"
	return s.setCancelFlag(ctx, op, userID, true)
}

// ClearCancellation снимает флаг отмены с активных периодов после успешной оплаты.
func (s *Storage) ClearCancellation(ctx context.Context, userID int64) (int64, error) {
	const op = "storage.ClearCancellation"
	return s.setCancelFlag(ctx, op, userID, false)
}

func (s *Storage) setCancelFlag(ctx context.Context, op string, userID int64, value bool) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET cancel_at_period_end = $2
			  WHERE user_id = $1 AND status = 'active' AND cancel_at_period_end = $3`
	result, err := s.DB.ExecContext(ctx, query, userID, value, !value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

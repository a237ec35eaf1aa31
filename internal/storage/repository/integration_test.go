package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/school-admin/internal/migrations"
	"github.com/magabrotheeeer/school-admin/internal/models"
)

func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))
	require.NoError(t, storage.CheckDatabaseReady(ctx))

	return storage
}

func createTeacher(t *testing.T, s *Storage, email string) int64 {
	t.Helper()
	id, err := s.CreateUser(context.Background(), models.User{
		Email:        email,
		PasswordHash: "hash",
		Role:         models.RoleTeacher,
	})
	require.NoError(t, err)
	return id
}

func TestIntegration_UsersAndTrial(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	id := createTeacher(t, s, "t@school.dz")

	_, err := s.CreateUser(ctx, models.User{Email: "t@school.dz", PasswordHash: "x", Role: models.RoleTeacher})
	assert.ErrorIs(t, err, models.ErrEmailTaken)

	u, err := s.GetUserByEmail(ctx, "t@school.dz")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Empty(t, u.Username)
	assert.False(t, u.TrialUsed())

	require.NoError(t, s.StartTrial(ctx, id, date(2024, 6, 1), date(2024, 6, 8)))
	assert.ErrorIs(t, s.StartTrial(ctx, id, date(2024, 7, 1), date(2024, 7, 8)), models.ErrTrialAlreadyUsed)
	assert.ErrorIs(t, s.StartTrial(ctx, id+100, date(2024, 7, 1), date(2024, 7, 8)), models.ErrUserNotFound)

	u, err = s.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 6, 8), *u.TrialEndsAt)

	ending, err := s.FindTrialsEndingOn(ctx, date(2024, 6, 8))
	require.NoError(t, err)
	require.Len(t, ending, 1)
	assert.Equal(t, id, ending[0].ID)
}

func TestIntegration_ExtendAndCancel(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()
	id := createTeacher(t, s, "p@school.dz")

	first, err := s.ExtendPeriod(ctx, id, date(2024, 6, 11), 30)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 6, 11), first.PeriodStart)
	assert.Equal(t, date(2024, 7, 10), first.PeriodEnd)

	second, err := s.ExtendPeriod(ctx, id, date(2024, 6, 20), 30)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 7, 11), second.PeriodStart)
	assert.Equal(t, date(2024, 8, 9), second.PeriodEnd)

	current, err := s.CurrentPeriod(ctx, id, date(2024, 6, 20))
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)

	n, err := s.CancelActive(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = s.CancelActive(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = s.ClearCancellation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	periods, err := s.ListPeriods(ctx, id)
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, second.ID, periods[0].ID)

	users, err := s.FindPeriodsEndingOn(ctx, date(2024, 8, 9))
	require.NoError(t, err)
	require.Len(t, users, 1)

	_, err = s.ExtendPeriod(ctx, id+100, date(2024, 6, 20), 30)
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestIntegration_RemindersSkipRenewedUsers(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	renewed := createTeacher(t, s, "renewed@school.dz")
	_, err := s.ExtendPeriod(ctx, renewed, date(2024, 5, 12), 30)
	require.NoError(t, err)
	// досрочная оплата продолжает цепочку с 2024-06-11
	_, err = s.ExtendPeriod(ctx, renewed, date(2024, 6, 1), 30)
	require.NoError(t, err)

	lapsing := createTeacher(t, s, "lapsing@school.dz")
	_, err = s.ExtendPeriod(ctx, lapsing, date(2024, 5, 12), 30)
	require.NoError(t, err)

	users, err := s.FindPeriodsEndingOn(ctx, date(2024, 6, 10))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, lapsing, users[0].ID)

	users, err = s.FindPeriodsEndingOn(ctx, date(2024, 7, 10))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, renewed, users[0].ID)

	paidTrial := createTeacher(t, s, "paid-trial@school.dz")
	require.NoError(t, s.StartTrial(ctx, paidTrial, date(2024, 6, 1), date(2024, 6, 8)))
	_, err = s.ExtendPeriod(ctx, paidTrial, date(2024, 6, 5), 30)
	require.NoError(t, err)

	trialOnly := createTeacher(t, s, "trial-only@school.dz")
	require.NoError(t, s.StartTrial(ctx, trialOnly, date(2024, 6, 1), date(2024, 6, 8)))

	users, err = s.FindTrialsEndingOn(ctx, date(2024, 6, 8))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, trialOnly, users[0].ID)
}

func TestIntegration_ConcurrentExtendDoesNotOverlap(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()
	id := createTeacher(t, s, "c@school.dz")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ExtendPeriod(ctx, id, date(2024, 6, 1), 30)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	periods, err := s.ListPeriods(ctx, id)
	require.NoError(t, err)
	require.Len(t, periods, workers)

	// журнал отсортирован по убыванию даты окончания
	for i := 0; i < len(periods)-1; i++ {
		newer, older := periods[i], periods[i+1]
		assert.Equal(t, older.PeriodEnd.AddDate(0, 0, 1), newer.PeriodStart)
	}
	assert.Equal(t, date(2024, 6, 1), periods[workers-1].PeriodStart)
}

func TestIntegration_PasswordReset(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()
	id := createTeacher(t, s, "r@school.dz")

	_, err := s.CreateReset(ctx, id, "token-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	reset, err := s.GetReset(ctx, "token-1")
	require.NoError(t, err)
	require.NoError(t, s.ConsumeReset(ctx, reset, "newhash"))

	_, err = s.GetReset(ctx, "token-1")
	assert.ErrorIs(t, err, models.ErrResetTokenInvalid)
	assert.ErrorIs(t, s.ConsumeReset(ctx, reset, "other"), models.ErrResetTokenInvalid)

	var hash string
	err = s.DB.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id = $1`, id).Scan(&hash)
	require.NoError(t, err)
	assert.Equal(t, "newhash", hash)
}

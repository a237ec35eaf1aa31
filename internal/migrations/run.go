// Package migrations применяет SQL-миграции из каталога migrations.
package migrations

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ErrDirty возвращается, если миграция упала на середине и схема помечена как dirty.
var ErrDirty = errors.New("schema is dirty")

// newMigrator не закрывается вызывающим: Close закрыл бы общий *sql.DB.
func newMigrator(db *sql.DB, path string) (*migrate.Migrate, error) {
	driver, err := pgxv5.WithInstance(db, &pgxv5.Config{})
	if err != nil {
		return nil, err
	}
	return migrate.NewWithDatabaseInstance("file://"+path, "pgx_v5", driver)
}

// Run накатывает все миграции из path. Отсутствие изменений ошибкой не считается.
// Если после сбоя схема осталась dirty, в ошибке указывается номер версии.
func Run(db *sql.DB, path string) error {
	const op = "migrations.Run"

	m, err := newMigrator(db, path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = m.Up()
	if err == nil || errors.Is(err, migrate.ErrNoChange) {
		return nil
	}

	if version, dirty, verr := m.Version(); verr == nil && dirty {
		return fmt.Errorf("%s: version %d: %w: %w", op, version, ErrDirty, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

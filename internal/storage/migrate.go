package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"ledger/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the schema at dsn up to date, then fills derived columns
// that SQL alone cannot compute on db.
func Migrate(ctx context.Context, dsn string, db *sql.DB) error {
	version, err := runMigrations(dsn)
	if err != nil {
		return err
	}

	n, err := backfillCategorySearch(ctx, db)
	if err != nil {
		return fmt.Errorf("backfill category search: %w", err)
	}

	slog.InfoContext(ctx, "Database schema ready",
		log.FieldComponent, log.ComponentStorage,
		"schema_version", version,
		"backfilled_rows", n)
	return nil
}

// runMigrations uses its own connection so closing the migrator does not
// touch the caller's pool.
func runMigrations(dsn string) (uint, error) {
	migrateDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return 0, fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

// categorySearchKey is the form category filters match against. SQLite's
// LOWER only folds ASCII, so the key is computed here.
func categorySearchKey(category string) string {
	return strings.ToLower(category)
}

// backfillCategorySearch indexes rows written before category_search existed.
func backfillCategorySearch(ctx context.Context, db *sql.DB) (int, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, category FROM transactions WHERE category_search = ''`)
	if err != nil {
		return 0, err
	}
	pending := map[string]string{}
	for rows.Next() {
		var id, category string
		if err := rows.Scan(&id, &category); err != nil {
			rows.Close()
			return 0, err
		}
		pending[id] = category
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE transactions SET category_search = ? WHERE id = ?`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for id, category := range pending {
		if _, err := stmt.ExecContext(ctx, categorySearchKey(category), id); err != nil {
			return 0, fmt.Errorf("index %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(pending), nil
}

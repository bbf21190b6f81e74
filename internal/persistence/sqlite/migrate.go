package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements is the ordered, append-only list of migrations. Each entry
// runs at most once; the applied count is tracked in schema_migrations.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS locations (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS location_hours (
		location_id TEXT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
		weekday     INTEGER NOT NULL CHECK (weekday BETWEEN 0 AND 6),
		start_clock INTEGER NOT NULL,
		end_clock   INTEGER NOT NULL CHECK (start_clock < end_clock),
		PRIMARY KEY (location_id, weekday)
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id                TEXT PRIMARY KEY,
		location_id       TEXT NOT NULL REFERENCES locations(id),
		name              TEXT NOT NULL,
		min_capacity      INTEGER NOT NULL DEFAULT 0,
		max_capacity      INTEGER NOT NULL,
		approval_required INTEGER NOT NULL DEFAULT 0,
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id         TEXT PRIMARY KEY,
		room_id    TEXT NOT NULL REFERENCES rooms(id),
		user_id    TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time   TEXT NOT NULL,
		status     TEXT NOT NULL CHECK (status IN ('requested', 'approved', 'denied', 'canceled')),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (start_time < end_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_room_window
		ON reservations (room_id, start_time, end_time)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_user
		ON reservations (user_id, status)`,
	`CREATE TABLE IF NOT EXISTS recurrence_rules (
		id         TEXT PRIMARY KEY,
		series_id  TEXT NOT NULL,
		frequency  INTEGER NOT NULL,
		weekdays   INTEGER NOT NULL DEFAULT 0,
		starts_on  TEXT NOT NULL,
		ends_on    TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recurrence_rules_series
		ON recurrence_rules (series_id)`,
}

// Migrate applies outstanding schema statements in order, recording progress
// so re-running is a no-op.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	if _, err := pool.DB().ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var applied int
	if err := pool.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}

	for version := applied; version < len(schemaStatements); version++ {
		statement := schemaStatements[version]
		err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(statement); err != nil {
				return fmt.Errorf("migration %d failed: %w", version+1, err)
			}
			if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version+1); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", version+1, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

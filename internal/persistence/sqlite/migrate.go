package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one versioned schema step. Statements run inside a single
// transaction together with the version bookkeeping row.
type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS subjects (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				name TEXT NOT NULL,
				color TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE (user_id, name)
			)`,
			`CREATE TABLE IF NOT EXISTS schedule_rules (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				subject_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
				weekdays TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS class_occurrences (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				subject_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
				rule_id TEXT REFERENCES schedule_rules(id) ON DELETE SET NULL,
				date TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending'
					CHECK (status IN ('pending', 'attended', 'missed', 'cancelled')),
				marked_at TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE (user_id, subject_id, date, start_time)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_rules_user ON schedule_rules(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_occurrences_user_date ON class_occurrences(user_id, date)`,
			`CREATE INDEX IF NOT EXISTS idx_occurrences_rule_status ON class_occurrences(rule_id, status, date)`,
		},
	},
}

// Migrate applies all pending schema migrations. Applied versions are
// recorded in schema_migrations and skipped on subsequent runs, so Migrate
// is safe to call on every startup.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	if _, err := pool.DB().ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := migrationApplied(ctx, pool, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d: %w", m.version, err)
				}
			}
			if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
				return fmt.Errorf("migration %d: record version: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func migrationApplied(ctx context.Context, pool *ConnectionPool, version int) (bool, error) {
	var count int
	err := pool.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return count > 0, nil
}

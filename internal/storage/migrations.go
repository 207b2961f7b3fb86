package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Recurrence rules",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS recurrence_rules (
					id TEXT PRIMARY KEY,
					owner_id TEXT NOT NULL,
					amount TEXT NOT NULL,
					description TEXT NOT NULL,
					category TEXT NOT NULL DEFAULT '',
					kind TEXT NOT NULL CHECK (kind IN ('income', 'expense')),
					is_active BOOLEAN NOT NULL DEFAULT 1,
					interval_unit TEXT NOT NULL CHECK (interval_unit IN ('day', 'week', 'month', 'year')),
					interval_value INTEGER NOT NULL CHECK (interval_value >= 1),
					next_occurrence TEXT NOT NULL,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_recurrence_rules_due ON recurrence_rules(owner_id, is_active, next_occurrence)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Ledger transactions",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS ledger_transactions (
					id TEXT PRIMARY KEY,
					owner_id TEXT NOT NULL,
					rule_id TEXT,
					amount TEXT NOT NULL,
					description TEXT NOT NULL,
					category TEXT NOT NULL DEFAULT '',
					kind TEXT NOT NULL CHECK (kind IN ('income', 'expense')),
					date TEXT NOT NULL,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_ledger_transactions_owner_date ON ledger_transactions(owner_id, date)`,
			})
		},
	},
	{
		Version:     3,
		Description: "One transaction per rule occurrence",
		Up: func(tx *sql.Tx) error {
			// NULL rule_id values never collide, so manual entries are unaffected.
			return execAll(tx, []string{
				`CREATE UNIQUE INDEX idx_ledger_transactions_occurrence ON ledger_transactions(rule_id, date)`,
			})
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

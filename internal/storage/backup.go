package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrBackupExists is returned when the backup destination is already present.
var ErrBackupExists = errors.New("backup already exists")

// Backup writes a consistent copy of the database to destPath using VACUUM INTO.
func (s *SQLiteStorage) Backup(ctx context.Context, destPath string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(destPath, "destPath"); err != nil {
		return err
	}
	if strings.Contains(destPath, "'") {
		return fmt.Errorf("invalid backup path %q: cannot contain quotes", destPath)
	}
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("%w: %s", ErrBackupExists, destPath)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return fmt.Errorf("failed to back up database: %w", err)
	}

	slog.Info("Backed up database", "path", destPath)
	return nil
}

// AutoBackup writes a timestamped backup next to the database file, in a
// "backups" directory, and returns its path.
func (s *SQLiteStorage) AutoBackup(ctx context.Context, prefix string) (string, error) {
	if s.dbPath == ":memory:" {
		return "", fmt.Errorf("cannot back up an in-memory database")
	}
	name := fmt.Sprintf("%s-%s.db", prefix, time.Now().Format("20060102-150405.000"))
	path := filepath.Join(filepath.Dir(s.dbPath), "backups", name)
	if err := s.Backup(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

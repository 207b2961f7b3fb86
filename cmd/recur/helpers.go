package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/the-spice-must-recur/internal/clock"
	"github.com/Veraticus/the-spice-must-recur/internal/common"
	"github.com/Veraticus/the-spice-must-recur/internal/config"
	"github.com/Veraticus/the-spice-must-recur/internal/engine"
	"github.com/Veraticus/the-spice-must-recur/internal/model"
	"github.com/Veraticus/the-spice-must-recur/internal/schedule"
	"github.com/Veraticus/the-spice-must-recur/internal/service"
	"github.com/Veraticus/the-spice-must-recur/internal/storage"
)

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := config.DatabasePath(viper.GetViper())

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func closeStorage(store *storage.SQLiteStorage) {
	if closeErr := store.Close(); closeErr != nil {
		slog.Error("failed to close storage", "error", closeErr)
	}
}

// currentOwner returns the configured owner or a user-facing error.
func currentOwner(ctx context.Context) (string, error) {
	ownerID, ok := config.LoadSession(viper.GetViper()).CurrentOwnerID(ctx)
	if !ok {
		return "", common.NewUserError("no owner configured; pass --owner or set owner.id (RECUR_OWNER_ID)", common.ErrNoOwner)
	}
	return ownerID, nil
}

// loadOwnedRule fetches a rule and hides rules that belong to another owner.
func loadOwnedRule(ctx context.Context, store service.Storage, ownerID, id string) (*model.RecurrenceRule, error) {
	rule, err := store.GetRule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	if rule.OwnerID != ownerID {
		return nil, fmt.Errorf("failed to get rule: rule %s: %w", id, common.ErrNotFound)
	}
	return rule, nil
}

// buildEngine wires an engine from configuration. A non-empty today pins
// the engine's clock to that date.
func buildEngine(store *storage.SQLiteStorage, cfg engine.Config, today string) (*engine.RecurrenceEngine, error) {
	var c service.Clock
	if today != "" {
		date, err := parseDateFlag("today", today)
		if err != nil {
			return nil, err
		}
		c = clock.NewFixed(date)
	} else {
		system, err := config.LoadClock(viper.GetViper())
		if err != nil {
			return nil, err
		}
		c = system
	}
	return engine.NewWithConfig(store, store, c, cfg), nil
}

// todayFromConfig returns the current date in the configured time zone.
func todayFromConfig() (time.Time, error) {
	c, err := config.LoadClock(viper.GetViper())
	if err != nil {
		return time.Time{}, err
	}
	return c.Today(), nil
}

func parseDateFlag(name, value string) (time.Time, error) {
	date, err := schedule.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, common.NewUserError(fmt.Sprintf("--%s must be a date like 2024-01-31", name), err)
	}
	return date, nil
}

func printf(out io.Writer, format string, args ...any) {
	if _, err := fmt.Fprintf(out, format, args...); err != nil {
		slog.Warn("Failed to write output", "error", err)
	}
}

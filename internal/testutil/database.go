// Package testutil provides test fixtures for the recur project: a migrated
// in-memory database and a fluent builder for recurrence rules.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/the-spice-must-recur/internal/model"
	"github.com/Veraticus/the-spice-must-recur/internal/service"
	"github.com/Veraticus/the-spice-must-recur/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database seeded with rules.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		testutil.NewRule("owner-1").Monthly().Amount("-50").Next(2024, 1, 15).Build(),
//	)
func SetupTestDB(t *testing.T, rules ...model.RecurrenceRule) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	db := &TestDB{Storage: store, t: t}
	for _, rule := range rules {
		db.MustInsertRule(rule)
	}
	return db
}

// MustInsertRule stores rule and returns the stored copy, failing the test on error.
func (db *TestDB) MustInsertRule(rule model.RecurrenceRule) *model.RecurrenceRule {
	db.t.Helper()
	stored, err := db.Storage.InsertRule(context.Background(), &rule)
	if err != nil {
		db.t.Fatalf("failed to seed rule %q: %v", rule.Description, err)
	}
	return stored
}

// MustGetRule returns the rule with the given ID or fails the test.
func (db *TestDB) MustGetRule(id string) *model.RecurrenceRule {
	db.t.Helper()
	rule, err := db.Storage.GetRule(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to get rule %s: %v", id, err)
	}
	return rule
}

// Transactions returns every ledger transaction of ownerID, oldest first.
func (db *TestDB) Transactions(ownerID string) []model.Transaction {
	db.t.Helper()
	txns, err := db.Storage.ListTransactions(context.Background(), service.TransactionFilter{OwnerID: ownerID})
	if err != nil {
		db.t.Fatalf("failed to list transactions: %v", err)
	}
	return txns
}

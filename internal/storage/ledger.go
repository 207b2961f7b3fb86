package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/the-spice-must-recur/internal/common"
	"github.com/Veraticus/the-spice-must-recur/internal/model"
	"github.com/Veraticus/the-spice-must-recur/internal/schedule"
	"github.com/Veraticus/the-spice-must-recur/internal/service"
)

// InsertTransaction records a ledger transaction and returns the stored copy.
// A second transaction for the same rule and date fails with
// service.ErrDuplicateOccurrence.
func (s *SQLiteStorage) InsertTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateTransaction(txn); err != nil {
		return nil, err
	}
	return insertTransaction(ctx, s.db, txn)
}

// MaterializeOccurrence inserts txn and advances its rule to next in a single
// database transaction. Either both writes land or neither does.
func (s *SQLiteStorage) MaterializeOccurrence(ctx context.Context, txn *model.Transaction, ruleID string, next time.Time) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateTransaction(txn); err != nil {
		return nil, err
	}
	if err := validateString(ruleID, "ruleID"); err != nil {
		return nil, err
	}
	if err := validateDate(next, "next"); err != nil {
		return nil, err
	}

	var stored *model.Transaction
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if stored, err = insertTransaction(ctx, tx, txn); err != nil {
			return err
		}
		return advanceRule(ctx, tx, ruleID, next)
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func insertTransaction(ctx context.Context, q queryable, txn *model.Transaction) (*model.Transaction, error) {
	stored := *txn
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.Date = schedule.DateOf(stored.Date)
	stored.CreatedAt = time.Now().UTC()

	var ruleID sql.NullString
	if stored.RuleID != "" {
		ruleID = sql.NullString{String: stored.RuleID, Valid: true}
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO ledger_transactions (
			id, owner_id, rule_id, amount, description, category, kind, date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.OwnerID, ruleID, stored.Amount, stored.Description,
		stored.Category, string(stored.Kind), schedule.FormatDate(stored.Date), stored.CreatedAt,
	)
	if err != nil {
		switch {
		case isConstraint(err, sqliteConstraintUnique):
			return nil, fmt.Errorf("rule %s on %s: %w", stored.RuleID, schedule.FormatDate(stored.Date), service.ErrDuplicateOccurrence)
		case isConstraint(err, sqliteConstraintPrimaryKey):
			return nil, fmt.Errorf("%w: transaction %s", common.ErrDuplicateEntry, stored.ID)
		}
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	return &stored, nil
}

// ListTransactions returns ledger transactions matching the filter, oldest first.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, *filter.EndDate, *filter.StartDate)
	}

	query := `
		SELECT id, owner_id, rule_id, amount, description, category, kind, date, created_at
		FROM ledger_transactions
		WHERE 1 = 1`
	var args []any
	if filter.OwnerID != "" {
		query += " AND owner_id = ?"
		args = append(args, filter.OwnerID)
	}
	if filter.RuleID != "" {
		query += " AND rule_id = ?"
		args = append(args, filter.RuleID)
	}
	if filter.StartDate != nil {
		query += " AND date >= ?"
		args = append(args, schedule.FormatDate(schedule.DateOf(*filter.StartDate)))
	}
	if filter.EndDate != nil {
		query += " AND date <= ?"
		args = append(args, schedule.FormatDate(schedule.DateOf(*filter.EndDate)))
	}
	query += " ORDER BY date ASC, created_at ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var (
			txn    model.Transaction
			ruleID sql.NullString
			kind   string
			date   string
		)
		if err := rows.Scan(
			&txn.ID, &txn.OwnerID, &ruleID, &txn.Amount, &txn.Description,
			&txn.Category, &kind, &date, &txn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.RuleID = ruleID.String
		txn.Kind = model.Kind(kind)
		if txn.Date, err = schedule.ParseDate(date); err != nil {
			return nil, fmt.Errorf("%w: transaction %s: %v", common.ErrDatabaseCorrupted, txn.ID, err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

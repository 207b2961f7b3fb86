package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/the-spice-must-recur/internal/common"
	"github.com/Veraticus/the-spice-must-recur/internal/model"
	"github.com/Veraticus/the-spice-must-recur/internal/schedule"
	"github.com/Veraticus/the-spice-must-recur/internal/service"
)

const ruleColumns = `id, owner_id, amount, description, category, kind, is_active,
	interval_unit, interval_value, next_occurrence, created_at, updated_at`

// InsertRule stores a new rule, assigning its ID, and returns the stored copy.
func (s *SQLiteStorage) InsertRule(ctx context.Context, rule *model.RecurrenceRule) (*model.RecurrenceRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}

	stored := *rule
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.NextOccurrence = schedule.DateOf(stored.NextOccurrence)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurrence_rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.OwnerID, stored.Amount, stored.Description, stored.Category,
		string(stored.Kind), stored.Active, string(stored.IntervalUnit), stored.IntervalValue,
		schedule.FormatDate(stored.NextOccurrence), stored.CreatedAt, stored.UpdatedAt,
	)
	if err != nil {
		if isConstraint(err, sqliteConstraintPrimaryKey) {
			return nil, fmt.Errorf("%w: rule %s", common.ErrDuplicateEntry, stored.ID)
		}
		return nil, fmt.Errorf("failed to insert rule: %w", err)
	}

	return &stored, nil
}

// GetRule retrieves a rule by ID.
func (s *SQLiteStorage) GetRule(ctx context.Context, id string) (*model.RecurrenceRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM recurrence_rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// ListDue returns the owner's active rules due on or before asOf, oldest first.
func (s *SQLiteStorage) ListDue(ctx context.Context, ownerID string, asOf time.Time) ([]model.RecurrenceRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	if err := validateDate(asOf, "asOf"); err != nil {
		return nil, err
	}

	return s.queryRules(ctx, `
		SELECT `+ruleColumns+`
		FROM recurrence_rules
		WHERE owner_id = ? AND is_active = 1 AND next_occurrence <= ?
		ORDER BY next_occurrence ASC, created_at ASC, id ASC`,
		ownerID, schedule.FormatDate(schedule.DateOf(asOf)))
}

// ListRules returns rules matching the filter ordered by next occurrence.
func (s *SQLiteStorage) ListRules(ctx context.Context, filter service.RuleFilter) ([]model.RecurrenceRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + ` FROM recurrence_rules WHERE 1 = 1`
	var args []any
	if filter.OwnerID != "" {
		query += " AND owner_id = ?"
		args = append(args, filter.OwnerID)
	}
	if !filter.IncludeInactive {
		query += " AND is_active = 1"
	}
	query += " ORDER BY next_occurrence ASC, created_at ASC, id ASC"

	return s.queryRules(ctx, query, args...)
}

// SetActive pauses or resumes a rule.
func (s *SQLiteStorage) SetActive(ctx context.Context, id string, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE recurrence_rules SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return requireRows(result, id)
}

// Advance moves a rule's next occurrence forward to newDate. Moving it
// backwards or sideways is rejected with service.ErrStaleAdvance.
func (s *SQLiteStorage) Advance(ctx context.Context, id string, newDate time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateDate(newDate, "newDate"); err != nil {
		return err
	}
	return advanceRule(ctx, s.db, id, newDate)
}

func advanceRule(ctx context.Context, q queryable, id string, newDate time.Time) error {
	next := schedule.FormatDate(schedule.DateOf(newDate))
	result, err := q.ExecContext(ctx, `
		UPDATE recurrence_rules
		SET next_occurrence = ?, updated_at = ?
		WHERE id = ? AND next_occurrence < ?`,
		next, time.Now().UTC(), id, next)
	if err != nil {
		return fmt.Errorf("failed to advance rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists int
	err = q.QueryRowContext(ctx, `SELECT COUNT(*) FROM recurrence_rules WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check rule: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
	}
	return fmt.Errorf("rule %s to %s: %w", id, next, service.ErrStaleAdvance)
}

// DeleteRule removes a rule. Transactions it already produced are kept.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM recurrence_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return requireRows(result, id)
}

func (s *SQLiteStorage) queryRules(ctx context.Context, query string, args ...any) ([]model.RecurrenceRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.RecurrenceRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*model.RecurrenceRule, error) {
	var (
		rule     model.RecurrenceRule
		kind     string
		unit     string
		nextDate string
	)
	err := row.Scan(
		&rule.ID, &rule.OwnerID, &rule.Amount, &rule.Description, &rule.Category,
		&kind, &rule.Active, &unit, &rule.IntervalValue, &nextDate,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Kind = model.Kind(kind)
	rule.IntervalUnit = model.IntervalUnit(unit)
	if rule.NextOccurrence, err = schedule.ParseDate(nextDate); err != nil {
		return nil, fmt.Errorf("%w: rule %s: %v", common.ErrDatabaseCorrupted, rule.ID, err)
	}
	return &rule, nil
}

func requireRows(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
	}
	return nil
}

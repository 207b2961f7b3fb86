// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/Veraticus/the-spice-must-recur/internal/model"
)

// Store errors the engine reacts to.
var (
	// ErrDuplicateOccurrence is returned by a TransactionStore when a transaction
	// for the same rule and date has already been recorded.
	ErrDuplicateOccurrence = errors.New("occurrence already materialized")
	// ErrStaleAdvance is returned by a RecurrenceStore when the rule's next
	// occurrence is already at or past the requested date.
	ErrStaleAdvance = errors.New("rule already advanced")
)

// RecurrenceStore persists recurrence rules.
type RecurrenceStore interface {
	// ListDue returns the owner's active rules whose next occurrence is on or before asOf.
	ListDue(ctx context.Context, ownerID string, asOf time.Time) ([]model.RecurrenceRule, error)
	InsertRule(ctx context.Context, rule *model.RecurrenceRule) (*model.RecurrenceRule, error)
	SetActive(ctx context.Context, id string, active bool) error
	// Advance moves a rule's next occurrence to newDate.
	Advance(ctx context.Context, id string, newDate time.Time) error
}

// TransactionStore persists ledger transactions.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
}

// OccurrenceMaterializer is implemented by stores that can insert a
// transaction and advance its rule atomically.
type OccurrenceMaterializer interface {
	MaterializeOccurrence(ctx context.Context, txn *model.Transaction, ruleID string, next time.Time) (*model.Transaction, error)
}

// SessionProvider supplies the identity of the current owner.
type SessionProvider interface {
	// CurrentOwnerID returns false when no owner is signed in yet.
	CurrentOwnerID(ctx context.Context) (string, bool)
}

// Clock supplies the current calendar date.
type Clock interface {
	Today() time.Time
}

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	OwnerID   string
	RuleID    string
	Limit     int
	Offset    int
}

// RuleFilter defines filtering options for rule queries.
type RuleFilter struct {
	OwnerID         string
	IncludeInactive bool
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	RecurrenceStore
	TransactionStore

	GetRule(ctx context.Context, id string) (*model.RecurrenceRule, error)
	ListRules(ctx context.Context, filter RuleFilter) ([]model.RecurrenceRule, error)
	DeleteRule(ctx context.Context, id string) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// FailureStage identifies which step of processing a rule failed at.
type FailureStage string

// Failure stages.
const (
	StageMaterialize FailureStage = "materialize"
	StageAdvance     FailureStage = "advance"
)

// RuleFailure records a per-rule failure that did not abort the run.
type RuleFailure struct {
	Err    error
	Date   time.Time
	RuleID string
	Stage  FailureStage
}

// Duplicated reports whether the failure left a materialized transaction
// behind without advancing its rule, so the next run will repeat it.
func (f RuleFailure) Duplicated() bool {
	return f.Stage == StageAdvance
}

// ProcessReport summarizes one engine run.
type ProcessReport struct {
	Today        time.Time
	OwnerID      string
	Materialized []model.Transaction
	Failures     []RuleFailure
	Due          int
	Advanced     int
	Skipped      int // duplicate occurrences advanced without a new transaction
	Duration     time.Duration
}

// HasFailures reports whether any rule failed.
func (r *ProcessReport) HasFailures() bool {
	return len(r.Failures) > 0
}

// ProgressObserver receives per-rule notifications during a run.
type ProgressObserver interface {
	Start(total int)
	RuleDone(rule model.RecurrenceRule, err error)
	Finish()
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

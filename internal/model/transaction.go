package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a transaction as money in or money out.
type Kind string

// Kind constants.
const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Valid reports whether k is income or expense.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// ParseKind converts user input to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "in", "credit":
		return KindIncome, nil
	case "expense", "out", "debit":
		return KindExpense, nil
	default:
		return "", fmt.Errorf("unknown kind %q (expected income or expense)", s)
	}
}

// KindForAmount returns the kind implied by the sign of amount.
// Zero is treated as an expense.
func KindForAmount(amount decimal.Decimal) Kind {
	if amount.IsPositive() {
		return KindIncome
	}
	return KindExpense
}

// Transaction is a ledger entry. Entries created by the recurrence engine
// carry the ID of the rule that produced them.
type Transaction struct {
	Date        time.Time // calendar date, midnight UTC
	CreatedAt   time.Time
	Amount      decimal.Decimal
	ID          string
	OwnerID     string
	RuleID      string // empty for entries not produced by a rule
	Description string
	Category    string
	Kind        Kind
}

// IsRecurring reports whether the transaction was materialized from a rule.
func (t *Transaction) IsRecurring() bool {
	return t.RuleID != ""
}

// Validate ensures the transaction has valid data.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.OwnerID) == "" {
		return fmt.Errorf("owner ID is required")
	}
	if t.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("invalid kind %q", t.Kind)
	}
	return nil
}

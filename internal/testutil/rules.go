package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-spice-must-recur/internal/model"
)

// RuleBuilder builds recurrence rules for tests. Defaults describe an active
// monthly expense of -10.00 due on 2024-01-01.
type RuleBuilder struct {
	rule model.RecurrenceRule
}

// NewRule starts a rule for ownerID.
func NewRule(ownerID string) *RuleBuilder {
	return &RuleBuilder{rule: model.RecurrenceRule{
		OwnerID:        ownerID,
		Amount:         decimal.RequireFromString("-10.00"),
		Description:    "Subscription",
		Category:       "Bills",
		Kind:           model.KindExpense,
		Active:         true,
		IntervalUnit:   model.UnitMonth,
		IntervalValue:  1,
		NextOccurrence: Date(2024, 1, 1),
	}}
}

// ID sets an explicit rule ID.
func (b *RuleBuilder) ID(id string) *RuleBuilder {
	b.rule.ID = id
	return b
}

// Amount sets the amount and derives the kind from its sign.
func (b *RuleBuilder) Amount(amount string) *RuleBuilder {
	b.rule.Amount = decimal.RequireFromString(amount)
	b.rule.Kind = model.KindForAmount(b.rule.Amount)
	return b
}

// Description sets the description.
func (b *RuleBuilder) Description(description string) *RuleBuilder {
	b.rule.Description = description
	return b
}

// Every sets the interval.
func (b *RuleBuilder) Every(value int, unit model.IntervalUnit) *RuleBuilder {
	b.rule.IntervalValue = value
	b.rule.IntervalUnit = unit
	return b
}

// Monthly is Every(1, model.UnitMonth).
func (b *RuleBuilder) Monthly() *RuleBuilder {
	return b.Every(1, model.UnitMonth)
}

// Next sets the next occurrence date.
func (b *RuleBuilder) Next(year int, month time.Month, day int) *RuleBuilder {
	b.rule.NextOccurrence = Date(year, month, day)
	return b
}

// Paused marks the rule inactive.
func (b *RuleBuilder) Paused() *RuleBuilder {
	b.rule.Active = false
	return b
}

// Build returns the rule.
func (b *RuleBuilder) Build() model.RecurrenceRule {
	return b.rule
}

// Date returns midnight UTC of the given calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

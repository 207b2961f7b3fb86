package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRule() RecurrenceRule {
	return RecurrenceRule{
		OwnerID:        "owner-1",
		Amount:         decimal.NewFromInt(-50),
		Description:    "Gym membership",
		Category:       "Health",
		Kind:           KindExpense,
		Active:         true,
		IntervalUnit:   UnitMonth,
		IntervalValue:  1,
		NextOccurrence: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestRecurrenceRule_Validate(t *testing.T) {
	tests := []struct {
		mutate  func(*RecurrenceRule)
		name    string
		wantErr string
	}{
		{name: "valid rule", mutate: func(*RecurrenceRule) {}},
		{name: "missing owner", mutate: func(r *RecurrenceRule) { r.OwnerID = " " }, wantErr: "owner ID is required"},
		{name: "missing description", mutate: func(r *RecurrenceRule) { r.Description = "" }, wantErr: "description is required"},
		{name: "bad kind", mutate: func(r *RecurrenceRule) { r.Kind = "transfer" }, wantErr: "invalid kind"},
		{name: "bad unit", mutate: func(r *RecurrenceRule) { r.IntervalUnit = "fortnight" }, wantErr: "invalid interval unit"},
		{name: "zero interval", mutate: func(r *RecurrenceRule) { r.IntervalValue = 0 }, wantErr: "at least 1"},
		{name: "missing date", mutate: func(r *RecurrenceRule) { r.NextOccurrence = time.Time{} }, wantErr: "next occurrence date is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validRule()
			tt.mutate(&rule)
			err := rule.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRecurrenceRule_IsDue(t *testing.T) {
	rule := validRule()
	day := rule.NextOccurrence

	assert.True(t, rule.IsDue(day), "due on the occurrence date")
	assert.True(t, rule.IsDue(day.AddDate(0, 0, 10)), "due when overdue")
	assert.False(t, rule.IsDue(day.AddDate(0, 0, -1)), "not due before the date")

	rule.Active = false
	assert.False(t, rule.IsDue(day.AddDate(0, 0, 10)), "inactive rules are never due")
}

func TestRecurrenceRule_Schedule(t *testing.T) {
	rule := validRule()
	assert.Equal(t, "every month", rule.Schedule())

	rule.IntervalUnit = UnitWeek
	rule.IntervalValue = 2
	assert.Equal(t, "every 2 weeks", rule.Schedule())
}

func TestParseIntervalUnit(t *testing.T) {
	tests := map[string]IntervalUnit{
		"day":      UnitDay,
		"Weekly":   UnitWeek,
		" months ": UnitMonth,
		"annually": UnitYear,
	}
	for input, want := range tests {
		got, err := ParseIntervalUnit(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseIntervalUnit("hourly")
	assert.Error(t, err)
}

func TestParseKindAndKindForAmount(t *testing.T) {
	k, err := ParseKind("Income")
	require.NoError(t, err)
	assert.Equal(t, KindIncome, k)

	_, err = ParseKind("transfer")
	assert.Error(t, err)

	assert.Equal(t, KindIncome, KindForAmount(decimal.RequireFromString("1200.00")))
	assert.Equal(t, KindExpense, KindForAmount(decimal.RequireFromString("-9.99")))
	assert.Equal(t, KindExpense, KindForAmount(decimal.Zero))
}

func TestTransaction_Validate(t *testing.T) {
	txn := Transaction{
		OwnerID:     "owner-1",
		RuleID:      "rule-1",
		Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Description: "Gym membership (recurring)",
		Amount:      decimal.NewFromInt(-50),
		Kind:        KindExpense,
	}
	require.NoError(t, txn.Validate())
	assert.True(t, txn.IsRecurring())

	txn.Date = time.Time{}
	assert.Error(t, txn.Validate())
}

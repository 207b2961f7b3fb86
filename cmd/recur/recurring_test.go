package main

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-spice-must-recur/internal/common"
	"github.com/Veraticus/the-spice-must-recur/internal/config"
	"github.com/Veraticus/the-spice-must-recur/internal/model"
)

func TestRuleFromFlags(t *testing.T) {
	tests := []struct {
		want    *model.RecurrenceRule
		name    string
		args    []string
		wantErr string
	}{
		{
			name: "monthly expense",
			args: []string{"--amount", "-1200.00", "--description", " Rent ", "--category", "Housing", "--next", "2024-02-01"},
			want: &model.RecurrenceRule{
				Amount: decimal.RequireFromString("-1200"), Description: "Rent", Category: "Housing",
				Active: true, IntervalUnit: model.UnitMonth, IntervalValue: 1,
				NextOccurrence: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "biweekly income, paused, explicit kind",
			args: []string{"--amount", "2500", "--description", "Salary", "--every", "2", "--unit", "weeks", "--kind", "income", "--paused", "--next", "2024-01-05"},
			want: &model.RecurrenceRule{
				Amount: decimal.RequireFromString("2500"), Description: "Salary", Kind: model.KindIncome,
				IntervalUnit: model.UnitWeek, IntervalValue: 2,
				NextOccurrence: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			},
		},
		{name: "bad amount", args: []string{"--amount", "lots", "--description", "x"}, wantErr: "--amount must be a number"},
		{name: "zero amount", args: []string{"--amount", "0", "--description", "x"}, wantErr: "--amount must not be zero"},
		{name: "bad unit", args: []string{"--amount", "1", "--description", "x", "--unit", "fortnight"}, wantErr: "--unit must be"},
		{name: "zero interval", args: []string{"--amount", "1", "--description", "x", "--every", "0"}, wantErr: "--every must be at least 1"},
		{name: "bad kind", args: []string{"--amount", "1", "--description", "x", "--kind", "gift"}, wantErr: "--kind must be"},
		{name: "bad date", args: []string{"--amount", "1", "--description", "x", "--next", "01/02/2024"}, wantErr: "--next must be a date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := recurringAddCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))

			rule, err := ruleFromFlags(cmd)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				var userErr *common.UserError
				assert.ErrorAs(t, err, &userErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Amount.Equal(rule.Amount))
			rule.Amount = tt.want.Amount
			assert.Equal(t, tt.want, rule)
		})
	}
}

func TestRuleFromFlags_DefaultsNextToToday(t *testing.T) {
	setupCLI(t)
	cmd := recurringAddCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--amount", "-5", "--description", "Coffee"}))

	rule, err := ruleFromFlags(cmd)
	require.NoError(t, err)
	now := time.Now().UTC()
	assert.Equal(t, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), rule.NextOccurrence)
}

func TestRecurringAddListShow(t *testing.T) {
	setupCLI(t)

	id := addRule(t, "--amount", "-50", "--description", "Gym", "--category", "Health", "--next", "2024-01-31")

	rules := storedRules(t)
	require.Len(t, rules, 1)
	assert.Equal(t, "owner-1", rules[0].OwnerID)
	assert.Equal(t, model.KindExpense, rules[0].Kind)

	out, err := execute(t, recurringListCmd(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Recurrence Rules")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Gym")
	assert.Contains(t, out, "-50.00")
	assert.Contains(t, out, "every month")
	assert.Contains(t, out, "2024-01-31")

	out, err = execute(t, recurringShowCmd(), "", id, "--preview", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Upcoming")
	assert.Contains(t, out, "2024-01-31")
	assert.Contains(t, out, "2024-02-29")
	assert.Contains(t, out, "2024-03-29")
	assert.Contains(t, out, "none yet")
}

func TestRecurringAdd_RequiresOwner(t *testing.T) {
	setupCLI(t)
	viper.Set(config.KeyOwnerID, "")

	_, err := execute(t, recurringAddCmd(), "", "--amount", "-5", "--description", "Coffee")
	require.ErrorIs(t, err, common.ErrNoOwner)
}

func TestRecurringList_HidesPausedUnlessAll(t *testing.T) {
	setupCLI(t)
	addRule(t, "--amount", "-5", "--description", "Active one", "--next", "2024-01-01")
	addRule(t, "--amount", "-5", "--description", "Paused one", "--next", "2024-01-01", "--paused")

	out, err := execute(t, recurringListCmd(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Active one")
	assert.NotContains(t, out, "Paused one")

	out, err = execute(t, recurringListCmd(), "", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Paused one")
	assert.Contains(t, out, "paused")
}

func TestRecurringList_Empty(t *testing.T) {
	setupCLI(t)
	out, err := execute(t, recurringListCmd(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "No recurrence rules found")
}

func TestRecurringPauseResume(t *testing.T) {
	setupCLI(t)
	id := addRule(t, "--amount", "-5", "--description", "Coffee", "--next", "2024-01-01")

	out, err := execute(t, recurringToggleCmd("pause", false), "", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Paused Coffee")
	assert.False(t, storedRules(t)[0].Active)

	out, err = execute(t, recurringToggleCmd("pause", false), "", id)
	require.NoError(t, err)
	assert.Contains(t, out, "already paused")

	out, err = execute(t, recurringToggleCmd("resume", true), "", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Resumed Coffee, next on 2024-01-01")
	assert.True(t, storedRules(t)[0].Active)
}

func TestRecurringCommands_HideOtherOwnersRules(t *testing.T) {
	setupCLI(t)
	id := addRule(t, "--amount", "-5", "--description", "Coffee", "--next", "2024-01-01")

	viper.Set(config.KeyOwnerID, "owner-2")
	_, err := execute(t, recurringShowCmd(), "", id)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = execute(t, recurringToggleCmd("pause", false), "", id)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = execute(t, recurringDeleteCmd(), "", id, "--force")
	assert.ErrorIs(t, err, common.ErrNotFound)

	viper.Set(config.KeyOwnerID, "owner-1")
	assert.Len(t, storedRules(t), 1)
}

func TestRecurringDelete(t *testing.T) {
	tests := []struct {
		name        string
		stdin       string
		args        []string
		wantDeleted bool
	}{
		{name: "declined", stdin: "n\n", wantDeleted: false},
		{name: "no answer", stdin: "", wantDeleted: false},
		{name: "confirmed", stdin: "y\n", wantDeleted: true},
		{name: "forced", args: []string{"--force"}, wantDeleted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupCLI(t)
			id := addRule(t, "--amount", "-5", "--description", "Coffee", "--next", "2024-01-01")

			out, err := execute(t, recurringDeleteCmd(), tt.stdin, append([]string{id}, tt.args...)...)
			require.NoError(t, err)

			if tt.wantDeleted {
				assert.Contains(t, out, "deleted")
				assert.Empty(t, storedRules(t))
			} else {
				assert.Contains(t, out, "Operation canceled")
				assert.Len(t, storedRules(t), 1)
			}
		})
	}
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "active", formatStatus(true))
	assert.Equal(t, "paused", formatStatus(false))
}

package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-spice-must-recur/internal/model"
	"github.com/Veraticus/the-spice-must-recur/internal/testutil"
)

func TestSetupTestDB_SeedsRules(t *testing.T) {
	db := testutil.SetupTestDB(t,
		testutil.NewRule("owner-1").ID("rent").Amount("-1200").Description("Rent").Next(2024, 3, 1).Build(),
		testutil.NewRule("owner-1").ID("pay").Amount("3000").Every(2, model.UnitWeek).Paused().Build(),
	)

	rent := db.MustGetRule("rent")
	assert.Equal(t, "Rent", rent.Description)
	assert.Equal(t, model.KindExpense, rent.Kind)
	assert.Equal(t, testutil.Date(2024, 3, 1), rent.NextOccurrence)

	pay := db.MustGetRule("pay")
	assert.Equal(t, model.KindIncome, pay.Kind)
	assert.Equal(t, model.UnitWeek, pay.IntervalUnit)
	assert.Equal(t, 2, pay.IntervalValue)
	assert.False(t, pay.Active)

	assert.Empty(t, db.Transactions("owner-1"))
}

func TestNewRule_Defaults(t *testing.T) {
	rule := testutil.NewRule("o").Build()
	require.NoError(t, rule.Validate())
	assert.True(t, rule.Active)
	assert.Equal(t, "every month", rule.Schedule())
}

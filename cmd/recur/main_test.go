package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-spice-must-recur/internal/config"
	"github.com/Veraticus/the-spice-must-recur/internal/model"
	"github.com/Veraticus/the-spice-must-recur/internal/service"
)

// setupCLI points the global configuration at a fresh database for owner-1
// and returns the database path.
func setupCLI(t *testing.T) string {
	t.Helper()
	viper.Reset()
	config.SetDefaults(viper.GetViper())

	dbPath := filepath.Join(t.TempDir(), "recur.db")
	viper.Set(config.KeyDatabasePath, dbPath)
	viper.Set(config.KeyOwnerID, "owner-1")
	viper.Set(config.KeyClockLocation, "UTC")

	t.Cleanup(viper.Reset)
	return dbPath
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// storedRules returns owner-1's rules, paused ones included.
func storedRules(t *testing.T) []model.RecurrenceRule {
	t.Helper()
	ctx := context.Background()
	store, err := initStorage(ctx)
	require.NoError(t, err)
	defer closeStorage(store)

	rules, err := store.ListRules(ctx, service.RuleFilter{OwnerID: "owner-1", IncludeInactive: true})
	require.NoError(t, err)
	return rules
}

// storedTransactions returns owner-1's ledger.
func storedTransactions(t *testing.T) []model.Transaction {
	t.Helper()
	ctx := context.Background()
	store, err := initStorage(ctx)
	require.NoError(t, err)
	defer closeStorage(store)

	txns, err := store.ListTransactions(ctx, service.TransactionFilter{OwnerID: "owner-1"})
	require.NoError(t, err)
	return txns
}

// addRule creates a rule through the CLI and returns its ID.
func addRule(t *testing.T, args ...string) string {
	t.Helper()
	before := len(storedRules(t))
	_, err := execute(t, recurringAddCmd(), "", args...)
	require.NoError(t, err)
	rules := storedRules(t)
	require.Len(t, rules, before+1)

	for _, r := range rules {
		if r.Description == flagValue(args, "--description") {
			return r.ID
		}
	}
	t.Fatalf("rule %q not found", flagValue(args, "--description"))
	return ""
}

func flagValue(args []string, name string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == name {
			return args[i+1]
		}
	}
	return ""
}

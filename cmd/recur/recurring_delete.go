package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-spice-must-recur/internal/cli"
)

func recurringDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a recurrence rule",
		Long: `Delete a recurrence rule permanently.

Transactions the rule already recorded stay in the ledger. Use
'recur recurring pause' to stop a rule without losing it.`,
		Args: cobra.ExactArgs(1),
		RunE: runRecurringDelete,
	}

	cmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")

	return cmd
}

func runRecurringDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	force, _ := cmd.Flags().GetBool("force")

	ownerID, err := currentOwner(ctx)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	rule, err := loadOwnedRule(ctx, store, ownerID, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printf(out, "%s\n\n", cli.FormatTitle("Delete Recurrence Rule"))
	printf(out, "Rule ID: %s\n", rule.ID)
	printf(out, "Description: %s\n", rule.Description)
	printf(out, "Amount: %s, %s\n\n", cli.FormatAmount(rule.Amount), rule.Schedule())

	if !force {
		reader := cli.NewNonBlockingReader(cmd.InOrStdin())
		confirmed, err := reader.Confirm(ctx, out, fmt.Sprintf("Delete rule %s?", rule.ID))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !confirmed {
			printf(out, "\nOperation canceled.\n")
			return nil
		}
	}

	if err := store.DeleteRule(ctx, rule.ID); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	printf(out, "%s\n", cli.FormatSuccess(fmt.Sprintf("Rule %s deleted", rule.ID)))
	return nil
}

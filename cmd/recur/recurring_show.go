package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-spice-must-recur/internal/cli"
	"github.com/Veraticus/the-spice-must-recur/internal/schedule"
	"github.com/Veraticus/the-spice-must-recur/internal/service"
)

func recurringShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <rule-id>",
		Short: "Show a rule and its upcoming occurrences",
		Args:  cobra.ExactArgs(1),
		RunE:  runRecurringShow,
	}

	cmd.Flags().IntP("preview", "n", 3, "number of upcoming occurrences to list")
	cmd.Flags().Int("history", 5, "number of recorded transactions to list")

	return cmd
}

func runRecurringShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	preview, _ := cmd.Flags().GetInt("preview")
	history, _ := cmd.Flags().GetInt("history")

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
	printf(out, "%s\n\n", cli.FormatTitle(rule.Description))
	printf(out, "ID:       %s\n", rule.ID)
	printf(out, "Amount:   %s (%s)\n", cli.FormatAmount(rule.Amount), rule.Kind)
	if rule.Category != "" {
		printf(out, "Category: %s\n", rule.Category)
	}
	printf(out, "Schedule: %s\n", rule.Schedule())
	printf(out, "Status:   %s\n", cli.FormatActive(rule.Active))

	if preview > 0 {
		dates, err := schedule.Occurrences(rule.NextOccurrence, rule.IntervalUnit, rule.IntervalValue, preview)
		if err != nil {
			return fmt.Errorf("failed to compute occurrences: %w", err)
		}
		printf(out, "\n%s Upcoming:\n", cli.CalendarIcon)
		for _, d := range dates {
			printf(out, "  %s\n", schedule.FormatDate(d))
		}
	}

	if history > 0 {
		txns, err := store.ListTransactions(ctx, service.TransactionFilter{RuleID: rule.ID})
		if err != nil {
			return fmt.Errorf("failed to list transactions: %w", err)
		}
		if len(txns) > history {
			txns = txns[len(txns)-history:]
		}
		printf(out, "\nRecorded (%d most recent):\n", len(txns))
		if len(txns) == 0 {
			printf(out, "  %s\n", cli.SubtleStyle.Render("none yet"))
		}
		for _, txn := range txns {
			printf(out, "  %s  %s\n", schedule.FormatDate(txn.Date), cli.FormatAmount(txn.Amount))
		}
	}

	return nil
}

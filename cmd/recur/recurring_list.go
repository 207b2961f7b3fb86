package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Veraticus/the-spice-must-recur/internal/cli"
	"github.com/Veraticus/the-spice-must-recur/internal/model"
	"github.com/Veraticus/the-spice-must-recur/internal/schedule"
	"github.com/Veraticus/the-spice-must-recur/internal/service"
)

func recurringListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recurrence rules",
		Long: `Display the current owner's recurrence rules, soonest first.

Paused rules are hidden unless --all is given.`,
		Args: cobra.NoArgs,
		RunE: runRecurringList,
	}

	cmd.Flags().BoolP("all", "a", false, "include paused rules")

	return cmd
}

func runRecurringList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	all, _ := cmd.Flags().GetBool("all")

	ownerID, err := currentOwner(ctx)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	rules, err := store.ListRules(ctx, service.RuleFilter{OwnerID: ownerID, IncludeInactive: all})
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(rules) == 0 {
		printf(out, "%s\n", cli.InfoStyle.Render("No recurrence rules found. Use 'recur recurring add' to create one."))
		return nil
	}

	printf(out, "%s\n\n", cli.FormatTitle("Recurrence Rules"))
	return writeRulesTable(out, rules)
}

func writeRulesTable(out io.Writer, rules []model.RecurrenceRule) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("Description"),
		headerStyle.Render("Amount"),
		headerStyle.Render("Schedule"),
		headerStyle.Render("Next"),
		headerStyle.Render("Status")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 36),
		strings.Repeat("─", 20),
		strings.Repeat("─", 10),
		strings.Repeat("─", 14),
		strings.Repeat("─", 10),
		strings.Repeat("─", 8)); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}

	for _, rule := range rules {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rule.ID,
			rule.Description,
			rule.Amount.StringFixed(2),
			rule.Schedule(),
			schedule.FormatDate(rule.NextOccurrence),
			formatStatus(rule.Active)); err != nil {
			return fmt.Errorf("failed to write rule row: %w", err)
		}
	}

	return w.Flush()
}

func formatStatus(active bool) string {
	if active {
		return "active"
	}
	return "paused"
}

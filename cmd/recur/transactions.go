package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/the-spice-must-recur/internal/cli"
	"github.com/Veraticus/the-spice-must-recur/internal/model"
	"github.com/Veraticus/the-spice-must-recur/internal/schedule"
	"github.com/Veraticus/the-spice-must-recur/internal/service"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txns", "ledger"},
		Short:   "Inspect the ledger",
	}

	cmd.AddCommand(transactionsListCmd())

	return cmd
}

func transactionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger transactions",
		Long: `List the current owner's ledger transactions, oldest first, with the
net total of the listed amounts.`,
		Args: cobra.NoArgs,
		RunE: runTransactionsList,
	}

	cmd.Flags().String("from", "", "first date to include, YYYY-MM-DD")
	cmd.Flags().String("to", "", "last date to include, YYYY-MM-DD")
	cmd.Flags().String("rule", "", "only transactions recorded by this rule")
	cmd.Flags().Int("limit", 0, "maximum number of transactions to list")

	return cmd
}

func runTransactionsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	ruleID, _ := cmd.Flags().GetString("rule")
	limit, _ := cmd.Flags().GetInt("limit")

	ownerID, err := currentOwner(ctx)
	if err != nil {
		return err
	}

	filter := service.TransactionFilter{OwnerID: ownerID, RuleID: ruleID, Limit: limit}
	if from != "" {
		date, err := parseDateFlag("from", from)
		if err != nil {
			return err
		}
		filter.StartDate = &date
	}
	if to != "" {
		date, err := parseDateFlag("to", to)
		if err != nil {
			return err
		}
		filter.EndDate = &date
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	txns, err := store.ListTransactions(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(txns) == 0 {
		printf(out, "%s\n", cli.InfoStyle.Render("No transactions found. Run 'recur process' to record due recurrences."))
		return nil
	}

	printf(out, "%s\n\n", cli.FormatTitle("Ledger"))
	if err := writeTransactionsTable(out, txns); err != nil {
		return err
	}
	printf(out, "\n%d transactions, net %s\n", len(txns), cli.FormatAmount(sumAmounts(txns)))
	return nil
}

func writeTransactionsTable(out io.Writer, txns []model.Transaction) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("Date"),
		headerStyle.Render("Amount"),
		headerStyle.Render("Description"),
		headerStyle.Render("Category"),
		headerStyle.Render("Kind")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 10),
		strings.Repeat("─", 10),
		strings.Repeat("─", 30),
		strings.Repeat("─", 12),
		strings.Repeat("─", 7)); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}

	for _, txn := range txns {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			schedule.FormatDate(txn.Date),
			txn.Amount.StringFixed(2),
			txn.Description,
			txn.Category,
			txn.Kind); err != nil {
			return fmt.Errorf("failed to write transaction row: %w", err)
		}
	}

	return w.Flush()
}

func sumAmounts(txns []model.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, txn := range txns {
		total = total.Add(txn.Amount)
	}
	return total
}

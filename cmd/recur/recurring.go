package main

import (
	"github.com/spf13/cobra"
)

func recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recurring",
		Aliases: []string{"rules"},
		Short:   "Manage recurrence rules",
		Long: `Manage the rules that generate recurring transactions.

A rule has an amount, a description, a schedule (every N days, weeks,
months, or years), and the date of its next occurrence. Monthly and yearly
rules that fall on a day the target month lacks use that month's last day.`,
	}

	cmd.AddCommand(recurringAddCmd())
	cmd.AddCommand(recurringListCmd())
	cmd.AddCommand(recurringShowCmd())
	cmd.AddCommand(recurringToggleCmd("pause", false))
	cmd.AddCommand(recurringToggleCmd("resume", true))
	cmd.AddCommand(recurringDeleteCmd())

	return cmd
}

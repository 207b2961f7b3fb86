package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-spice-must-recur/internal/cli"
	"github.com/Veraticus/the-spice-must-recur/internal/config"
	"github.com/Veraticus/the-spice-must-recur/internal/schedule"
)

// recurringToggleCmd builds the pause and resume commands.
func recurringToggleCmd(use string, active bool) *cobra.Command {
	short := "Pause a rule so it stops producing transactions"
	if active {
		short = "Resume a paused rule"
	}

	return &cobra.Command{
		Use:   use + " <rule-id>",
		Short: short,
		Long: short + `.

Resuming does not skip missed occurrences: a rule whose next occurrence is in
the past is caught up by the next 'recur process'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecurringToggle(cmd, args[0], active)
		},
	}
}

func runRecurringToggle(cmd *cobra.Command, id string, active bool) error {
	ctx := cmd.Context()

	ownerID, err := currentOwner(ctx)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	rule, err := loadOwnedRule(ctx, store, ownerID, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if rule.Active == active {
		printf(out, "%s\n", cli.FormatInfo(fmt.Sprintf("Rule %s is already %s", rule.ID, formatStatus(active))))
		return nil
	}

	engineCfg, err := config.LoadEngineConfig(viper.GetViper())
	if err != nil {
		return err
	}
	e, err := buildEngine(store, engineCfg, "")
	if err != nil {
		return err
	}
	if err := e.ToggleActive(ctx, rule.ID, active); err != nil {
		return err
	}

	if active {
		printf(out, "%s\n", cli.FormatSuccess(fmt.Sprintf("Resumed %s, next on %s", rule.Description, schedule.FormatDate(rule.NextOccurrence))))
	} else {
		printf(out, "%s\n", cli.FormatSuccess(fmt.Sprintf("Paused %s", rule.Description)))
	}
	return nil
}

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-spice-must-recur/internal/cli"
	"github.com/Veraticus/the-spice-must-recur/internal/common"
	"github.com/Veraticus/the-spice-must-recur/internal/config"
	"github.com/Veraticus/the-spice-must-recur/internal/model"
	"github.com/Veraticus/the-spice-must-recur/internal/schedule"
)

func recurringAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a recurrence rule",
		Long: `Create a recurrence rule for the current owner.

Positive amounts are income and negative amounts are expenses unless --kind
says otherwise. The first occurrence defaults to today.

Examples:
  recur recurring add --amount -1200 --description Rent --category Housing --next 2024-02-01
  recur recurring add --amount 2500 --description Salary --every 2 --unit week`,
		Args: cobra.NoArgs,
		RunE: runRecurringAdd,
	}

	cmd.Flags().String("amount", "", "amount per occurrence, negative for expenses (required)")
	cmd.Flags().StringP("description", "d", "", "description copied to each transaction (required)")
	cmd.Flags().StringP("category", "c", "", "category copied to each transaction")
	cmd.Flags().String("kind", "", "income or expense (default: from the amount's sign)")
	cmd.Flags().Int("every", 1, "number of units between occurrences")
	cmd.Flags().String("unit", string(model.UnitMonth), "interval unit: day, week, month, or year")
	cmd.Flags().String("next", "", "date of the first occurrence, YYYY-MM-DD (default: today)")
	cmd.Flags().Bool("paused", false, "create the rule paused")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}

func runRecurringAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rule, err := ruleFromFlags(cmd)
	if err != nil {
		return err
	}

	ownerID, err := currentOwner(ctx)
	if err != nil {
		return err
	}
	rule.OwnerID = ownerID

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	engineCfg, err := config.LoadEngineConfig(viper.GetViper())
	if err != nil {
		return err
	}
	e, err := buildEngine(store, engineCfg, "")
	if err != nil {
		return err
	}

	created, err := e.CreateRecurring(ctx, rule)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printf(out, "%s\n", cli.FormatSuccess(fmt.Sprintf("Created rule %s", created.ID)))
	printf(out, "  %s %s, %s, next on %s\n",
		created.Description, cli.FormatAmount(created.Amount), created.Schedule(), schedule.FormatDate(created.NextOccurrence))
	if !created.Active {
		printf(out, "  %s\n", cli.SubtleStyle.Render("Paused. Resume with: recur recurring resume "+created.ID))
	}
	return nil
}

// ruleFromFlags builds a rule from the add command's flags, without an owner.
func ruleFromFlags(cmd *cobra.Command) (*model.RecurrenceRule, error) {
	amountStr, _ := cmd.Flags().GetString("amount")
	description, _ := cmd.Flags().GetString("description")
	category, _ := cmd.Flags().GetString("category")
	kindStr, _ := cmd.Flags().GetString("kind")
	every, _ := cmd.Flags().GetInt("every")
	unitStr, _ := cmd.Flags().GetString("unit")
	nextStr, _ := cmd.Flags().GetString("next")
	paused, _ := cmd.Flags().GetBool("paused")

	amount, err := decimal.NewFromString(strings.TrimSpace(amountStr))
	if err != nil {
		return nil, common.NewUserError("--amount must be a number like -12.50", err)
	}
	if amount.IsZero() {
		return nil, common.NewUserError("--amount must not be zero", nil)
	}

	unit, err := model.ParseIntervalUnit(unitStr)
	if err != nil {
		return nil, common.NewUserError("--unit must be day, week, month, or year", err)
	}
	if every < 1 {
		return nil, common.NewUserError(fmt.Sprintf("--every must be at least 1, got %d", every), nil)
	}

	var kind model.Kind
	if kindStr != "" {
		if kind, err = model.ParseKind(kindStr); err != nil {
			return nil, common.NewUserError("--kind must be income or expense", err)
		}
	}

	next, err := nextOccurrenceFlag(nextStr)
	if err != nil {
		return nil, err
	}

	return &model.RecurrenceRule{
		Amount:         amount,
		Description:    strings.TrimSpace(description),
		Category:       strings.TrimSpace(category),
		Kind:           kind,
		Active:         !paused,
		IntervalUnit:   unit,
		IntervalValue:  every,
		NextOccurrence: next,
	}, nil
}

func nextOccurrenceFlag(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return todayFromConfig()
	}
	return parseDateFlag("next", value)
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-spice-must-recur/internal/cli"
	"github.com/Veraticus/the-spice-must-recur/internal/config"
	"github.com/Veraticus/the-spice-must-recur/internal/engine"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Record every recurring transaction that has come due",
		Long: `Record the current owner's due recurring transactions in the ledger.

Each due rule produces a transaction dated on its scheduled occurrence, not
on today, and then moves to its next occurrence. By default a rule that
missed several periods catches up one occurrence per run; --catch-up all
records every missed occurrence at once.

Failures of individual rules are reported and the command exits non-zero,
but other rules are still processed. Running again retries what failed.`,
		Args: cobra.NoArgs,
		RunE: runProcess,
	}

	cmd.Flags().String("catch-up", "", "catch-up policy: single or all (default from engine.catch_up)")
	cmd.Flags().Int("max-catch-up", 0, "most occurrences one rule may record in a run with --catch-up all")
	cmd.Flags().Int("workers", 0, "rules processed in parallel (default from engine.workers)")
	cmd.Flags().String("today", "", "process as if today were this date, YYYY-MM-DD")
	cmd.Flags().Bool("progress", false, "show a progress bar")
	cmd.Flags().Bool("backup", false, "back up the database before processing")

	return cmd
}

func runProcess(cmd *cobra.Command, _ []string) error {
	today, _ := cmd.Flags().GetString("today")
	showProgress, _ := cmd.Flags().GetBool("progress")
	backup, _ := cmd.Flags().GetBool("backup")

	engineCfg, err := processEngineConfig(cmd)
	if err != nil {
		return err
	}

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := interrupts.HandleInterrupts(cmd.Context())
	defer stop()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	e, err := buildEngine(store, engineCfg, today)
	if err != nil {
		return err
	}

	var progress *cli.ProgressReporter
	if showProgress {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr())
		e.SetObserver(progress)
	}

	if backup {
		path, err := store.AutoBackup(ctx, "pre-process")
		if err != nil {
			return fmt.Errorf("failed to back up database: %w", err)
		}
		printf(cmd.ErrOrStderr(), "%s\n", cli.FormatInfo("Backed up database to "+path))
	}

	report, err := e.ProcessForSession(ctx, config.LoadSession(viper.GetViper()))
	if interrupts.WasInterrupted() && progress != nil {
		done, failed := progress.Counts()
		slog.Info("Processing stopped early", "rules_done", done, "rules_failed", failed)
	}
	if err != nil {
		return err
	}

	printf(cmd.OutOrStdout(), "%s\n", cli.FormatReport(report))

	if report.HasFailures() {
		return fmt.Errorf("%d of %d due rules failed", len(report.Failures), report.Due)
	}
	return nil
}

// processEngineConfig loads the engine configuration and applies flag overrides.
func processEngineConfig(cmd *cobra.Command) (engine.Config, error) {
	cfg, err := config.LoadEngineConfig(viper.GetViper())
	if err != nil {
		return cfg, err
	}

	if cmd.Flags().Changed("catch-up") {
		value, _ := cmd.Flags().GetString("catch-up")
		if cfg.CatchUp, err = engine.ParseCatchUpPolicy(value); err != nil {
			return cfg, err
		}
	}
	if cmd.Flags().Changed("max-catch-up") {
		cfg.MaxCatchUp, _ = cmd.Flags().GetInt("max-catch-up")
		if cfg.MaxCatchUp < 1 {
			return cfg, fmt.Errorf("--max-catch-up must be at least 1")
		}
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
		if cfg.Workers < 1 {
			return cfg, fmt.Errorf("--workers must be at least 1")
		}
	}
	return cfg, nil
}

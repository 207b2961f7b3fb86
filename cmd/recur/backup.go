package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-spice-must-recur/internal/cli"
	"github.com/Veraticus/the-spice-must-recur/internal/config"
)

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [path]",
		Short: "Write a point-in-time copy of the database",
		Long: `Write a consistent copy of the database.

Without a path the copy goes to a timestamped file in a "backups" directory
next to the database. An existing file is never overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBackup,
	}
}

func runBackup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	var path string
	if len(args) == 1 {
		path = config.ExpandPath(args[0])
		err = store.Backup(ctx, path)
	} else {
		path, err = store.AutoBackup(ctx, "manual")
	}
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	printf(cmd.OutOrStdout(), "%s\n", cli.FormatSuccess("Backed up database to "+path))
	return nil
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-spice-must-recur/internal/cli"
	"github.com/Veraticus/the-spice-must-recur/internal/config"
	"github.com/Veraticus/the-spice-must-recur/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on startup; this command exists to do it
explicitly, or with --status to report the schema version without changes.`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")
	dbPath := config.DatabasePath(viper.GetViper())

	slog.Debug("Opening database for migration", "database", dbPath, "status_only", status)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer closeStorage(store)

	before, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if status {
		printf(out, "%s\n\n", cli.FormatTitle("Database Migration Status"))
		printf(out, "Database: %s\n", dbPath)
		printf(out, "Current version: %d\n", before)
		printf(out, "Latest version: %d\n", storage.ExpectedSchemaVersion)
		if before < storage.ExpectedSchemaVersion {
			printf(out, "%s\n", cli.FormatWarning("Migrations pending. Run: recur migrate"))
		}
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	after, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if after == before {
		printf(out, "%s\n", cli.FormatSuccess(fmt.Sprintf("Database already at version %d", after)))
		return nil
	}
	printf(out, "%s\n", cli.FormatSuccess(fmt.Sprintf("Migrated database from version %d to %d", before, after)))
	return nil
}

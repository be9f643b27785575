package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yasinhessnawi1/hideme-auth/internal/database"
	"github.com/yasinhessnawi1/hideme-auth/migrations"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply every pending schema migration, or list them with --status.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, statusOnly)
		},
	}

	cmd.Flags().BoolVar(&statusOnly, "status", false, "list migrations without applying them")

	return cmd
}

func runMigrate(cmd *cobra.Command, statusOnly bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	cmd.Println("Connecting to database...")
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	migrator := migrations.NewMigrator(db)

	if statusOnly {
		statuses, err := migrator.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		printStatus(cmd.OutOrStdout(), statuses)
		return nil
	}

	cmd.Println("Running migrations...")
	applied, err := migrator.RunMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	cmd.Printf("Migrations completed successfully (%d applied)\n", applied)
	return nil
}

func printStatus(w io.Writer, statuses []migrations.Status) {
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Fprintf(w, "%-8s %s  %s\n", state, s.Name, s.Description)
	}
}

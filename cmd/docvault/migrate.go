package main

import (
	"database/sql"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"docvault/internal/config"
	"docvault/internal/store"

	_ "modernc.org/sqlite"
)

func newMigrateCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	var dryRun bool
	var inspect bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run or inspect database schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			if inspect || dryRun {
				plan, err := inspectMigrations(cfg.DBPath)
				if err != nil {
					return fmt.Errorf("inspect migrations: %w", err)
				}
				if f := out.formatter(); f != nil {
					return f.Write(w, plan)
				}

				_ = writePlain(w, "Current version: %d\n", plan.CurrentVersion)
				_ = writePlain(w, "Available version: %d\n", plan.AvailableVersion)
				if len(plan.Pending) == 0 {
					return writePlain(w, "No pending migrations.\n")
				}
				_ = writePlain(w, "Pending migrations: %d\n", len(plan.Pending))
				for _, m := range plan.Pending {
					if err := writePlain(w, "  %d: %s\n", m.Version, m.Description); err != nil {
						return err
					}
				}
				return nil
			}

			// Opening the store applies pending migrations.
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if err := st.Close(); err != nil {
				return err
			}

			if f := out.formatter(); f != nil {
				plan, err := inspectMigrations(cfg.DBPath)
				if err != nil {
					return err
				}
				return f.Write(w, plan)
			}
			return writePlain(w, "Migrations applied successfully.\n")
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show pending migrations without applying")
	cmd.Flags().BoolVar(&inspect, "inspect", false, "show migration status")

	return cmd
}

func inspectMigrations(path string) (*store.MigrationStatus, error) {
	db, err := openRawDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return store.MigrationPlan(db)
}

func openRawDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}
	u := url.URL{Scheme: "file", Path: path}
	return sql.Open("sqlite", u.String())
}

package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kirana/app/services/classifier"
	"github.com/shashiranjanraj/kirana/config"
	"github.com/shashiranjanraj/kirana/database/seeders"
	"github.com/shashiranjanraj/kirana/internal/kernel"
	"github.com/shashiranjanraj/kirana/pkg/database"
	"github.com/shashiranjanraj/kirana/pkg/migration"
)

// migrator loads config and opens the SQL database. Migrations only
// apply to the gorm drivers; mongo and memory need none.
func migrator() (*migration.Runner, func(), error) {
	if err := config.Load(); err != nil {
		return nil, nil, err
	}
	switch config.DatabaseDriver() {
	case "mongo", "memory":
		return nil, nil, errors.New("migrations only apply to SQL drivers")
	}
	if err := database.Connect(); err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := database.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return migration.New(database.DB), closeDB, nil
}

func printNames(verb string, names []string) {
	if len(names) == 0 {
		fmt.Println("Nothing to do.")
		return
	}
	for _, n := range names {
		fmt.Printf("%s: %s\n", verb, n)
	}
}

// kirana migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closeDB, err := migrator()
		if err != nil {
			return err
		}
		defer closeDB()

		names, err := m.Run(cmd.Context())
		printNames("Migrated", names)
		return err
	},
}

// kirana migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Roll back the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closeDB, err := migrator()
		if err != nil {
			return err
		}
		defer closeDB()

		names, err := m.Rollback(cmd.Context())
		printNames("Rolled back", names)
		return err
	},
}

// kirana migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closeDB, err := migrator()
		if err != nil {
			return err
		}
		defer closeDB()

		statuses, err := m.Status(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "RAN\tBATCH\tMIGRATION")
		for _, s := range statuses {
			ran, batch := "no", "-"
			if s.Ran {
				ran, batch = "yes", fmt.Sprint(s.Batch)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", ran, batch, s.Name)
		}
		return w.Flush()
	},
}

// kirana seed
var seedCmd = &cobra.Command{
	Use:   "seed [name...]",
	Short: "Run database seeders (all when none are named)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeDB, err := kernel.OpenStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()
		return seeders.RunAll(cmd.Context(), db, os.Stdout, args...)
	},
}

// kirana classify
var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Recompute the display type of every category",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeDB, err := kernel.OpenStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		report, err := classifier.New(db).Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%d categories: %d updated, %d unchanged, %d failed\n",
			report.Total, report.Updated, report.Unchanged, len(report.Failed))
		for id, reason := range report.Failed {
			fmt.Printf("  %s: %s\n", id, reason)
		}
		if len(report.Failed) > 0 {
			return fmt.Errorf("classify: %d categories not updated", len(report.Failed))
		}
		return nil
	},
}

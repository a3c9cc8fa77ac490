package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/categorytree"
	"github.com/pthm/categorytree/internal/cli"
)

var (
	migrateDB       string
	migrateFixtures bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Install the catalog schema",
	Long: `Create the category, attribute, product and URL rewrite tables.

Intended for development and tests; production catalogs are only read.
Existing tables and rows are kept.`,
	Example: `  # Install the schema
  cattree migrate --db postgres://localhost/catalog

  # Install the schema and the development catalog
  cattree migrate --db postgres://localhost/catalog --fixtures`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDB(ctx, migrateDB)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		m := categorytree.NewMigrator(db)
		if err := m.ApplySchema(ctx); err != nil {
			return cli.GeneralError("applying schema", err)
		}
		if !quiet {
			fmt.Println("Schema applied.")
		}

		if migrateFixtures {
			if err := m.LoadFixtures(ctx); err != nil {
				return cli.GeneralError("loading fixtures", err)
			}
			if !quiet {
				fmt.Println("Fixtures loaded.")
			}
		}
		return nil
	},
}

func init() {
	f := migrateCmd.Flags()
	f.StringVar(&migrateDB, "db", "", "database URL")
	f.BoolVar(&migrateFixtures, "fixtures", false, "also load the development catalog")
}

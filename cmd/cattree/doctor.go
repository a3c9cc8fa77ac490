package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm/categorytree/internal/cli"
	"github.com/pthm/categorytree/internal/doctor"
	"github.com/pthm/categorytree/internal/query"
)

var (
	doctorDB      string
	doctorVerbose bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks",
	Long:  `Check the catalog tables, the tree attributes and the consistency of stored paths and levels.`,
	Example: `  # Run health checks
  cattree doctor --db postgres://localhost/catalog

  # Run with verbose output
  cattree doctor --db postgres://localhost/catalog --verbose`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDB(ctx, doctorDB)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if !quiet {
			fmt.Println("cattree doctor - Health Check")
		}

		d := doctor.New(query.DBExecutor{DB: db}, cfg.Tree.GlobalRootID)
		report, err := d.Run(ctx)
		if err != nil {
			return cli.GeneralError("running doctor", err)
		}

		report.Print(os.Stdout, doctorVerbose)

		if report.HasErrors() {
			return cli.GeneralError("health checks failed", nil)
		}
		return nil
	},
}

func init() {
	f := doctorCmd.Flags()
	f.StringVar(&doctorDB, "db", "", "database URL")
	f.BoolVar(&doctorVerbose, "verbose", false, "show detailed output")
}

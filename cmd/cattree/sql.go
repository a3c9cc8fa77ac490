package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/categorytree"
	"github.com/pthm/categorytree/internal/cli"
)

var (
	sqlFlags requestFlags
	sqlDB    string
	sqlArgs  bool
)

var sqlCmd = &cobra.Command{
	Use:   "sql",
	Short: "Print the SQL for a selection",
	Long: `Print the statement a tree query would run, without running it.

Attribute metadata is still read from the database.`,
	Example: `  # Show the subtree query for a selection
  cattree sql --selection '{ categories { name children { name } } }' --root 2

  # Include bound arguments
  cattree sql --query menu.graphql --root 10 --root 11 --args`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := sqlFlags.resolve()
		if err != nil {
			return err
		}
		return runSQL(cmd, req)
	},
}

func init() {
	f := sqlCmd.Flags()
	sqlFlags.register(f)
	f.StringVar(&sqlDB, "db", "", "database URL")
	f.BoolVar(&sqlArgs, "args", false, "print bound arguments after the statement")
}

func runSQL(cmd *cobra.Command, req request) error {
	ctx := cmd.Context()

	db, err := openDB(ctx, sqlDB)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	provider, err := newProvider(ctx, db)
	if err != nil {
		return err
	}

	var q categorytree.Query
	if req.multiRoot() {
		q, err = provider.MultiRootSQL(ctx, req.selection, req.roots, req.store, req.searchCriteria(), req.attributes)
	} else {
		q, err = provider.SubtreeSQL(ctx, req.selection, req.roots[0], req.store, req.criteria, req.attributes)
	}
	if err != nil {
		return cli.QueryError("building query", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, q.SQL())
	if sqlArgs {
		for i, arg := range q.Args() {
			fmt.Fprintf(out, "-- $%d = %#v\n", i+1, arg)
		}
	}
	return nil
}

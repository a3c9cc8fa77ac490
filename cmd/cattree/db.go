package main

import (
	"context"
	"database/sql"

	"github.com/pthm/categorytree"
	"github.com/pthm/categorytree/internal/cli"
	"github.com/pthm/categorytree/internal/database"
)

// resolveDSN gets the database DSN from flag or config.
func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return "", cli.ConfigError("database configuration", err)
	}
	if dsn == "" {
		return "", cli.ConfigError("database URL is required (use --db or set in config)", nil)
	}
	return dsn, nil
}

// openDB connects with the configured driver.
func openDB(ctx context.Context, flagDSN string) (*sql.DB, error) {
	dsn, err := resolveDSN(flagDSN)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, database.Options{
		Driver:               cfg.Driver,
		URL:                  dsn,
		TraceQueryParameters: cfg.Database.TraceQueryParameters,
		MaxOpenConns:         cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, cli.DBConnectError("connecting to database", err)
	}
	return db, nil
}

// providerOptions maps the tree configuration to provider options.
func providerOptions() []categorytree.Option {
	return []categorytree.Option{
		categorytree.WithGlobalRootID(cfg.Tree.GlobalRootID),
		categorytree.WithMaxSelectionDepth(cfg.Tree.MaxSelectionDepth),
		categorytree.WithChildrenField(cfg.Tree.ChildrenField),
	}
}

// newProvider loads attribute metadata and builds a provider.
func newProvider(ctx context.Context, db *sql.DB) (*categorytree.Provider, error) {
	p, err := categorytree.NewProvider(ctx, db, providerOptions()...)
	if err != nil {
		if categorytree.IsNoCategoryTableErr(err) {
			return nil, cli.GeneralError("catalog schema not installed (run 'cattree migrate')", err)
		}
		return nil, cli.GeneralError("loading attribute metadata", err)
	}
	return p, nil
}

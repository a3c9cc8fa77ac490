package categorytree

import (
	"context"
	"database/sql"
	"fmt"

	treesql "github.com/pthm/categorytree/sql"
)

// Execer is the minimal interface for executing statements.
// It is implemented by *sql.DB, *sql.Tx, and *sql.Conn.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Migrator installs the catalog schema into PostgreSQL for development and
// tests. Production catalogs are owned by the storefront and are only read.
//
// The migrator is idempotent:
//
//	m := categorytree.NewMigrator(db)
//	if err := m.ApplySchema(ctx); err != nil { ... }
//	if err := m.LoadFixtures(ctx); err != nil { ... }
type Migrator struct {
	db Execer
}

// NewMigrator creates a new schema migrator.
// The Execer is typically *sql.DB but can be *sql.Tx for testing.
func NewMigrator(db Execer) *Migrator {
	return &Migrator{db: db}
}

// ApplySchema creates the category, attribute, product and URL rewrite
// tables if they do not exist.
func (m *Migrator) ApplySchema(ctx context.Context) error {
	return m.apply(ctx, "schema.sql", treesql.SchemaSQL)
}

// LoadFixtures inserts the development catalog. Existing rows are kept.
func (m *Migrator) LoadFixtures(ctx context.Context) error {
	return m.apply(ctx, "fixtures.sql", treesql.FixturesSQL)
}

// apply runs one script, inside a transaction when the handle supports it.
func (m *Migrator) apply(ctx context.Context, name, script string) error {
	if txer, ok := m.db.(interface {
		BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	}); ok {
		tx, err := txer.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, script); err != nil {
			return fmt.Errorf("applying %s: %w", name, err)
		}
		return tx.Commit()
	}

	if _, err := m.db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("applying %s: %w", name, err)
	}
	return nil
}

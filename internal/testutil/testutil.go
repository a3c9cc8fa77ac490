// Package testutil provides shared test utilities for categorytree
// integration tests.
//
// Tests get an isolated database with the catalog schema applied, copied
// from a template database on a single PostgreSQL container (or the server
// named by the environment, see GetDatabaseConfig):
//
//	db := testutil.DB(t)
//	catalog := testutil.NewCatalog(t, ctx, db).Attributes().Category("1/2", 0)
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	treesql "github.com/pthm/categorytree/sql"
)

const templateName = "categorytree_template"

// Singleton server state
var (
	serverOnce sync.Once
	serverDSN  string
	serverErr  error

	templateOnce sync.Once
	templateErr  error
)

// ensureServer returns the admin DSN of the configured server, starting a
// PostgreSQL container on first use when none is configured.
func ensureServer() (string, error) {
	serverOnce.Do(func() {
		if cfg := GetDatabaseConfig(); cfg.URL != "" {
			serverDSN = cfg.URL
			return
		}

		ctx := context.Background()
		container, err := postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("postgres"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithEnv(map[string]string{
				"POSTGRES_INITDB_ARGS": "--auth-host=trust",
			}),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			serverErr = fmt.Errorf("failed to start PostgreSQL container: %w", err)
			return
		}

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = container.Terminate(ctx)
			serverErr = fmt.Errorf("failed to get PostgreSQL connection string: %w", err)
			return
		}
		// Container is not stored - ryuk will handle cleanup automatically
		serverDSN = dsn
	})
	return serverDSN, serverErr
}

// ensureTemplate creates the template database with the catalog schema.
func ensureTemplate(adminDSN string) error {
	templateOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := exec(ctx, adminDSN, "DROP DATABASE IF EXISTS "+templateName); err != nil {
			templateErr = fmt.Errorf("drop stale template: %w", err)
			return
		}
		if err := exec(ctx, adminDSN, "CREATE DATABASE "+templateName); err != nil {
			templateErr = fmt.Errorf("create template database: %w", err)
			return
		}

		dsn, err := replaceDBName(adminDSN, templateName)
		if err != nil {
			templateErr = err
			return
		}
		if err := exec(ctx, dsn, treesql.SchemaSQL); err != nil {
			templateErr = fmt.Errorf("apply schema: %w", err)
			return
		}

		// Non-fatal: copying works without the template flag.
		_ = exec(ctx, adminDSN, fmt.Sprintf("ALTER DATABASE %s WITH is_template = true", templateName))
	})
	return templateErr
}

// DB returns a connection to a new database with the catalog schema applied
// and no rows. The database is dropped when the test completes.
func DB(tb testing.TB) *sql.DB {
	tb.Helper()

	adminDSN, err := ensureServer()
	require.NoError(tb, err, "failed to start PostgreSQL")
	require.NoError(tb, ensureTemplate(adminDSN), "failed to create template database")

	return open(tb, adminDSN, fmt.Sprintf("CREATE DATABASE %%s WITH TEMPLATE %s", templateName))
}

// EmptyDB returns a connection to a new database without the catalog
// schema.
func EmptyDB(tb testing.TB) *sql.DB {
	tb.Helper()

	adminDSN, err := ensureServer()
	require.NoError(tb, err, "failed to start PostgreSQL")

	return open(tb, adminDSN, "CREATE DATABASE %s")
}

// DSN returns the connection string of the database behind db, for tests
// that open their own connections. It is only known for databases created
// by this package.
func DSN(tb testing.TB, db *sql.DB) string {
	tb.Helper()
	dsn, ok := dsns.Load(db)
	require.True(tb, ok, "database was not created by testutil")
	return dsn.(string)
}

var dsns sync.Map

func open(tb testing.TB, adminDSN, createStmt string) *sql.DB {
	tb.Helper()
	ctx := context.Background()

	name := uniqueDBName("test")
	require.NoError(tb, exec(ctx, adminDSN, fmt.Sprintf(createStmt, name)), "failed to create test database")

	dsn, err := replaceDBName(adminDSN, name)
	require.NoError(tb, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(tb, err, "failed to connect to test database")
	require.NoError(tb, db.PingContext(ctx), "failed to ping test database")
	dsns.Store(db, dsn)

	tb.Cleanup(func() {
		dsns.Delete(db)
		_ = db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = exec(ctx, adminDSN, fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", name))
	})
	return db
}

func exec(ctx context.Context, dsn, stmt string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(ctx, stmt)
	return err
}

// uniqueDBName generates a unique database name with the given prefix.
func uniqueDBName(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

// replaceDBName replaces the database name in a postgres:// DSN.
func replaceDBName(dsn, name string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse DSN: %w", err)
	}
	u.Path = "/" + name
	return u.String(), nil
}

// Package database opens instrumented PostgreSQL handles for the CLI and
// integration tests.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	zerologadapter "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	_ "github.com/lib/pq" // registers the "postgres" driver
	"github.com/rs/zerolog"

	"github.com/pthm/categorytree/internal/logging"
)

// Supported drivers.
const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
)

// ErrUnknownDriver is returned by Open for drivers other than pgx and postgres.
var ErrUnknownDriver = errors.New("database: unknown driver")

// Options configures Open.
type Options struct {
	Driver string
	URL    string

	// TraceQueryParameters adds bound arguments to query spans (pgx only).
	TraceQueryParameters bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to PostgreSQL and verifies the connection. The pgx driver
// is instrumented with query logging and OpenTelemetry spans.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch opts.Driver {
	case "", DriverPgx:
		connConfig, err := ParseConfigWithInstrumentation(opts.URL, opts.TraceQueryParameters)
		if err != nil {
			return nil, fmt.Errorf("parse database url: %w", err)
		}
		db = stdlib.OpenDB(*connConfig)
	case DriverPostgres:
		db, err = sql.Open(DriverPostgres, opts.URL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// ParseConfigWithInstrumentation returns a pgx.ConnConfig that has been
// instrumented for observability.
func ParseConfigWithInstrumentation(url string, includeQueryParameters bool) (*pgx.ConnConfig, error) {
	connConfig, err := pgx.ParseConfig(url)
	if err != nil {
		return nil, err
	}

	ConfigurePGXLogger(connConfig)
	ConfigureOTELTracer(connConfig, includeQueryParameters)

	return connConfig, nil
}

// ConfigurePGXLogger routes pgx query logs through the global zerolog
// logger. Info events are logged at debug, and cancellations are never
// logged above debug.
func ConfigurePGXLogger(connConfig *pgx.ConnConfig) {
	levelMappingFn := func(logger tracelog.Logger) tracelog.LoggerFunc {
		return func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
			if level == tracelog.LogLevelInfo {
				level = tracelog.LogLevelDebug
			}

			truncateLargeSQL(data)

			if errArg, ok := data["err"]; ok {
				if err, ok := errArg.(error); ok && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
					level = tracelog.LogLevelDebug
				}
			}

			logger.Log(ctx, level, msg, data)
		}
	}

	l := zerologadapter.NewLogger(logging.Logger, zerologadapter.WithoutPGXModule(), zerologadapter.WithSubDictionary("pgx"),
		zerologadapter.WithContextFunc(func(ctx context.Context, z zerolog.Context) zerolog.Context {
			if logger := zerolog.Ctx(ctx); logger != nil && logger.GetLevel() != zerolog.Disabled {
				return logger.With()
			}
			return z
		}))
	addTracer(connConfig, &tracelog.TraceLog{Logger: levelMappingFn(l), LogLevel: tracelog.LogLevelInfo})
}

// truncateLargeSQL shortens long statements and argument lists in log data,
// in place. Multi-root queries with many roots otherwise flood the log.
func truncateLargeSQL(data map[string]any) {
	const (
		maxSQLLen     = 350
		maxSQLArgsLen = 50
	)

	if sqlString, ok := data["sql"].(string); ok && len(sqlString) > maxSQLLen {
		data["sql"] = sqlString[:maxSQLLen] + "..."
	}
	if argsSlice, ok := data["args"].([]any); ok && len(argsSlice) > maxSQLArgsLen {
		data["args"] = argsSlice[:maxSQLArgsLen]
	}
}

// ConfigureOTELTracer adds OTEL tracing to a pgx.ConnConfig.
func ConfigureOTELTracer(connConfig *pgx.ConnConfig, includeQueryParameters bool) {
	options := []otelpgx.Option{
		otelpgx.WithTrimSQLInSpanName(),
	}
	if includeQueryParameters {
		options = append(options, otelpgx.WithIncludeQueryParameters())
	}
	addTracer(connConfig, otelpgx.NewTracer(options...))
}

func addTracer(connConfig *pgx.ConnConfig, tracer pgx.QueryTracer) {
	composed, ok := connConfig.Tracer.(*ComposedTracer)
	if !ok {
		composed = &ComposedTracer{}
		if connConfig.Tracer != nil {
			composed.Tracers = append(composed.Tracers, connConfig.Tracer)
		}
		connConfig.Tracer = composed
	}
	composed.Tracers = append(composed.Tracers, tracer)
}

// ComposedTracer fans pgx query trace events out to several tracers.
type ComposedTracer struct {
	Tracers []pgx.QueryTracer
}

func (m *ComposedTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	for _, t := range m.Tracers {
		ctx = t.TraceQueryStart(ctx, conn, data)
	}
	return ctx
}

func (m *ComposedTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	for _, t := range m.Tracers {
		t.TraceQueryEnd(ctx, conn, data)
	}
}

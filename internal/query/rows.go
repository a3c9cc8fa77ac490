package query

import (
	"context"
	"database/sql"
	"iter"
)

// Rows is the subset of *sql.Rows read by Stream.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Executor runs a statement and returns its rows.
type Executor interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Queryer is implemented by *sql.DB, *sql.Tx and *sql.Conn.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DBExecutor adapts a database/sql handle to Executor.
type DBExecutor struct {
	DB Queryer
}

// Query implements Executor.
func (e DBExecutor) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := e.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Stream executes q when the sequence is first pulled and yields one scanned
// value per row. Rows are closed when the sequence ends or the consumer
// stops early. Errors are yielded once and end the sequence.
func Stream[T any](ctx context.Context, exec Executor, q Query, scan func(Rows) (T, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		rows, err := exec.Query(ctx, q.sql, q.args...)
		if err != nil {
			yield(zero, err)
			return
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			v, err := scan(rows)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, err)
		}
	}
}

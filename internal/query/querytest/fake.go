// Package querytest provides an in-memory query.Executor for unit tests.
package querytest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/pthm/categorytree/internal/query"
)

// Call records one executed statement.
type Call struct {
	SQL  string
	Args []any
}

// Executor records statements and answers them with Respond. A nil Respond
// returns empty rows.
type Executor struct {
	Respond func(sql string, args []any) (*Rows, error)

	mu    sync.Mutex
	calls []Call
}

// Query implements query.Executor.
func (e *Executor) Query(_ context.Context, stmt string, args ...any) (query.Rows, error) {
	e.mu.Lock()
	e.calls = append(e.calls, Call{SQL: stmt, Args: args})
	e.mu.Unlock()

	if e.Respond == nil {
		return NewRows(), nil
	}
	rows, err := e.Respond(stmt, args)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Calls returns the recorded statements.
func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Rows is a canned result set.
type Rows struct {
	Data [][]any
	// FinalErr is reported by Err once all rows are consumed.
	FinalErr error

	next   int
	closed bool
}

// NewRows returns rows yielding data in order.
func NewRows(data ...[]any) *Rows {
	return &Rows{Data: data}
}

func (r *Rows) Next() bool {
	if r.closed || r.next >= len(r.Data) {
		return false
	}
	r.next++
	return true
}

// Scan assigns the current row to dest. Values are converted to the
// destination type; sql.Scanner destinations receive the raw value.
func (r *Rows) Scan(dest ...any) error {
	if r.next == 0 || r.closed {
		return errors.New("querytest: Scan called without a current row")
	}
	row := r.Data[r.next-1]
	if len(dest) != len(row) {
		return fmt.Errorf("querytest: expected %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		if err := assign(d, row[i]); err != nil {
			return fmt.Errorf("querytest: column %d: %w", i, err)
		}
	}
	return nil
}

func (r *Rows) Err() error {
	return r.FinalErr
}

func (r *Rows) Close() error {
	r.closed = true
	return nil
}

// Closed reports whether Close was called.
func (r *Rows) Closed() bool {
	return r.closed
}

func assign(dest, val any) error {
	if s, ok := dest.(sql.Scanner); ok {
		return s.Scan(val)
	}
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return errors.New("destination is not a non-nil pointer")
	}
	target := dv.Elem()
	if val == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	v := reflect.ValueOf(val)
	switch {
	case v.Type().AssignableTo(target.Type()):
		target.Set(v)
	case v.Type().ConvertibleTo(target.Type()):
		target.Set(v.Convert(target.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", val, target.Type())
	}
	return nil
}

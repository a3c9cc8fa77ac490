// Package level looks up the stored tree level of a category.
package level

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/pthm/categorytree/internal/query"
	"github.com/pthm/categorytree/internal/treeerr"
)

// Calculator resolves category levels.
type Calculator struct {
	exec         query.Executor
	table        string
	idColumn     string
	globalRootID int64
}

// NewCalculator creates a Calculator reading table. The global root is
// level 0 and is never looked up.
func NewCalculator(exec query.Executor, table, idColumn string, globalRootID int64) *Calculator {
	return &Calculator{
		exec:         exec,
		table:        table,
		idColumn:     idColumn,
		globalRootID: globalRootID,
	}
}

// Level returns the level of id. Unknown ids fail with ErrCategoryNotFound.
func (c *Calculator) Level(ctx context.Context, id int64) (int, error) {
	if id == c.globalRootID {
		return 0, nil
	}

	stmt, args, err := sq.Select("level").
		From(c.table).
		Where(sq.Eq{c.idColumn: id}).
		Limit(1).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build level query: %w", err)
	}

	rows, err := c.exec.Query(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: id %d", treeerr.ErrCategoryNotFound, id)
	}
	var level int
	if err := rows.Scan(&level); err != nil {
		return 0, err
	}
	return level, nil
}

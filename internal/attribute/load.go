package attribute

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Querier is implemented by *sql.DB, *sql.Tx and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Load reads the attribute metadata of entityType from eav_attribute.
func Load(ctx context.Context, q Querier, entityType string) ([]Attribute, error) {
	stmt, args, err := sq.Select("attribute_id", "attribute_code", "backend_type").
		From("eav_attribute").
		Where(sq.Eq{"entity_type": entityType}).
		OrderBy("attribute_id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build attribute query: %w", err)
	}

	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var attrs []Attribute
	for rows.Next() {
		var (
			a       Attribute
			backend string
		)
		if err := rows.Scan(&a.ID, &a.Code, &backend); err != nil {
			return nil, err
		}
		a.Backend = Backend(backend)
		a.Kind = KindEAV
		attrs = append(attrs, a)
	}
	return attrs, rows.Err()
}

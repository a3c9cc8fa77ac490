package sqldsl

import "strings"

// TableExpr is the interface for table expressions in FROM and JOIN clauses.
type TableExpr interface {
	// TableSql returns the SQL for use in FROM/JOIN clauses.
	TableSql() (string, []any, error)
	// TableAlias returns the alias if any (empty string if none).
	TableAlias() string
}

// TableRef wraps a raw table name for use as a TableExpr.
type TableRef struct {
	Name  string
	Alias string
}

// TableSql implements TableExpr.
func (t TableRef) TableSql() (string, []any, error) {
	if t.Alias != "" {
		return t.Name + " AS " + t.Alias, nil, nil
	}
	return t.Name, nil, nil
}

// TableAlias implements TableExpr.
func (t TableRef) TableAlias() string {
	return t.Alias
}

// TableAs creates a table reference with an alias.
func TableAs(name, alias string) TableRef {
	return TableRef{Name: name, Alias: alias}
}

// Subquery is a derived table. Lateral subqueries may reference columns of
// the tables joined before them.
type Subquery struct {
	Query   Expr
	Alias   string
	Lateral bool
}

// TableSql implements TableExpr.
func (s Subquery) TableSql() (string, []any, error) {
	q, args, err := s.Query.ToSql()
	if err != nil {
		return "", nil, err
	}
	out := "(" + q + ") AS " + s.Alias
	if s.Lateral {
		out = "LATERAL " + out
	}
	return out, args, nil
}

// TableAlias implements TableExpr.
func (s Subquery) TableAlias() string {
	return s.Alias
}

// JoinClause is a single JOIN. It is a Sqlizer so it can be passed to
// squirrel's JoinClause.
type JoinClause struct {
	Type  string // "INNER", "LEFT", etc.
	Table TableExpr
	On    Expr
}

// ToSql renders the join.
func (j JoinClause) ToSql() (string, []any, error) {
	tableSQL, args, err := j.Table.TableSql()
	if err != nil {
		return "", nil, err
	}

	// Don't add "JOIN" if Type already contains it
	joinKeyword := j.Type + " JOIN"
	if strings.Contains(j.Type, "JOIN") {
		joinKeyword = j.Type
	}

	if j.On == nil {
		return joinKeyword + " " + tableSQL + " ON TRUE", args, nil
	}
	on, onArgs, err := j.On.ToSql()
	if err != nil {
		return "", nil, err
	}
	return joinKeyword + " " + tableSQL + " ON " + on, append(args, onArgs...), nil
}

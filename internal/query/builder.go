// Package query holds the mutable query specification used while planning a
// category tree query and the immutable Query it finalizes into.
//
// A Builder is created per call, mutated only while joins and predicates are
// planned, and finalized exactly once. Columns and joins are keyed by alias
// so planning steps can request the same attribute repeatedly.
package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/pthm/categorytree/internal/sqlgen/sqldsl"
)

// JoinType is the SQL join kind.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
)

type column struct {
	alias string
	expr  sqldsl.Expr
}

// Builder accumulates the select list, joins and predicates of one query.
type Builder struct {
	table     sqldsl.TableRef
	ctes      []sqldsl.CTEDef
	distinct  bool
	columns   []column
	colIndex  map[string]struct{}
	joins     []sqldsl.JoinClause
	joinIndex map[string]struct{}
	where     []sqldsl.Expr
	include   []sqldsl.Expr
	filters   []sqldsl.Expr
	orderBy   []sqldsl.Expr
	finalized bool
}

// NewBuilder starts a query over table, referenced as alias.
func NewBuilder(table, alias string) *Builder {
	return &Builder{
		table:     sqldsl.TableAs(table, alias),
		colIndex:  make(map[string]struct{}),
		joinIndex: make(map[string]struct{}),
	}
}

// Alias returns the main table's alias.
func (b *Builder) Alias() string {
	return b.table.Alias
}

// Table returns the main table's name.
func (b *Builder) Table() string {
	return b.table.Name
}

// Col returns a column of the main table.
func (b *Builder) Col(name string) sqldsl.Col {
	return sqldsl.Col{Table: b.table.Alias, Column: name}
}

func (b *Builder) mustBeOpen() {
	if b.finalized {
		panic("query: builder mutated after Finalize")
	}
}

// HasColumn reports whether alias is already in the select list.
func (b *Builder) HasColumn(alias string) bool {
	_, ok := b.colIndex[alias]
	return ok
}

// AddColumn selects expr as alias. It returns false, leaving the builder
// unchanged, when alias is already selected.
func (b *Builder) AddColumn(alias string, expr sqldsl.Expr) bool {
	b.mustBeOpen()
	if b.HasColumn(alias) {
		return false
	}
	b.colIndex[alias] = struct{}{}
	b.columns = append(b.columns, column{alias: alias, expr: expr})
	return true
}

// Columns returns the selected aliases in select-list order.
func (b *Builder) Columns() []string {
	out := make([]string, len(b.columns))
	for i, c := range b.columns {
		out[i] = c.alias
	}
	return out
}

// HasJoin reports whether a join with alias exists.
func (b *Builder) HasJoin(alias string) bool {
	_, ok := b.joinIndex[alias]
	return ok
}

// AddJoin joins table on the given condition. Joins are keyed by the table
// alias; a second join with the same alias is ignored and false returned.
// A nil condition renders ON TRUE.
func (b *Builder) AddJoin(kind JoinType, table sqldsl.TableExpr, on sqldsl.Expr) bool {
	b.mustBeOpen()
	alias := table.TableAlias()
	if b.HasJoin(alias) {
		return false
	}
	b.joinIndex[alias] = struct{}{}
	b.joins = append(b.joins, sqldsl.JoinClause{Type: string(kind), Table: table, On: on})
	return true
}

// With adds a common table expression.
func (b *Builder) With(cte sqldsl.CTEDef) {
	b.mustBeOpen()
	b.ctes = append(b.ctes, cte)
}

// Distinct makes the main SELECT distinct.
func (b *Builder) Distinct() {
	b.mustBeOpen()
	b.distinct = true
}

// Where adds predicates to the base condition. All base predicates are
// AND-ed together.
func (b *Builder) Where(preds ...sqldsl.Expr) {
	b.mustBeOpen()
	for _, p := range preds {
		if p != nil {
			b.where = append(b.where, p)
		}
	}
}

// IncludeAlways OR-extends the base condition so rows matching pred are
// returned even when they fail it. Filters still apply to them.
func (b *Builder) IncludeAlways(pred sqldsl.Expr) {
	b.mustBeOpen()
	if pred != nil {
		b.include = append(b.include, pred)
	}
}

// Filter adds predicates that every returned row must satisfy, including
// rows admitted through IncludeAlways.
func (b *Builder) Filter(preds ...sqldsl.Expr) {
	b.mustBeOpen()
	for _, p := range preds {
		if p != nil {
			b.filters = append(b.filters, p)
		}
	}
}

// OrderBy appends ORDER BY terms.
func (b *Builder) OrderBy(terms ...sqldsl.Expr) {
	b.mustBeOpen()
	b.orderBy = append(b.orderBy, terms...)
}

// predicate renders ((base) OR include) AND filters.
func (b *Builder) predicate() sqldsl.Expr {
	var cond sqldsl.Expr
	if len(b.where) > 0 {
		cond = sqldsl.And(b.where...)
	}
	if len(b.include) > 0 {
		cond = sqldsl.Or(append([]sqldsl.Expr{cond}, b.include...)...)
	}
	if len(b.filters) > 0 {
		cond = sqldsl.And(append([]sqldsl.Expr{cond}, b.filters...)...)
	}
	return cond
}

// Finalize renders the query once, rebinding placeholders to $n. The
// builder may not be mutated afterwards.
func (b *Builder) Finalize() (Query, error) {
	b.mustBeOpen()
	b.finalized = true

	if len(b.columns) == 0 {
		return Query{}, fmt.Errorf("query: no columns selected")
	}

	from, _, err := b.table.TableSql()
	if err != nil {
		return Query{}, err
	}
	sel := sq.StatementBuilder.Select().From(from)
	if b.distinct {
		sel = sel.Distinct()
	}
	if len(b.ctes) > 0 {
		sel = sel.PrefixExpr(sqldsl.With{CTEs: b.ctes})
	}
	for _, c := range b.columns {
		sel = sel.Column(sqldsl.Alias{Expr: c.expr, Name: pgx.Identifier{c.alias}.Sanitize()})
	}
	for _, j := range b.joins {
		sel = sel.JoinClause(j)
	}
	if cond := b.predicate(); cond != nil {
		sel = sel.Where(cond)
	}
	for _, o := range b.orderBy {
		sel = sel.OrderByClause(o)
	}

	raw, args, err := sel.ToSql()
	if err != nil {
		return Query{}, fmt.Errorf("query: render: %w", err)
	}
	stmt, err := sq.Dollar.ReplacePlaceholders(raw)
	if err != nil {
		return Query{}, fmt.Errorf("query: bind placeholders: %w", err)
	}
	return Query{sql: stmt, args: args, columns: b.Columns()}, nil
}

// Query is a finalized, immutable statement.
type Query struct {
	sql     string
	args    []any
	columns []string
}

// SQL returns the statement text with $n placeholders.
func (q Query) SQL() string {
	return q.sql
}

// Args returns a copy of the bound arguments.
func (q Query) Args() []any {
	return append([]any(nil), q.args...)
}

// Columns returns the result column aliases in order.
func (q Query) Columns() []string {
	return append([]string(nil), q.columns...)
}

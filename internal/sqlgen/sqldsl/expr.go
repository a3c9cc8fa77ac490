package sqldsl

import (
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Expr is the interface that all SQL expression types implement.
type Expr = sq.Sqlizer

// Col represents a table column reference (e.g., e.path).
type Col struct {
	Table  string
	Column string
}

// String renders the qualified column name.
func (c Col) String() string {
	if c.Table == "" {
		return c.Column
	}
	return c.Table + "." + c.Column
}

// ToSql renders the column reference.
func (c Col) ToSql() (string, []any, error) {
	return c.String(), nil, nil
}

// Lit represents a literal string value (auto-quoted with single quotes).
type Lit string

// ToSql renders the literal with single quotes.
func (l Lit) ToSql() (string, []any, error) {
	// Escape single quotes by doubling them
	escaped := strings.ReplaceAll(string(l), "'", "''")
	return "'" + escaped + "'", nil, nil
}

// Raw is an escape hatch for arbitrary SQL expressions.
type Raw string

// ToSql renders the raw SQL as-is.
func (r Raw) ToSql() (string, []any, error) {
	return string(r), nil, nil
}

// Int represents an integer literal.
type Int int64

// ToSql renders the integer.
func (i Int) ToSql() (string, []any, error) {
	return strconv.FormatInt(int64(i), 10), nil, nil
}

// Arg is a bound parameter.
type Arg struct {
	Value any
}

// ToSql renders a placeholder and carries the value as its argument.
func (a Arg) ToSql() (string, []any, error) {
	return "?", []any{a.Value}, nil
}

// Bind creates an Arg.
func Bind(v any) Arg {
	return Arg{Value: v}
}

// Func represents a SQL function call.
type Func struct {
	Name string
	Args []Expr
}

// ToSql renders the function call.
func (f Func) ToSql() (string, []any, error) {
	parts, args, err := renderAll(f.Args)
	if err != nil {
		return "", nil, err
	}
	return f.Name + "(" + strings.Join(parts, ", ") + ")", args, nil
}

// Coalesce creates a COALESCE call over the given expressions.
func Coalesce(exprs ...Expr) Func {
	return Func{Name: "COALESCE", Args: filterNilExprs(exprs)}
}

// Distinct prefixes an aggregate argument with DISTINCT.
type Distinct struct {
	Expr Expr
}

// ToSql renders DISTINCT expr.
func (d Distinct) ToSql() (string, []any, error) {
	s, args, err := d.Expr.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "DISTINCT " + s, args, nil
}

// Alias wraps an expression with an alias (expr AS alias).
type Alias struct {
	Expr Expr
	Name string
}

// ToSql renders the aliased expression.
func (a Alias) ToSql() (string, []any, error) {
	s, args, err := a.Expr.ToSql()
	if err != nil {
		return "", nil, err
	}
	return s + " AS " + a.Name, args, nil
}

// Paren wraps an expression in parentheses. Subqueries are rendered through
// Paren as well.
type Paren struct {
	Expr Expr
}

// ToSql renders the parenthesized expression.
func (p Paren) ToSql() (string, []any, error) {
	s, args, err := p.Expr.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "(" + s + ")", args, nil
}

// Concat represents SQL string concatenation (||).
type Concat struct {
	Parts []Expr
}

// ToSql renders the concatenation.
func (c Concat) ToSql() (string, []any, error) {
	if len(c.Parts) == 0 {
		return "''", nil, nil
	}
	parts, args, err := renderAll(c.Parts)
	if err != nil {
		return "", nil, err
	}
	return strings.Join(parts, " || "), args, nil
}

// Ordered is an ORDER BY term.
type Ordered struct {
	Expr Expr
	Desc bool
}

// ToSql renders expr ASC|DESC.
func (o Ordered) ToSql() (string, []any, error) {
	s, args, err := o.Expr.ToSql()
	if err != nil {
		return "", nil, err
	}
	if o.Desc {
		return s + " DESC", args, nil
	}
	return s + " ASC", args, nil
}

// Ident sanitizes an identifier for use in SQL.
// Replaces non-alphanumeric characters with underscores.
func Ident(name string) string {
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
	}
	return result.String()
}

func renderAll(exprs []Expr) ([]string, []any, error) {
	parts := make([]string, 0, len(exprs))
	var args []any
	for _, e := range exprs {
		s, a, err := e.ToSql()
		if err != nil {
			return nil, nil, err
		}
		parts = append(parts, s)
		args = append(args, a...)
	}
	return parts, args, nil
}

package sqldsl

import (
	"strings"
)

func binary(left Expr, op string, right Expr) (string, []any, error) {
	parts, args, err := renderAll([]Expr{left, right})
	if err != nil {
		return "", nil, err
	}
	return parts[0] + " " + op + " " + parts[1], args, nil
}

// Comparison operators

// Eq represents an equality comparison (=).
type Eq struct {
	Left  Expr
	Right Expr
}

func (e Eq) ToSql() (string, []any, error) { return binary(e.Left, "=", e.Right) }

// Ne represents a not-equal comparison (<>).
type Ne struct {
	Left  Expr
	Right Expr
}

func (n Ne) ToSql() (string, []any, error) { return binary(n.Left, "<>", n.Right) }

// Lt represents a less-than comparison (<).
type Lt struct {
	Left  Expr
	Right Expr
}

func (l Lt) ToSql() (string, []any, error) { return binary(l.Left, "<", l.Right) }

// Gt represents a greater-than comparison (>).
type Gt struct {
	Left  Expr
	Right Expr
}

func (g Gt) ToSql() (string, []any, error) { return binary(g.Left, ">", g.Right) }

// Lte represents a less-than-or-equal comparison (<=).
type Lte struct {
	Left  Expr
	Right Expr
}

func (l Lte) ToSql() (string, []any, error) { return binary(l.Left, "<=", l.Right) }

// Gte represents a greater-than-or-equal comparison (>=).
type Gte struct {
	Left  Expr
	Right Expr
}

func (g Gte) ToSql() (string, []any, error) { return binary(g.Left, ">=", g.Right) }

// Like represents a LIKE pattern match.
type Like struct {
	Expr    Expr
	Pattern Expr
}

func (l Like) ToSql() (string, []any, error) { return binary(l.Expr, "LIKE", l.Pattern) }

// Regex represents a POSIX regular expression match (~).
type Regex struct {
	Expr    Expr
	Pattern Expr
}

func (r Regex) ToSql() (string, []any, error) { return binary(r.Expr, "~", r.Pattern) }

// Arithmetic operators

// Add represents addition (+).
type Add struct {
	Left  Expr
	Right Expr
}

func (a Add) ToSql() (string, []any, error) { return binary(a.Left, "+", a.Right) }

// Sub represents subtraction (-).
type Sub struct {
	Left  Expr
	Right Expr
}

func (s Sub) ToSql() (string, []any, error) { return binary(s.Left, "-", s.Right) }

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// In represents an IN clause over bound values.
type In struct {
	Expr   Expr
	Values []any
}

func (i In) ToSql() (string, []any, error) {
	if len(i.Values) == 0 {
		return "FALSE", nil, nil
	}
	s, args, err := i.Expr.ToSql()
	if err != nil {
		return "", nil, err
	}
	return s + " IN (" + placeholders(len(i.Values)) + ")", append(args, i.Values...), nil
}

// NotIn represents a NOT IN clause over bound values.
type NotIn struct {
	Expr   Expr
	Values []any
}

func (n NotIn) ToSql() (string, []any, error) {
	if len(n.Values) == 0 {
		return "TRUE", nil, nil
	}
	s, args, err := n.Expr.ToSql()
	if err != nil {
		return "", nil, err
	}
	return s + " NOT IN (" + placeholders(len(n.Values)) + ")", append(args, n.Values...), nil
}

// Logical operators

// filterNilExprs removes nil expressions from the slice.
func filterNilExprs(exprs []Expr) []Expr {
	filtered := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// joinExprs renders expressions joined by a separator, wrapped in parentheses if more than one.
func joinExprs(exprs []Expr, sep, emptyVal string) (string, []any, error) {
	switch len(exprs) {
	case 0:
		return emptyVal, nil, nil
	case 1:
		return exprs[0].ToSql()
	default:
		parts, args, err := renderAll(exprs)
		if err != nil {
			return "", nil, err
		}
		return "(" + strings.Join(parts, sep) + ")", args, nil
	}
}

// AndExpr represents a logical AND of multiple expressions.
type AndExpr struct {
	Exprs []Expr
}

func (a AndExpr) ToSql() (string, []any, error) { return joinExprs(a.Exprs, " AND ", "TRUE") }

// And creates an AND expression from multiple expressions.
func And(exprs ...Expr) AndExpr {
	return AndExpr{Exprs: filterNilExprs(exprs)}
}

// OrExpr represents a logical OR of multiple expressions.
type OrExpr struct {
	Exprs []Expr
}

func (o OrExpr) ToSql() (string, []any, error) { return joinExprs(o.Exprs, " OR ", "FALSE") }

// Or creates an OR expression from multiple expressions.
func Or(exprs ...Expr) OrExpr {
	return OrExpr{Exprs: filterNilExprs(exprs)}
}

// NotExpr represents a logical NOT of an expression.
type NotExpr struct {
	Expr Expr
}

func (n NotExpr) ToSql() (string, []any, error) {
	s, args, err := n.Expr.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + s + ")", args, nil
}

// Not creates a NOT expression.
func Not(expr Expr) NotExpr { return NotExpr{Expr: expr} }

// IsNull represents IS NULL check.
type IsNull struct {
	Expr Expr
}

func (i IsNull) ToSql() (string, []any, error) {
	s, args, err := i.Expr.ToSql()
	if err != nil {
		return "", nil, err
	}
	return s + " IS NULL", args, nil
}

// IsNotNull represents IS NOT NULL check.
type IsNotNull struct {
	Expr Expr
}

func (i IsNotNull) ToSql() (string, []any, error) {
	s, args, err := i.Expr.ToSql()
	if err != nil {
		return "", nil, err
	}
	return s + " IS NOT NULL", args, nil
}

// Exists represents an EXISTS subquery.
type Exists struct {
	Query Expr
}

func (e Exists) ToSql() (string, []any, error) {
	s, args, err := e.Query.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "EXISTS (" + s + ")", args, nil
}

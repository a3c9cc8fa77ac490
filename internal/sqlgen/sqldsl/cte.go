package sqldsl

import "strings"

// CTEDef represents a single Common Table Expression definition.
type CTEDef struct {
	Name    string   // CTE name (e.g., "matched")
	Columns []string // Optional column names
	Query   Expr     // The CTE query body
}

// ToSql renders the CTE definition as "name [(columns)] AS (query)".
func (c CTEDef) ToSql() (string, []any, error) {
	body, args, err := c.Query.ToSql()
	if err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	sb.WriteString(c.Name)
	if len(c.Columns) > 0 {
		sb.WriteString("(")
		sb.WriteString(strings.Join(c.Columns, ", "))
		sb.WriteString(")")
	}
	sb.WriteString(" AS (")
	sb.WriteString(body)
	sb.WriteString(")")
	return sb.String(), args, nil
}

// With renders the WITH prefix for one or more CTEs. The final query is not
// part of it; attach it with squirrel's PrefixExpr.
//
// Example:
//
//	With{CTEs: []CTEDef{{Name: "matched", Query: sub}}}
//
// Renders:
//
//	WITH matched AS (<sub>)
type With struct {
	Recursive bool
	CTEs      []CTEDef
}

// ToSql renders the WITH clause. An empty With renders nothing.
func (w With) ToSql() (string, []any, error) {
	if len(w.CTEs) == 0 {
		return "", nil, nil
	}
	defs := make([]Expr, len(w.CTEs))
	for i, c := range w.CTEs {
		defs[i] = c
	}
	parts, args, err := renderAll(defs)
	if err != nil {
		return "", nil, err
	}
	keyword := "WITH "
	if w.Recursive {
		keyword = "WITH RECURSIVE "
	}
	return keyword + strings.Join(parts, ", "), args, nil
}

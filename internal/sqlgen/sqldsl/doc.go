// Package sqldsl provides typed building blocks for the category tree queries.
//
// # Overview
//
// Rather than concatenating SQL strings, callers compose small expression
// values. Every type implements squirrel's Sqlizer (aliased here as Expr), so
// expressions can be handed straight to a squirrel SelectBuilder as columns,
// join clauses, WHERE predicates or ORDER BY terms.
//
// Values that come from callers (ids, levels, store ids, regex patterns) are
// always bound as placeholders through Arg; only identifiers and fixed
// literals are rendered inline.
//
// # Expression Types
//
// Basic expressions:
//
//	Col{Table: "e", Column: "path"}   // Column reference: e.path
//	Lit("category")                   // String literal: 'category'
//	Int(1)                            // Integer literal: 1
//	Arg{Value: 42}                    // Bound parameter: ?
//	Raw("CURRENT_TIMESTAMP")          // Raw SQL (escape hatch)
//	Coalesce(a, b)                    // COALESCE(a, b)
//
// Operators:
//
//	Eq{Left: col, Right: Arg{Value: 1}}   // col = ?
//	In{Expr: col, Values: []any{1, 2}}     // col IN (?, ?)
//	And(expr1, expr2)                      // (expr1 AND expr2)
//	Or(expr1, expr2)                       // (expr1 OR expr2)
//	Regex{Expr: col, Pattern: arg}         // col ~ ?
//
// Tree predicates:
//
//	PathPattern(rootID, globalRootID)      // regex for strict descendants
//	LevelBand(col, level, depth)           // (col > ? AND col <= ?)
//	DescendantOrSelf{Path: p, Base: b}     // (p = b OR p LIKE b || '/%')
//	LeftFilter(expr, 1)                    // (expr = ? OR expr IS NULL)
//
// # Statement Types
//
// Joins and common table expressions are Sqlizers as well:
//
//	JoinClause{Type: "LEFT", Table: TableAs("t", "a"), On: cond}
//	With{CTEs: []CTEDef{{Name: "matched", Query: sub}}}
//
// With renders only the WITH prefix; it is attached to the main SELECT
// through squirrel's PrefixExpr.
package sqldsl

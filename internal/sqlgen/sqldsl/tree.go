package sqldsl

import "strconv"

// PathPattern returns the regular expression that matches the path of every
// strict descendant of rootID. The global root is the first path segment, so
// its pattern is anchored at the start; any other root is matched as an
// interior segment.
func PathPattern(rootID, globalRootID int64) string {
	id := strconv.FormatInt(rootID, 10)
	if rootID == globalRootID {
		return "^" + id + "/[/0-9]*$"
	}
	return "/" + id + "/[/0-9]*$"
}

// PathMatches is path ~ pattern with the pattern bound as a parameter.
func PathMatches(path Expr, pattern string) Regex {
	return Regex{Expr: path, Pattern: Bind(pattern)}
}

// LevelBand restricts level to the rows strictly below rootLevel and at most
// depth-1 levels beneath it.
func LevelBand(level Expr, rootLevel, depth int) AndExpr {
	return And(
		Gt{Left: level, Right: Bind(rootLevel)},
		Lte{Left: level, Right: Bind(rootLevel + depth - 1)},
	)
}

// DescendantOrSelf matches Path when it equals Base or extends it by at least
// one segment.
type DescendantOrSelf struct {
	Path Expr
	Base Expr
}

func (d DescendantOrSelf) ToSql() (string, []any, error) {
	return Or(
		Eq{Left: d.Path, Right: d.Base},
		Like{Expr: d.Path, Pattern: Concat{Parts: []Expr{d.Base, Lit("/%")}}},
	).ToSql()
}

// DirectChildOf matches a row one level beneath the parent path.
type DirectChildOf struct {
	Path        Expr
	Level       Expr
	ParentPath  Expr
	ParentLevel Expr
}

func (d DirectChildOf) ToSql() (string, []any, error) {
	return And(
		Like{Expr: d.Path, Pattern: Concat{Parts: []Expr{d.ParentPath, Lit("/%")}}},
		Eq{Left: d.Level, Right: Add{Left: d.ParentLevel, Right: Int(1)}},
	).ToSql()
}

// LeftFilter keeps rows where expr equals value or has no value at all.
// Attributes joined with LEFT JOIN are NULL when the node never had them set.
func LeftFilter(expr Expr, value any) OrExpr {
	return Or(
		Eq{Left: expr, Right: Bind(value)},
		IsNull{Expr: expr},
	)
}

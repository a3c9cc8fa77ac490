// Package treequery plans the two category tree query shapes.
//
// A subtree query returns one root and its active descendants down to the
// requested depth. A multi-root query returns the union of several such
// subtrees with each node exactly once. Both select the core columns, the
// anchor flag and every attribute named in the selection, and order rows by
// level ascending then position descending.
package treequery

import (
	"context"
	"errors"
	"fmt"
	"slices"

	sq "github.com/Masterminds/squirrel"

	"github.com/pthm/categorytree/internal/joiner"
	"github.com/pthm/categorytree/internal/query"
	"github.com/pthm/categorytree/internal/selection"
	"github.com/pthm/categorytree/internal/sqlgen/sqldsl"
	"github.com/pthm/categorytree/internal/treeerr"
)

// DepthOffset excludes the root's own level from the descendant band.
const DepthOffset = 1

// Core columns, selected first and in this order by every query.
const (
	ColID       = "id"
	ColParentID = "parent_id"
	ColPath     = "path"
	ColLevel    = "level"
	ColPosition = "position"
	ColIsAnchor = "is_anchor"
)

// CoreColumns lists the core column aliases in select order.
var CoreColumns = []string{ColID, ColParentID, ColPath, ColLevel, ColPosition, ColIsAnchor}

const (
	entityAlias  = "e"
	matchedCTE   = "matched"
	isActiveAttr = "is_active"
)

// ErrNoRoots is returned when a multi-root query is planned without roots.
var ErrNoRoots = errors.New("categorytree: no root ids")

// LevelCalculator resolves the stored level of a category.
type LevelCalculator interface {
	Level(ctx context.Context, id int64) (int, error)
}

// Config describes the category table.
type Config struct {
	Table        string
	IDColumn     string
	GlobalRootID int64
	Selection    []selection.Option
}

// Bounds is the level band a query was planned with.
type Bounds struct {
	RootLevel int
	Depth     int
}

// Planner builds category tree queries.
type Planner struct {
	cfg    Config
	joiner *joiner.Joiner
	levels LevelCalculator
}

// NewPlanner creates a Planner.
func NewPlanner(cfg Config, j *joiner.Joiner, levels LevelCalculator) *Planner {
	return &Planner{cfg: cfg, joiner: j, levels: levels}
}

// JoinSelection joins the attributes of every field in the selection tree.
func (p *Planner) JoinSelection(ctx context.Context, root selection.Node, b *query.Builder, scope joiner.Scope) error {
	return selection.Walk(root, func(n selection.Node) error {
		return p.joiner.Join(ctx, n, b, scope)
	}, p.cfg.Selection...)
}

// Depth returns the number of tree levels the selection asks for.
func (p *Planner) Depth(root selection.Node) int {
	return selection.Depth(root, p.cfg.Selection...)
}

func (p *Planner) newBuilder() *query.Builder {
	b := query.NewBuilder(p.cfg.Table, entityAlias)
	b.AddColumn(ColID, b.Col(p.cfg.IDColumn))
	b.AddColumn(ColParentID, b.Col("parent_id"))
	b.AddColumn(ColPath, b.Col("path"))
	b.AddColumn(ColLevel, b.Col("level"))
	b.AddColumn(ColPosition, b.Col("position"))
	return b
}

// populate joins the selection, the anchor flag and the active filter.
func (p *Planner) populate(ctx context.Context, b *query.Builder, root selection.Node, scope joiner.Scope) error {
	anchor, err := p.joiner.Require(b, ColIsAnchor, scope)
	if err != nil {
		return err
	}
	b.AddColumn(ColIsAnchor, anchor)

	if err := p.JoinSelection(ctx, root, b, scope); err != nil {
		return err
	}

	active, err := p.joiner.Require(b, isActiveAttr, scope)
	if err != nil {
		return err
	}
	b.Where(sqldsl.LeftFilter(active, 1))
	return nil
}

func (p *Planner) order(b *query.Builder) {
	b.OrderBy(
		sqldsl.Ordered{Expr: b.Col("level")},
		sqldsl.Ordered{Expr: b.Col("position"), Desc: true},
	)
}

// Subtree plans the query for rootID and its descendants.
func (p *Planner) Subtree(ctx context.Context, root selection.Node, rootID int64, scope joiner.Scope) (*query.Builder, Bounds, error) {
	if !root.Valid() {
		return nil, Bounds{}, fmt.Errorf("%w: nil root selection", treeerr.ErrMalformedSelection)
	}
	bounds := Bounds{Depth: p.Depth(root)}
	level, err := p.levels.Level(ctx, rootID)
	if err != nil {
		return nil, Bounds{}, err
	}
	bounds.RootLevel = level

	b := p.newBuilder()
	if err := p.populate(ctx, b, root, scope); err != nil {
		return nil, Bounds{}, err
	}

	b.Where(
		sqldsl.PathMatches(b.Col("path"), sqldsl.PathPattern(rootID, p.cfg.GlobalRootID)),
		sqldsl.LevelBand(b.Col("level"), bounds.RootLevel, bounds.Depth),
	)
	p.order(b)
	b.IncludeAlways(sqldsl.Eq{Left: b.Col(p.cfg.IDColumn), Right: sqldsl.Bind(rootID)})
	return b, bounds, nil
}

// MultiRoot plans the query for several roots and their descendants.
// Overlapping subtrees are deduplicated by node id before ordering.
func (p *Planner) MultiRoot(ctx context.Context, root selection.Node, rootIDs []int64, scope joiner.Scope) (*query.Builder, Bounds, error) {
	if !root.Valid() {
		return nil, Bounds{}, fmt.Errorf("%w: nil root selection", treeerr.ErrMalformedSelection)
	}
	ids := uniqueIDs(rootIDs)
	if len(ids) == 0 {
		return nil, Bounds{}, ErrNoRoots
	}
	bounds := Bounds{Depth: p.Depth(root)}

	b := p.newBuilder()
	b.With(sqldsl.CTEDef{Name: matchedCTE, Query: p.matched(ids, bounds.Depth)})
	b.AddJoin(query.JoinInner, sqldsl.TableAs(matchedCTE, matchedCTE), sqldsl.Eq{
		Left:  sqldsl.Col{Table: matchedCTE, Column: p.cfg.IDColumn},
		Right: b.Col(p.cfg.IDColumn),
	})
	if err := p.populate(ctx, b, root, scope); err != nil {
		return nil, Bounds{}, err
	}

	p.order(b)
	b.IncludeAlways(sqldsl.In{Expr: b.Col(p.cfg.IDColumn), Values: ids})
	return b, bounds, nil
}

// matched selects the distinct ids of every node at or below one of the
// roots and within depth levels of it.
func (p *Planner) matched(ids []any, depth int) sqldsl.Expr {
	base := sq.Select("path", "level").
		From(p.cfg.Table).
		Where(sqldsl.In{Expr: sqldsl.Col{Column: p.cfg.IDColumn}, Values: ids})

	m := func(c string) sqldsl.Col { return sqldsl.Col{Table: "m", Column: c} }
	return sq.Select(m(p.cfg.IDColumn).String()).
		Distinct().
		From(p.cfg.Table + " AS m").
		JoinClause(sqldsl.JoinClause{
			Type:  "INNER",
			Table: sqldsl.Subquery{Query: base, Alias: "base"},
			On: sqldsl.And(
				sqldsl.Lte{
					Left:  m("level"),
					Right: sqldsl.Add{Left: sqldsl.Col{Table: "base", Column: "level"}, Right: sqldsl.Bind(depth - DepthOffset)},
				},
				sqldsl.DescendantOrSelf{Path: m("path"), Base: sqldsl.Col{Table: "base", Column: "path"}},
			),
		})
}

func uniqueIDs(ids []int64) []any {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	out := make([]any, len(sorted))
	for i, id := range sorted {
		out[i] = id
	}
	return out
}

// Package joiner adds the joins and select columns that serve one selected
// field. Every join and column is keyed by alias in the query builder, so
// joining the same field twice leaves the query unchanged.
package joiner

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/pthm/categorytree/internal/attribute"
	"github.com/pthm/categorytree/internal/logging"
	"github.com/pthm/categorytree/internal/query"
	"github.com/pthm/categorytree/internal/selection"
	"github.com/pthm/categorytree/internal/sqlgen/sqldsl"
	"github.com/pthm/categorytree/internal/treeerr"
)

// DefaultStoreID is the admin scope holding default attribute values.
const DefaultStoreID int64 = 0

// Scope is the store context a query is built for.
type Scope struct {
	StoreID int64
}

// Joiner resolves fields through an attribute registry.
type Joiner struct {
	reg      *attribute.Registry
	idColumn string
}

// New creates a Joiner. idColumn is the entity identifier column, also used
// to link EAV value rows.
func New(reg *attribute.Registry, idColumn string) *Joiner {
	return &Joiner{reg: reg, idColumn: idColumn}
}

// Join selects the attribute named by a field node. Fragments, relations
// and names the registry does not know are skipped.
func (j *Joiner) Join(ctx context.Context, node selection.Node, b *query.Builder, scope Scope) error {
	if node.Kind() != selection.KindField {
		return nil
	}
	_, err := j.Select(b, node.Name(), scope)
	if errors.Is(err, treeerr.ErrUnknownField) {
		logging.Ctx(ctx).Trace().Str("field", node.Name()).Msg("no attribute for selection, skipping")
		return nil
	}
	return err
}

// Select joins the attribute and adds it to the select list under its
// name. It returns the value expression, or nil for relations.
func (j *Joiner) Select(b *query.Builder, name string, scope Scope) (sqldsl.Expr, error) {
	expr, err := j.Value(b, name, scope)
	if err != nil || expr == nil {
		return nil, err
	}
	b.AddColumn(name, expr)
	return expr, nil
}

// Value joins the attribute and returns its value expression without
// selecting it. Unknown names fail with ErrUnknownField; relations have no
// value and return nil.
func (j *Joiner) Value(b *query.Builder, name string, scope Scope) (sqldsl.Expr, error) {
	attr, ok := j.reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", treeerr.ErrUnknownField, name)
	}

	switch attr.Kind {
	case attribute.KindStatic:
		return b.Col(attr.Column), nil
	case attribute.KindEAV:
		return j.eav(b, attr, scope)
	case attribute.KindChildCount:
		return j.childCount(b), nil
	case attribute.KindProductCount:
		return j.productCount(b, scope)
	case attribute.KindURL:
		return j.url(b, scope), nil
	case attribute.KindRelation:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: attribute %q has kind %s", treeerr.ErrUnresolvableMetadata, name, attr.Kind)
	}
}

// Require is Value for attributes the planner itself depends on; a missing
// attribute is a metadata failure rather than an unknown field.
func (j *Joiner) Require(b *query.Builder, name string, scope Scope) (sqldsl.Expr, error) {
	expr, err := j.Value(b, name, scope)
	if errors.Is(err, treeerr.ErrUnknownField) {
		return nil, fmt.Errorf("%w: required attribute %q is not defined", treeerr.ErrUnresolvableMetadata, name)
	}
	if err == nil && expr == nil {
		return nil, fmt.Errorf("%w: required attribute %q has no value", treeerr.ErrUnresolvableMetadata, name)
	}
	return expr, err
}

// eav joins the default-scope value and, for a concrete store, the store
// value, preferring the latter.
func (j *Joiner) eav(b *query.Builder, attr attribute.Attribute, scope Scope) (sqldsl.Expr, error) {
	table, err := attr.ValueTable()
	if err != nil {
		return nil, err
	}
	base := "at_" + sqldsl.Ident(attr.Code)

	defAlias := base + "_default"
	b.AddJoin(query.JoinLeft, sqldsl.TableAs(table, defAlias), j.valueOn(b, defAlias, attr.ID, DefaultStoreID))
	def := sqldsl.Col{Table: defAlias, Column: "value"}
	if scope.StoreID == DefaultStoreID {
		return def, nil
	}

	storeAlias := base + "_store"
	b.AddJoin(query.JoinLeft, sqldsl.TableAs(table, storeAlias), j.valueOn(b, storeAlias, attr.ID, scope.StoreID))
	return sqldsl.Coalesce(sqldsl.Col{Table: storeAlias, Column: "value"}, def), nil
}

func (j *Joiner) valueOn(b *query.Builder, alias string, attributeID, storeID int64) sqldsl.Expr {
	return sqldsl.And(
		sqldsl.Eq{Left: sqldsl.Col{Table: alias, Column: j.idColumn}, Right: b.Col(j.idColumn)},
		sqldsl.Eq{Left: sqldsl.Col{Table: alias, Column: "attribute_id"}, Right: sqldsl.Bind(attributeID)},
		sqldsl.Eq{Left: sqldsl.Col{Table: alias, Column: "store_id"}, Right: sqldsl.Bind(storeID)},
	)
}

// childCount counts direct children through the materialized path.
func (j *Joiner) childCount(b *query.Builder) sqldsl.Expr {
	sub := sq.Select("COUNT(*)").
		From(b.Table() + " AS cc").
		Where(sqldsl.DirectChildOf{
			Path:        sqldsl.Col{Table: "cc", Column: "path"},
			Level:       sqldsl.Col{Table: "cc", Column: "level"},
			ParentPath:  b.Col("path"),
			ParentLevel: b.Col("level"),
		})
	return sqldsl.Paren{Expr: sub}
}

// productCount counts distinct products assigned to the category or, when
// it is an anchor, to any category beneath it.
func (j *Joiner) productCount(b *query.Builder, scope Scope) (sqldsl.Expr, error) {
	anchor, err := j.Require(b, "is_anchor", scope)
	if err != nil {
		return nil, err
	}
	pcID := sqldsl.Col{Table: "pc", Column: j.idColumn}
	sub := sq.Select("COUNT(DISTINCT cp.product_id)").
		From(attribute.ProductTable + " AS cp").
		JoinClause(sqldsl.JoinClause{
			Type:  "INNER",
			Table: sqldsl.TableAs(b.Table(), "pc"),
			On:    sqldsl.Eq{Left: pcID, Right: sqldsl.Col{Table: "cp", Column: "category_id"}},
		}).
		Where(sqldsl.Or(
			sqldsl.Eq{Left: pcID, Right: b.Col(j.idColumn)},
			sqldsl.And(
				sqldsl.Eq{Left: anchor, Right: sqldsl.Int(1)},
				sqldsl.Like{
					Expr:    sqldsl.Col{Table: "pc", Column: "path"},
					Pattern: sqldsl.Concat{Parts: []sqldsl.Expr{b.Col("path"), sqldsl.Lit("/%")}},
				},
			),
		))
	return sqldsl.Paren{Expr: sub}, nil
}

// url joins the first rewrite of the category in the store.
func (j *Joiner) url(b *query.Builder, scope Scope) sqldsl.Expr {
	const alias = "url_rewrite"
	sub := sq.Select("u.request_path").
		From(attribute.URLRewriteTable + " AS u").
		Where(sqldsl.Eq{Left: sqldsl.Col{Table: "u", Column: "entity_type"}, Right: sqldsl.Lit(attribute.URLEntityType)}).
		Where(sqldsl.Eq{Left: sqldsl.Col{Table: "u", Column: "entity_id"}, Right: b.Col(j.idColumn)}).
		Where(sqldsl.Eq{Left: sqldsl.Col{Table: "u", Column: "store_id"}, Right: sqldsl.Bind(scope.StoreID)}).
		OrderBy("u.url_rewrite_id").
		Limit(1)
	b.AddJoin(query.JoinLeft, sqldsl.Subquery{Query: sub, Alias: alias, Lateral: true}, nil)
	return sqldsl.Col{Table: alias, Column: "request_path"}
}

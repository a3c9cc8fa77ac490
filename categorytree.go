// Package categorytree resolves storefront category trees from PostgreSQL.
//
// A client's field selection (a GraphQL selection tree) is translated into a
// single filtered, attribute-joined SQL query over the materialized-path
// category table. The query returns exactly the subtree nodes the selection
// needs, with every selected attribute joined from the EAV value tables, so
// resolving a nested menu never issues one query per level.
//
// # Usage
//
// Create a Provider once at startup. It loads the attribute metadata and is
// safe to share between requests:
//
//	db, _ := sql.Open("pgx", dsn)
//	provider, err := categorytree.NewProvider(ctx, db)
//
// Resolve a subtree for the selection of the current request:
//
//	sel, _ := categorytree.ParseSelection(`{ categories { name children { name url_path } } }`, "categories")
//	for row, err := range provider.GetTree(ctx, sel, rootID, storeID) {
//		if err != nil {
//			return err
//		}
//		name, _ := row.Field("name")
//		...
//	}
//
// Rows are read lazily. The query runs on the first pull, and the underlying
// result set is closed when the loop ends or breaks early. Use BuildTree to
// nest the flat rows under their parents.
//
// # Tree layout
//
// Every category stores a path of ancestor ids ("1/2/5/12") and its level,
// the number of segments minus one. A subtree is selected by matching the
// path against a pattern anchored on the root id and bounding the level by
// the depth of nested children selections. Inactive nodes are dropped; nodes
// with no is_active value are kept. The requested root is always returned.
package categorytree

import (
	"context"
	"database/sql"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/pthm/categorytree/internal/attribute"
	"github.com/pthm/categorytree/internal/collection"
	"github.com/pthm/categorytree/internal/joiner"
	"github.com/pthm/categorytree/internal/query"
	"github.com/pthm/categorytree/internal/selection"
	"github.com/pthm/categorytree/internal/treequery"
)

// NodeID identifies a category.
type NodeID = int64

// Querier is the minimal interface for database operations.
// It is implemented by *sql.DB, *sql.Tx, and *sql.Conn, so trees can be
// read inside a caller's transaction.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Executor runs generated statements. Providers wrap their Querier in one;
// WithExecutor replaces it.
type Executor = query.Executor

// Rows is the result set read by an Executor.
type Rows = query.Rows

// Selection is one node of a client field selection.
type Selection = selection.Node

// Scope is the store context attribute values are resolved for.
type Scope = joiner.Scope

// QueryBuilder is the mutable query specification handed to a
// CollectionProcessor.
type QueryBuilder = query.Builder

// Query is a finalized statement with its bound arguments.
type Query = query.Query

// Attribute describes one selectable category attribute.
type Attribute = attribute.Attribute

// IdentifierResolver names the identifier column of an entity kind.
type IdentifierResolver = attribute.IdentifierResolver

// Search criteria accepted by the filtered variants.
type (
	SearchCriteria = collection.SearchCriteria
	FilterGroup    = collection.FilterGroup
	Filter         = collection.Filter
	SortOrder      = collection.SortOrder
	Condition      = collection.Condition
	Direction      = collection.Direction
)

// Filter conditions understood by the default collection processor.
const (
	CondEq      = collection.CondEq
	CondNeq     = collection.CondNeq
	CondIn      = collection.CondIn
	CondNin     = collection.CondNin
	CondLike    = collection.CondLike
	CondGt      = collection.CondGt
	CondGteq    = collection.CondGteq
	CondLt      = collection.CondLt
	CondLteq    = collection.CondLteq
	CondNull    = collection.CondNull
	CondNotNull = collection.CondNotNull
)

// Sort directions.
const (
	Asc  = collection.Asc
	Desc = collection.Desc
)

// Store is the storefront a request is resolved for.
type Store struct {
	ID             int64
	Code           string
	RootCategoryID NodeID
}

// Scope returns the attribute scope of the store.
func (s Store) Scope() Scope {
	return Scope{StoreID: s.ID}
}

// Row is one category returned by a tree query.
//
// The core fields are always present. Attributes holds exactly the
// attributes joined for the selection (and any requested attribute names),
// keyed by selection name. Values are database values: int64, float64,
// string or time.Time, or nil when the category has no value.
type Row struct {
	ID         NodeID
	ParentID   NodeID // 0 for the tree root
	Path       string
	Level      int
	Position   int
	IsAnchor   bool
	Attributes map[string]any
}

// Field returns the value of a selected field by name. Core fields are
// answered from the struct; everything else from Attributes.
func (r Row) Field(name string) (any, bool) {
	switch name {
	case treequery.ColID:
		return r.ID, true
	case treequery.ColParentID:
		return r.ParentID, true
	case treequery.ColPath:
		return r.Path, true
	case treequery.ColLevel:
		return r.Level, true
	case treequery.ColPosition:
		return r.Position, true
	case treequery.ColIsAnchor:
		return r.IsAnchor, true
	}
	v, ok := r.Attributes[name]
	return v, ok
}

// ParseSelection parses a GraphQL document and returns the first field
// named fieldName, searching every operation and fragment.
func ParseSelection(document, fieldName string) (Selection, error) {
	return selection.ParseRoot(document, fieldName)
}

// SelectionFromField wraps an already parsed field. fragments resolves the
// fragment spreads beneath it.
func SelectionFromField(field *ast.Field, fragments ast.FragmentDefinitionList) Selection {
	return selection.FromField(field, fragments)
}

// LoadAttributes reads the category attribute metadata.
func LoadAttributes(ctx context.Context, q Querier) ([]Attribute, error) {
	attrs, err := attribute.Load(ctx, q, attribute.EntityTypeCategory)
	if err != nil {
		return nil, mapError("load attributes", err)
	}
	return attrs, nil
}

// Package attribute resolves selection names to category attributes.
//
// The Registry is built once from the EAV metadata table and maps every
// name the query planner may meet to a closed set of join strategies.
package attribute

import (
	"fmt"

	"github.com/pthm/categorytree/internal/treeerr"
)

const (
	// EntityTypeCategory is the entity_type of category attributes.
	EntityTypeCategory = "catalog_category"
	// EntityTable holds the static category columns.
	EntityTable = "catalog_category_entity"
	// ProductTable holds category to product assignments.
	ProductTable = "catalog_category_product"
	// URLRewriteTable holds storefront URL paths.
	URLRewriteTable = "url_rewrite"
	// URLEntityType is the url_rewrite.entity_type of categories.
	URLEntityType = "category"
)

// Kind selects the join strategy of an attribute.
type Kind int

const (
	KindUnknown Kind = iota
	// KindStatic is a column of the entity table.
	KindStatic
	// KindEAV is a store-scoped value in an EAV value table.
	KindEAV
	// KindChildCount is the number of direct children.
	KindChildCount
	// KindProductCount is the number of products shown by the category.
	KindProductCount
	// KindURL is the storefront URL path.
	KindURL
	// KindRelation selects nested categories and has no column.
	KindRelation
)

func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindEAV:
		return "eav"
	case KindChildCount:
		return "child_count"
	case KindProductCount:
		return "product_count"
	case KindURL:
		return "url"
	case KindRelation:
		return "relation"
	default:
		return "unknown"
	}
}

// Backend is the EAV backend type, which names the value table.
type Backend string

const (
	BackendStatic   Backend = "static"
	BackendInt      Backend = "int"
	BackendVarchar  Backend = "varchar"
	BackendText     Backend = "text"
	BackendDecimal  Backend = "decimal"
	BackendDatetime Backend = "datetime"
)

// Valid reports whether b is a known backend type.
func (b Backend) Valid() bool {
	switch b {
	case BackendStatic, BackendInt, BackendVarchar, BackendText, BackendDecimal, BackendDatetime:
		return true
	}
	return false
}

// Attribute describes one selectable category attribute.
type Attribute struct {
	Code    string
	ID      int64
	Kind    Kind
	Backend Backend
	// Column is the entity table column of a static attribute.
	Column string
}

// ValueTable returns the EAV value table holding the attribute.
func (a Attribute) ValueTable() (string, error) {
	if a.Kind != KindEAV || !a.Backend.Valid() || a.Backend == BackendStatic {
		return "", fmt.Errorf("%w: attribute %q has no value table (backend %q)",
			treeerr.ErrUnresolvableMetadata, a.Code, a.Backend)
	}
	return EntityTable + "_" + string(a.Backend), nil
}

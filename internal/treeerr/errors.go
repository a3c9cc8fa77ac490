// Package treeerr defines the sentinel errors shared by the query packages.
// The root package re-exports them.
package treeerr

import "errors"

var (
	// ErrMalformedSelection is returned when the selection tree cannot be
	// interpreted (nil root, missing fragment definitions, parse failures).
	ErrMalformedSelection = errors.New("categorytree: malformed selection")

	// ErrUnresolvableMetadata is returned when entity or attribute metadata
	// needed to build a query cannot be resolved.
	ErrUnresolvableMetadata = errors.New("categorytree: unresolvable metadata")

	// ErrUnknownField is returned when search criteria reference a field
	// that is not a known category attribute.
	ErrUnknownField = errors.New("categorytree: unknown field")

	// ErrCategoryNotFound is returned when a root category does not exist.
	ErrCategoryNotFound = errors.New("categorytree: category not found")

	// ErrNoCategoryTable is returned when the catalog schema is missing.
	ErrNoCategoryTable = errors.New("categorytree: catalog_category_entity table missing")
)

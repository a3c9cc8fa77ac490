package categorytree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/pthm/categorytree/internal/collection"
	"github.com/pthm/categorytree/internal/treeerr"
	"github.com/pthm/categorytree/internal/treequery"
)

// Sentinel errors returned while building or reading a tree.
//
// Structural errors (ErrMalformedSelection, ErrUnresolvableMetadata,
// ErrUnknownField) mean the request or configuration cannot be translated
// into a query. ErrCategoryNotFound means the requested root does not
// exist. ErrNoCategoryTable means the catalog schema is not installed.
// Storage errors that match none of these are returned wrapped with the
// operation name.
var (
	// ErrMalformedSelection is returned when the selection tree cannot be
	// interpreted, for example a nil root or a spread of an undefined
	// fragment.
	ErrMalformedSelection = treeerr.ErrMalformedSelection

	// ErrUnresolvableMetadata is returned when the identifier column or a
	// required attribute (is_active, is_anchor) cannot be resolved.
	ErrUnresolvableMetadata = treeerr.ErrUnresolvableMetadata

	// ErrUnknownField is returned when search criteria filter or sort on a
	// field that is not a category attribute.
	ErrUnknownField = treeerr.ErrUnknownField

	// ErrCategoryNotFound is returned when the root category id does not
	// exist.
	ErrCategoryNotFound = treeerr.ErrCategoryNotFound

	// ErrNoCategoryTable is returned when catalog_category_entity or one of
	// its attribute tables does not exist. Run `cattree migrate` against a
	// development database to install the schema.
	ErrNoCategoryTable = treeerr.ErrNoCategoryTable

	// ErrUnsupportedCondition is returned for filter conditions the default
	// collection processor does not implement.
	ErrUnsupportedCondition = collection.ErrUnsupportedCondition

	// ErrNoRoots is returned when a multi-root query is built without roots.
	ErrNoRoots = treequery.ErrNoRoots
)

// IsMalformedSelectionErr returns true if err is or wraps ErrMalformedSelection.
func IsMalformedSelectionErr(err error) bool {
	return errors.Is(err, ErrMalformedSelection)
}

// IsUnresolvableMetadataErr returns true if err is or wraps ErrUnresolvableMetadata.
func IsUnresolvableMetadataErr(err error) bool {
	return errors.Is(err, ErrUnresolvableMetadata)
}

// IsUnknownFieldErr returns true if err is or wraps ErrUnknownField.
func IsUnknownFieldErr(err error) bool {
	return errors.Is(err, ErrUnknownField)
}

// IsCategoryNotFoundErr returns true if err is or wraps ErrCategoryNotFound.
func IsCategoryNotFoundErr(err error) bool {
	return errors.Is(err, ErrCategoryNotFound)
}

// IsNoCategoryTableErr returns true if err is or wraps ErrNoCategoryTable.
func IsNoCategoryTableErr(err error) bool {
	return errors.Is(err, ErrNoCategoryTable)
}

// PostgreSQL error codes for error mapping.
const (
	pgUndefinedTable  = "42P01" // undefined_table
	pgUndefinedColumn = "42703" // undefined_column
)

var sentinels = []error{
	ErrMalformedSelection,
	ErrUnresolvableMetadata,
	ErrUnknownField,
	ErrCategoryNotFound,
	ErrNoCategoryTable,
	ErrUnsupportedCondition,
	ErrNoRoots,
}

// mapError maps PostgreSQL errors to sentinel errors. Errors that already
// wrap a sentinel are returned unchanged.
func mapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err
		}
	}

	switch sqlState(err) {
	case pgUndefinedTable:
		return fmt.Errorf("%w: %v", ErrNoCategoryTable, err)
	case pgUndefinedColumn:
		return fmt.Errorf("%w: %v", ErrUnresolvableMetadata, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// sqlState extracts the SQLSTATE code from a PostgreSQL error.
// Works with both supported drivers:
//   - pgx/pgconn: *pgconn.PgError
//   - lib/pq: *pq.Error
//
// Other wrappers are detected through SQLState() or Code() methods, then
// by scanning the message. Returns empty string if the error doesn't
// contain a SQLSTATE.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	type sqlStateErr interface{ SQLState() string }
	var se sqlStateErr
	if errors.As(err, &se) {
		return se.SQLState()
	}

	type codeErr interface{ Code() string }
	var ce codeErr
	if errors.As(err, &ce) {
		return ce.Code()
	}

	// Format: "... (SQLSTATE 42P01)" or "SQLSTATE: 42P01"
	errStr := err.Error()
	for _, prefix := range []string{"SQLSTATE ", "SQLSTATE: "} {
		if idx := strings.Index(errStr, prefix); idx >= 0 {
			start := idx + len(prefix)
			if start+5 <= len(errStr) {
				return errStr[start : start+5]
			}
		}
	}
	return ""
}

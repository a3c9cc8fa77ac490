package attribute

import (
	"fmt"

	"github.com/pthm/categorytree/internal/sqlgen/sqldsl"
	"github.com/pthm/categorytree/internal/treeerr"
)

// IdentifierResolver names the primary identifier column of an entity kind.
type IdentifierResolver interface {
	IdentifierField(entityKind string) (string, error)
}

// StaticIdentifiers is an IdentifierResolver backed by a fixed map.
type StaticIdentifiers map[string]string

// DefaultIdentifiers identifies categories by entity_id.
func DefaultIdentifiers() StaticIdentifiers {
	return StaticIdentifiers{EntityTypeCategory: "entity_id"}
}

// IdentifierField implements IdentifierResolver. Names that are not plain
// SQL identifiers are rejected.
func (s StaticIdentifiers) IdentifierField(entityKind string) (string, error) {
	field, ok := s[entityKind]
	if !ok || field == "" {
		return "", fmt.Errorf("%w: no identifier field for entity %q", treeerr.ErrUnresolvableMetadata, entityKind)
	}
	if sqldsl.Ident(field) != field {
		return "", fmt.Errorf("%w: identifier field %q for entity %q is not a valid column name",
			treeerr.ErrUnresolvableMetadata, field, entityKind)
	}
	return field, nil
}

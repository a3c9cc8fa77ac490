package attribute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/categorytree/internal/treeerr"
)

func testAttributes() []Attribute {
	return []Attribute{
		{ID: 45, Code: "name", Backend: BackendVarchar},
		{ID: 46, Code: "is_active", Backend: BackendInt},
		{ID: 54, Code: "is_anchor", Backend: BackendInt},
		{ID: 47, Code: "description", Backend: BackendText},
		{ID: 60, Code: "path", Backend: BackendStatic},
		{ID: 61, Code: "position", Backend: BackendInt},
		{ID: 70, Code: "gallery", Backend: "gallery"},
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry("entity_id", testAttributes())

	tests := []struct {
		name     string
		wantKind Kind
		wantOK   bool
	}{
		{"id", KindStatic, true},
		{"entity_id", KindStatic, true},
		{"level", KindStatic, true},
		{"name", KindEAV, true},
		{"is_active", KindEAV, true},
		{"children_count", KindChildCount, true},
		{"product_count", KindProductCount, true},
		{"url_path", KindURL, true},
		{"canonical_url", KindURL, true},
		{"children", KindRelation, true},
		{"gallery", KindUnknown, false},
		{"breadcrumbs", KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := r.Lookup(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKind, a.Kind)
		})
	}
}

func TestRegistry_StaticWinsOverEAV(t *testing.T) {
	r := NewRegistry("entity_id", testAttributes())

	pos, ok := r.Lookup("position")
	require.True(t, ok)
	assert.Equal(t, KindStatic, pos.Kind)
	assert.Equal(t, "position", pos.Column)

	path, ok := r.Lookup("path")
	require.True(t, ok)
	assert.Equal(t, KindStatic, path.Kind)
}

func TestRegistry_IDColumn(t *testing.T) {
	r := NewRegistry("row_id", nil)
	id, ok := r.Lookup("id")
	require.True(t, ok)
	assert.Equal(t, "row_id", id.Column)
}

func TestRegistry_ChildrenField(t *testing.T) {
	r := NewRegistry("entity_id", nil, WithChildrenField("subcategories"))
	a, ok := r.Lookup("subcategories")
	require.True(t, ok)
	assert.Equal(t, KindRelation, a.Kind)
	_, ok = r.Lookup("children")
	assert.False(t, ok)
}

func TestRegistry_Codes(t *testing.T) {
	codes := NewRegistry("entity_id", testAttributes()).Codes()
	assert.IsIncreasing(t, codes)
	assert.Contains(t, codes, "name")
	assert.NotContains(t, codes, "gallery")
}

func TestAttribute_ValueTable(t *testing.T) {
	r := NewRegistry("entity_id", testAttributes())

	name, _ := r.Lookup("name")
	table, err := name.ValueTable()
	require.NoError(t, err)
	assert.Equal(t, "catalog_category_entity_varchar", table)

	level, _ := r.Lookup("level")
	_, err = level.ValueTable()
	require.ErrorIs(t, err, treeerr.ErrUnresolvableMetadata)
}

func TestStaticIdentifiers(t *testing.T) {
	field, err := DefaultIdentifiers().IdentifierField(EntityTypeCategory)
	require.NoError(t, err)
	assert.Equal(t, "entity_id", field)

	_, err = DefaultIdentifiers().IdentifierField("catalog_product")
	require.ErrorIs(t, err, treeerr.ErrUnresolvableMetadata)

	_, err = StaticIdentifiers{EntityTypeCategory: "entity_id; DROP"}.IdentifierField(EntityTypeCategory)
	require.ErrorIs(t, err, treeerr.ErrUnresolvableMetadata)
}

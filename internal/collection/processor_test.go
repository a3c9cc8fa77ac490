package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/categorytree/internal/attribute"
	"github.com/pthm/categorytree/internal/joiner"
	"github.com/pthm/categorytree/internal/query"
	"github.com/pthm/categorytree/internal/treeerr"
)

func setup() (*Processor, *query.Builder) {
	reg := attribute.NewRegistry("entity_id", []attribute.Attribute{
		{ID: 45, Code: "name", Backend: attribute.BackendVarchar},
		{ID: 50, Code: "include_in_menu", Backend: attribute.BackendInt},
	})
	b := query.NewBuilder(attribute.EntityTable, "e")
	b.AddColumn("id", b.Col("entity_id"))
	return NewProcessor(joiner.New(reg, "entity_id")), b
}

func TestProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("groups AND, filters OR", func(t *testing.T) {
		p, b := setup()
		err := p.Process(ctx, b, SearchCriteria{
			FilterGroups: []FilterGroup{
				{Filters: []Filter{
					{Field: "name", Value: "Men%", Condition: CondLike},
					{Field: "name", Value: "Women"},
				}},
				{Filters: []Filter{{Field: "include_in_menu", Value: 1, Condition: CondEq}}},
			},
		}, nil, joiner.Scope{})
		require.NoError(t, err)

		q, err := b.Finalize()
		require.NoError(t, err)
		assert.Contains(t, q.SQL(),
			`WHERE ((at_name_default.value LIKE $5 OR at_name_default.value = $6) AND at_include_in_menu_default.value = $7)`)
		assert.Equal(t, []any{"Men%", "Women", 1}, q.Args()[4:])
		assert.Equal(t, []string{"id"}, q.Columns(), "filtering must not select")
	})

	t.Run("conditions", func(t *testing.T) {
		tests := []struct {
			filter Filter
			want   string
			args   []any
		}{
			{Filter{Field: "level", Value: 2, Condition: CondNeq}, "e.level <> $1", []any{2}},
			{Filter{Field: "level", Value: []int{2, 3}, Condition: CondIn}, "e.level IN ($1, $2)", []any{2, 3}},
			{Filter{Field: "id", Value: "4, 5", Condition: CondNin}, "e.entity_id NOT IN ($1, $2)", []any{"4", "5"}},
			{Filter{Field: "level", Value: 2, Condition: CondGt}, "e.level > $1", []any{2}},
			{Filter{Field: "level", Value: 2, Condition: CondGteq}, "e.level >= $1", []any{2}},
			{Filter{Field: "level", Value: 2, Condition: CondLt}, "e.level < $1", []any{2}},
			{Filter{Field: "level", Value: 2, Condition: CondLteq}, "e.level <= $1", []any{2}},
			{Filter{Field: "parent_id", Condition: CondNull}, "e.parent_id IS NULL", nil},
			{Filter{Field: "parent_id", Condition: CondNotNull}, "e.parent_id IS NOT NULL", nil},
		}
		for _, tt := range tests {
			t.Run(string(tt.filter.Condition), func(t *testing.T) {
				p, b := setup()
				err := p.Process(ctx, b, SearchCriteria{
					FilterGroups: []FilterGroup{{Filters: []Filter{tt.filter}}},
				}, nil, joiner.Scope{})
				require.NoError(t, err)
				q, err := b.Finalize()
				require.NoError(t, err)
				assert.Contains(t, q.SQL(), "WHERE "+tt.want)
				assert.Equal(t, tt.args, q.Args())
			})
		}
	})

	t.Run("attribute names are selected", func(t *testing.T) {
		p, b := setup()
		require.NoError(t, p.Process(ctx, b, SearchCriteria{}, []string{"name", "not_an_attribute", "name"}, joiner.Scope{}))
		assert.Equal(t, []string{"id", "name"}, b.Columns())
	})

	t.Run("sort orders", func(t *testing.T) {
		p, b := setup()
		require.NoError(t, p.Process(ctx, b, SearchCriteria{
			SortOrders: []SortOrder{{Field: "name", Direction: Desc}, {Field: "position"}},
		}, nil, joiner.Scope{}))
		q, err := b.Finalize()
		require.NoError(t, err)
		assert.Contains(t, q.SQL(), "ORDER BY at_name_default.value DESC, e.position ASC")
	})

	t.Run("unknown filter field", func(t *testing.T) {
		p, b := setup()
		err := p.Process(ctx, b, SearchCriteria{
			FilterGroups: []FilterGroup{{Filters: []Filter{{Field: "color", Value: "red"}}}},
		}, nil, joiner.Scope{})
		require.ErrorIs(t, err, treeerr.ErrUnknownField)
	})

	t.Run("relation is not filterable", func(t *testing.T) {
		p, b := setup()
		err := p.Process(ctx, b, SearchCriteria{
			SortOrders: []SortOrder{{Field: "children"}},
		}, nil, joiner.Scope{})
		require.ErrorIs(t, err, treeerr.ErrUnknownField)
	})

	t.Run("unsupported condition", func(t *testing.T) {
		p, b := setup()
		err := p.Process(ctx, b, SearchCriteria{
			FilterGroups: []FilterGroup{{Filters: []Filter{{Field: "level", Value: 1, Condition: "finset"}}}},
		}, nil, joiner.Scope{})
		require.ErrorIs(t, err, ErrUnsupportedCondition)
	})
}

func TestSearchCriteria_Empty(t *testing.T) {
	assert.True(t, SearchCriteria{}.Empty())
	assert.False(t, SearchCriteria{SortOrders: []SortOrder{{Field: "name"}}}.Empty())
}

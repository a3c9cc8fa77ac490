package categorytree_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/categorytree"
	"github.com/pthm/categorytree/internal/attribute"
	"github.com/pthm/categorytree/internal/query/querytest"
)

var testAttributes = []categorytree.Attribute{
	{ID: 45, Code: "name", Kind: attribute.KindEAV, Backend: attribute.BackendVarchar},
	{ID: 46, Code: "is_active", Kind: attribute.KindEAV, Backend: attribute.BackendInt},
	{ID: 52, Code: "url_key", Kind: attribute.KindEAV, Backend: attribute.BackendVarchar},
	{ID: 54, Code: "is_anchor", Kind: attribute.KindEAV, Backend: attribute.BackendInt},
}

const menuQuery = `{ categories { name children { name } } }`

func newProvider(t *testing.T, exec *querytest.Executor, opts ...categorytree.Option) *categorytree.Provider {
	t.Helper()
	opts = append([]categorytree.Option{
		categorytree.WithExecutor(exec),
		categorytree.WithAttributes(testAttributes),
	}, opts...)
	p, err := categorytree.NewProvider(context.Background(), nil, opts...)
	require.NoError(t, err)
	return p
}

func selection(t *testing.T, doc string) categorytree.Selection {
	t.Helper()
	sel, err := categorytree.ParseSelection(doc, "categories")
	require.NoError(t, err)
	return sel
}

func collect(t *testing.T, seq func(func(categorytree.Row, error) bool)) ([]categorytree.Row, error) {
	t.Helper()
	var rows []categorytree.Row
	for row, err := range seq {
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isLevelLookup(stmt string) bool {
	return strings.HasPrefix(stmt, "SELECT level FROM")
}

func TestGetTree(t *testing.T) {
	ctx := context.Background()

	t.Run("scans core columns and selected attributes", func(t *testing.T) {
		data := querytest.NewRows(
			[]any{int64(1), nil, "1", 0, 0, int64(1), "Root"},
			[]any{int64(3), int64(1), "1/3", 1, 2, nil, []byte("Women")},
			[]any{int64(4), int64(1), "1/4", 1, 1, int64(0), nil},
		)
		exec := &querytest.Executor{Respond: func(string, []any) (*querytest.Rows, error) { return data, nil }}
		p := newProvider(t, exec)

		rows, err := collect(t, p.GetTree(ctx, selection(t, menuQuery), 1, 0))
		require.NoError(t, err)
		require.Len(t, rows, 3)

		assert.Equal(t, categorytree.Row{
			ID: 1, ParentID: 0, Path: "1", Level: 0, Position: 0, IsAnchor: true,
			Attributes: map[string]any{"name": "Root"},
		}, rows[0])
		assert.Equal(t, "Women", rows[1].Attributes["name"], "byte values are returned as strings")
		assert.False(t, rows[1].IsAnchor)
		assert.Nil(t, rows[2].Attributes["name"])
		assert.True(t, data.Closed())

		calls := exec.Calls()
		require.Len(t, calls, 1, "global root needs no level lookup")
		assert.Contains(t, calls[0].SQL, "e.path ~ $")
		assert.Contains(t, calls[0].Args, "^1/[/0-9]*$")
		assert.Contains(t, calls[0].SQL, "ORDER BY e.level ASC, e.position DESC")
	})

	t.Run("is lazy", func(t *testing.T) {
		exec := &querytest.Executor{}
		p := newProvider(t, exec)

		seq := p.GetTree(ctx, selection(t, menuQuery), 1, 0)
		assert.Empty(t, exec.Calls())

		_, err := collect(t, seq)
		require.NoError(t, err)
		assert.Len(t, exec.Calls(), 1)
	})

	t.Run("interior root looks up its level", func(t *testing.T) {
		exec := &querytest.Executor{Respond: func(stmt string, _ []any) (*querytest.Rows, error) {
			if isLevelLookup(stmt) {
				return querytest.NewRows([]any{3}), nil
			}
			return querytest.NewRows(), nil
		}}
		p := newProvider(t, exec)

		_, err := collect(t, p.GetTree(ctx, selection(t, menuQuery), 12, 0))
		require.NoError(t, err)

		calls := exec.Calls()
		require.Len(t, calls, 2)
		assert.Equal(t, []any{int64(12)}, calls[0].Args)
		assert.Contains(t, calls[1].Args, "/12/[/0-9]*$")
		assert.Contains(t, calls[1].Args, 3, "level lower bound")
		assert.Contains(t, calls[1].Args, 4, "level upper bound for depth 2")
	})

	t.Run("custom global root", func(t *testing.T) {
		exec := &querytest.Executor{}
		p := newProvider(t, exec, categorytree.WithGlobalRootID(2))

		_, err := collect(t, p.GetTree(ctx, selection(t, menuQuery), 2, 0))
		require.NoError(t, err)

		calls := exec.Calls()
		require.Len(t, calls, 1)
		assert.Contains(t, calls[0].Args, "^2/[/0-9]*$")
	})

	t.Run("store scope prefers store values", func(t *testing.T) {
		exec := &querytest.Executor{}
		p := newProvider(t, exec)

		_, err := collect(t, p.GetTree(ctx, selection(t, menuQuery), 1, 3))
		require.NoError(t, err)
		stmt := exec.Calls()[0].SQL
		assert.Contains(t, stmt, `COALESCE(at_name_store.value, at_name_default.value) AS "name"`)
	})

	t.Run("missing root", func(t *testing.T) {
		exec := &querytest.Executor{}
		p := newProvider(t, exec)

		_, err := collect(t, p.GetTree(ctx, selection(t, menuQuery), 99, 0))
		require.Error(t, err)
		assert.True(t, categorytree.IsCategoryNotFoundErr(err))
		assert.Len(t, exec.Calls(), 1, "tree query must not run")
	})

	t.Run("invalid selection", func(t *testing.T) {
		p := newProvider(t, &querytest.Executor{})

		_, err := collect(t, p.GetTree(ctx, categorytree.Selection{}, 1, 0))
		assert.True(t, categorytree.IsMalformedSelectionErr(err))
	})

	t.Run("missing table", func(t *testing.T) {
		exec := &querytest.Executor{Respond: func(string, []any) (*querytest.Rows, error) {
			return nil, &pgconn.PgError{Code: "42P01", Message: `relation "catalog_category_entity" does not exist`}
		}}
		p := newProvider(t, exec)

		_, err := collect(t, p.GetTree(ctx, selection(t, menuQuery), 1, 0))
		assert.True(t, categorytree.IsNoCategoryTableErr(err))
	})

	t.Run("storage errors are wrapped with the operation", func(t *testing.T) {
		boom := errors.New("connection reset")
		exec := &querytest.Executor{Respond: func(string, []any) (*querytest.Rows, error) {
			return &querytest.Rows{FinalErr: boom}, nil
		}}
		p := newProvider(t, exec)

		_, err := collect(t, p.GetTree(ctx, selection(t, menuQuery), 1, 0))
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "GetTree")
	})

	t.Run("early break closes rows", func(t *testing.T) {
		data := querytest.NewRows(
			[]any{int64(1), nil, "1", 0, 0, nil, "Root"},
			[]any{int64(2), int64(1), "1/2", 1, 0, nil, "Child"},
		)
		exec := &querytest.Executor{Respond: func(string, []any) (*querytest.Rows, error) { return data, nil }}
		p := newProvider(t, exec)

		for range p.GetTree(ctx, selection(t, menuQuery), 1, 0) {
			break
		}
		assert.True(t, data.Closed())
	})
}

func TestGetFilteredTree(t *testing.T) {
	ctx := context.Background()

	t.Run("applies criteria and attribute names", func(t *testing.T) {
		exec := &querytest.Executor{}
		p := newProvider(t, exec)

		criteria := categorytree.SearchCriteria{
			FilterGroups: []categorytree.FilterGroup{{
				Filters: []categorytree.Filter{{Field: "url_key", Value: "women", Condition: categorytree.CondEq}},
			}},
			SortOrders: []categorytree.SortOrder{{Field: "name", Direction: categorytree.Asc}},
		}
		store := categorytree.Store{ID: 0, Code: "admin"}
		_, err := collect(t, p.GetFilteredTree(ctx, selection(t, menuQuery), 1, criteria, store, []string{"url_key", "not_an_attribute"}))
		require.NoError(t, err)

		stmt := exec.Calls()[0].SQL
		assert.Contains(t, stmt, `at_url_key_default.value AS "url_key"`)
		assert.Contains(t, stmt, "OR e.entity_id = $")
		assert.Contains(t, stmt, ") AND at_url_key_default.value = $")
		assert.True(t, strings.HasSuffix(stmt, "ORDER BY e.level ASC, e.position DESC, at_name_default.value ASC"), stmt)
		assert.NotContains(t, stmt, "not_an_attribute")
	})

	t.Run("unknown filter field", func(t *testing.T) {
		p := newProvider(t, &querytest.Executor{})
		criteria := categorytree.SearchCriteria{
			FilterGroups: []categorytree.FilterGroup{{Filters: []categorytree.Filter{{Field: "colour", Value: "red"}}}},
		}

		_, err := collect(t, p.GetFilteredTree(ctx, selection(t, menuQuery), 1, criteria, categorytree.Store{}, nil))
		assert.True(t, categorytree.IsUnknownFieldErr(err))
	})

	t.Run("custom processor", func(t *testing.T) {
		proc := &recordingProcessor{}
		exec := &querytest.Executor{}
		p := newProvider(t, exec, categorytree.WithCollectionProcessor(proc))

		store := categorytree.Store{ID: 2}
		_, err := collect(t, p.GetFilteredTree(ctx, selection(t, menuQuery), 1, categorytree.SearchCriteria{}, store, []string{"url_key"}))
		require.NoError(t, err)
		assert.Equal(t, 1, proc.calls)
		assert.Equal(t, []string{"url_key"}, proc.attributeNames)
		assert.Equal(t, categorytree.Scope{StoreID: 2}, proc.scope)
		assert.Contains(t, exec.Calls()[0].SQL, "e.created_at > now()")
	})
}

type recordingProcessor struct {
	calls          int
	attributeNames []string
	scope          categorytree.Scope
}

func (r *recordingProcessor) Process(_ context.Context, b *categorytree.QueryBuilder, _ categorytree.SearchCriteria, names []string, scope categorytree.Scope) error {
	r.calls++
	r.attributeNames = names
	r.scope = scope
	b.Filter(rawPredicate("e.created_at > now()"))
	return nil
}

type rawPredicate string

func (r rawPredicate) ToSql() (string, []any, error) { return string(r), nil, nil }

func TestGetFlatCategoriesByRoots(t *testing.T) {
	ctx := context.Background()

	t.Run("empty root set runs no query", func(t *testing.T) {
		exec := &querytest.Executor{}
		p := newProvider(t, exec)

		rows, err := collect(t, p.GetFlatCategoriesByRoots(ctx, selection(t, menuQuery), nil, categorytree.SearchCriteria{}, categorytree.Store{}, nil))
		require.NoError(t, err)
		assert.Empty(t, rows)
		assert.Empty(t, exec.Calls())
	})

	t.Run("deduplicates roots in a matched set", func(t *testing.T) {
		exec := &querytest.Executor{}
		p := newProvider(t, exec)

		_, err := collect(t, p.GetFlatCategoriesByRoots(ctx, selection(t, menuQuery), []categorytree.NodeID{11, 10, 11}, categorytree.SearchCriteria{}, categorytree.Store{}, nil))
		require.NoError(t, err)

		calls := exec.Calls()
		require.Len(t, calls, 1, "multi-root queries need no level lookup")
		stmt := calls[0].SQL
		assert.True(t, strings.HasPrefix(stmt, "WITH matched AS (SELECT DISTINCT m.entity_id FROM catalog_category_entity AS m"), stmt)
		assert.Contains(t, stmt, "INNER JOIN matched AS matched ON matched.entity_id = e.entity_id")
		assert.Contains(t, stmt, "OR e.entity_id IN (")
		assert.Equal(t, 2, countArg(calls[0].Args, int64(10)), "each root bound once in the CTE and once in the override")
	})
}

func countArg(args []any, v any) int {
	n := 0
	for _, a := range args {
		if a == v {
			n++
		}
	}
	return n
}

func TestSubtreeSQL(t *testing.T) {
	exec := &querytest.Executor{}
	p := newProvider(t, exec)

	q, err := p.SubtreeSQL(context.Background(), selection(t, menuQuery), 1, categorytree.Store{}, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, q.SQL(), "FROM catalog_category_entity AS e")
	assert.Equal(t, []string{"id", "parent_id", "path", "level", "position", "is_anchor", "name"}, q.Columns())
	assert.Empty(t, exec.Calls(), "building for the global root runs nothing")

	_, err = p.MultiRootSQL(context.Background(), selection(t, menuQuery), nil, categorytree.Store{}, categorytree.SearchCriteria{}, nil)
	assert.ErrorIs(t, err, categorytree.ErrNoRoots)
}

func TestBuildSubtreeQuery(t *testing.T) {
	p := newProvider(t, &querytest.Executor{})

	b, err := p.BuildSubtreeQuery(context.Background(), selection(t, menuQuery), 1, categorytree.Scope{})
	require.NoError(t, err)
	b.Filter(rawPredicate("e.position > 0"))

	q, err := b.Finalize()
	require.NoError(t, err)
	assert.Contains(t, q.SQL(), "AND e.position > 0")
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a database handle", func(t *testing.T) {
		_, err := categorytree.NewProvider(ctx, nil, categorytree.WithAttributes(testAttributes))
		assert.True(t, categorytree.IsUnresolvableMetadataErr(err))
	})

	t.Run("requires a Querier to load attributes", func(t *testing.T) {
		_, err := categorytree.NewProvider(ctx, nil, categorytree.WithExecutor(&querytest.Executor{}))
		assert.True(t, categorytree.IsUnresolvableMetadataErr(err))
	})

	t.Run("unknown identifier", func(t *testing.T) {
		_, err := categorytree.NewProvider(ctx, nil,
			categorytree.WithExecutor(&querytest.Executor{}),
			categorytree.WithAttributes(testAttributes),
			categorytree.WithIdentifierResolver(attribute.StaticIdentifiers{}),
		)
		assert.True(t, categorytree.IsUnresolvableMetadataErr(err))
	})

	t.Run("missing is_active", func(t *testing.T) {
		p := newProvider(t, &querytest.Executor{}, categorytree.WithAttributes(testAttributes[:1]))
		_, err := collect(t, p.GetTree(ctx, selection(t, menuQuery), 1, 0))
		assert.True(t, categorytree.IsUnresolvableMetadataErr(err))
	})

	t.Run("children field and depth cap", func(t *testing.T) {
		exec := &querytest.Executor{}
		p := newProvider(t, exec,
			categorytree.WithChildrenField("subcategories"),
			categorytree.WithMaxSelectionDepth(2),
		)

		doc := `{ categories { name subcategories { subcategories { subcategories { name } } } } }`
		_, err := collect(t, p.GetTree(ctx, selection(t, doc), 1, 0))
		require.NoError(t, err)
		args := exec.Calls()[0].Args
		assert.Contains(t, args, 1, "depth clamped to 2 gives an upper level bound of 1")
		assert.NotContains(t, args, 2)
	})
}

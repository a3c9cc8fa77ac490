package level

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/categorytree/internal/query/querytest"
	"github.com/pthm/categorytree/internal/treeerr"
)

func TestLevel(t *testing.T) {
	ctx := context.Background()

	t.Run("global root without lookup", func(t *testing.T) {
		for _, root := range []int64{1, 2} {
			exec := &querytest.Executor{}
			c := NewCalculator(exec, "catalog_category_entity", "entity_id", root)
			level, err := c.Level(ctx, root)
			require.NoError(t, err)
			assert.Equal(t, 0, level)
			assert.Empty(t, exec.Calls())
		}
	})

	t.Run("stored level", func(t *testing.T) {
		rows := querytest.NewRows([]any{int64(3)})
		exec := &querytest.Executor{Respond: func(string, []any) (*querytest.Rows, error) { return rows, nil }}
		c := NewCalculator(exec, "catalog_category_entity", "entity_id", 1)

		level, err := c.Level(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, 3, level)

		calls := exec.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "SELECT level FROM catalog_category_entity WHERE entity_id = $1 LIMIT 1", calls[0].SQL)
		assert.Equal(t, []any{int64(42)}, calls[0].Args)
		assert.True(t, rows.Closed())
	})

	t.Run("missing id", func(t *testing.T) {
		exec := &querytest.Executor{}
		c := NewCalculator(exec, "catalog_category_entity", "entity_id", 1)
		_, err := c.Level(ctx, 404)
		require.ErrorIs(t, err, treeerr.ErrCategoryNotFound)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("storage errors pass through", func(t *testing.T) {
		boom := errors.New("connection refused")
		exec := &querytest.Executor{Respond: func(string, []any) (*querytest.Rows, error) { return nil, boom }}
		c := NewCalculator(exec, "catalog_category_entity", "entity_id", 1)
		_, err := c.Level(ctx, 5)
		require.ErrorIs(t, err, boom)
		assert.False(t, errors.Is(err, treeerr.ErrCategoryNotFound))
	})
}

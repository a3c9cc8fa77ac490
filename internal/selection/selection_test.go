package selection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/pthm/categorytree/internal/treeerr"
)

func mustRoot(t *testing.T, query string) Node {
	t.Helper()
	n, err := ParseRoot(query, "categories")
	require.NoError(t, err)
	return n
}

func TestParseRoot(t *testing.T) {
	t.Run("finds field inside named fragment", func(t *testing.T) {
		n, err := ParseRoot(`
			query { ...Q }
			fragment Q on Query { categories { name } }
		`, "categories")
		require.NoError(t, err)
		assert.Equal(t, KindField, n.Kind())
		assert.Equal(t, "categories", n.Name())
	})

	t.Run("missing field", func(t *testing.T) {
		_, err := ParseRoot(`{ products { name } }`, "categories")
		require.ErrorIs(t, err, treeerr.ErrMalformedSelection)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := ParseRoot(`{ categories { `, "categories")
		require.ErrorIs(t, err, treeerr.ErrMalformedSelection)
	})
}

func TestDepth(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{
			name:  "no children selection",
			query: `{ categories { id name } }`,
			want:  1,
		},
		{
			name:  "one level",
			query: `{ categories { id children { id } } }`,
			want:  2,
		},
		{
			name:  "deepest branch wins",
			query: `{ categories { children { id } children2: children { children { children { id } } } } }`,
			want:  4,
		},
		{
			name:  "inline fragment is transparent",
			query: `{ categories { ... on CategoryTree { children { ... on CategoryTree { children { id } } } } } }`,
			want:  3,
		},
		{
			name: "fragment spread is transparent",
			query: `
				{ categories { ...Kids } }
				fragment Kids on CategoryTree { children { name } }
			`,
			want: 2,
		},
		{
			name:  "children under another field do not count",
			query: `{ categories { breadcrumbs { children { id } } } }`,
			want:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Depth(mustRoot(t, tt.query)))
		})
	}
}

func TestDepth_Properties(t *testing.T) {
	t.Run("invalid root is depth 1", func(t *testing.T) {
		assert.Equal(t, 1, Depth(Node{}))
		assert.Equal(t, 1, Depth(FromField(nil, nil)))
	})

	t.Run("wrapping in one more children adds one", func(t *testing.T) {
		inner := `children { id }`
		prev := Depth(mustRoot(t, `{ categories { `+inner+` } }`))
		for range 4 {
			inner = `children { ` + inner + ` }`
			got := Depth(mustRoot(t, `{ categories { `+inner+` } }`))
			assert.Equal(t, prev+1, got)
			prev = got
		}
	})

	t.Run("cap clamps depth", func(t *testing.T) {
		n := mustRoot(t, `{ categories { children { children { children { id } } } } }`)
		assert.Equal(t, 4, Depth(n))
		assert.Equal(t, 2, Depth(n, WithMaxDepth(2)))
	})

	t.Run("custom children field", func(t *testing.T) {
		n := mustRoot(t, `{ categories { subcategories { id } } }`)
		assert.Equal(t, 2, Depth(n, WithChildrenField("subcategories")))
	})
}

func TestWalk(t *testing.T) {
	names := func(t *testing.T, n Node, opts ...Option) []string {
		t.Helper()
		var got []string
		require.NoError(t, Walk(n, func(n Node) error {
			assert.Equal(t, KindField, n.Kind())
			got = append(got, n.Name())
			return nil
		}, opts...))
		return got
	}

	t.Run("pre-order over fields", func(t *testing.T) {
		n := mustRoot(t, `{ categories { id name children { url_key children { position } } } }`)
		assert.Equal(t, []string{"categories", "id", "name", "children", "url_key", "children", "position"}, names(t, n))
	})

	t.Run("fragments passed through", func(t *testing.T) {
		n := mustRoot(t, `
			{ categories { ... on CategoryTree { name } ...F } }
			fragment F on CategoryTree { url_path }
		`)
		assert.Equal(t, []string{"categories", "name", "url_path"}, names(t, n))
	})

	t.Run("shared fragment fields visited once", func(t *testing.T) {
		n := mustRoot(t, `
			{ categories { ...F children { ...F } } }
			fragment F on CategoryTree { name }
		`)
		assert.Equal(t, []string{"categories", "name", "children"}, names(t, n))
	})

	t.Run("cyclic fragments terminate", func(t *testing.T) {
		n := mustRoot(t, `
			{ categories { ...A } }
			fragment A on CategoryTree { name ...B }
			fragment B on CategoryTree { id ...A }
		`)
		assert.Equal(t, []string{"categories", "name", "id"}, names(t, n))
	})

	t.Run("depth cap skips deep fields", func(t *testing.T) {
		n := mustRoot(t, `{ categories { children { children { name } } } }`)
		assert.Equal(t, []string{"categories", "children"}, names(t, n, WithMaxDepth(2)))
	})

	t.Run("callback error stops walk", func(t *testing.T) {
		boom := errors.New("boom")
		n := mustRoot(t, `{ categories { id name } }`)
		calls := 0
		err := Walk(n, func(n Node) error {
			calls++
			if n.Name() == "id" {
				return boom
			}
			return nil
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 2, calls)
	})

	t.Run("invalid root", func(t *testing.T) {
		err := Walk(Node{}, func(Node) error { return nil })
		require.ErrorIs(t, err, treeerr.ErrMalformedSelection)
	})
}

func TestNode(t *testing.T) {
	n := mustRoot(t, `
		{ categories { label: name ... on CategoryTree { id } ...Missing } }
	`)
	children := n.Children()
	require.Len(t, children, 3)

	assert.Equal(t, KindField, children[0].Kind())
	assert.Equal(t, "name", children[0].Name())
	assert.Equal(t, "label", children[0].ResponseName())
	assert.NotNil(t, children[0].Field())

	assert.Equal(t, KindInlineFragment, children[1].Kind())
	assert.Equal(t, "CategoryTree", children[1].Name())
	assert.True(t, children[1].IsFragment())
	assert.Nil(t, children[1].Field())

	assert.Equal(t, KindFragmentSpread, children[2].Kind())
	assert.Empty(t, children[2].Children(), "undefined fragment has no children")

	assert.False(t, FromSelection((*ast.Field)(nil), nil).Valid())
}

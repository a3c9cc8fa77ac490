package selection

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/pthm/categorytree/internal/logging"
	"github.com/pthm/categorytree/internal/treeerr"
)

const (
	// DefaultMaxDepth bounds how many nested field levels are traversed.
	DefaultMaxDepth = 32
	// DefaultChildrenField is the relation that nests child categories.
	DefaultChildrenField = "children"
)

type options struct {
	maxDepth      int
	childrenField string
}

// Option configures traversal.
type Option func(*options)

// WithMaxDepth sets the traversal depth cap. Non-positive values keep the default.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

// WithChildrenField sets the name of the nested children relation.
func WithChildrenField(name string) Option {
	return func(o *options) {
		if name != "" {
			o.childrenField = name
		}
	}
}

func newOptions(opts []Option) options {
	o := options{maxDepth: DefaultMaxDepth, childrenField: DefaultChildrenField}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Depth returns the length of the deepest chain of nested children
// selections starting at root, root included. Fragments are looked through
// and never counted. An invalid root has depth 1.
func Depth(root Node, opts ...Option) int {
	if !root.Valid() {
		return 1
	}
	o := newOptions(opts)
	return depth(root, o, 1)
}

func depth(n Node, o options, level int) int {
	deepest := level
	for _, f := range n.Fields() {
		if f.Name() != o.childrenField {
			continue
		}
		if level >= o.maxDepth {
			logging.Warn().Int("max_depth", o.maxDepth).Msg("children selection nested beyond depth cap, clamping")
			return level
		}
		if d := depth(f, o, level+1); d > deepest {
			deepest = d
		}
	}
	return deepest
}

// Walk calls fn for root and every field beneath it, in document order,
// visiting each selection at most once. Fragments are traversed but not
// passed to fn. Fields nested deeper than the depth cap are skipped. The
// first error returned by fn stops the walk.
func Walk(root Node, fn func(Node) error, opts ...Option) error {
	if !root.Valid() {
		return fmt.Errorf("%w: nil root selection", treeerr.ErrMalformedSelection)
	}
	w := walker{
		fn:      fn,
		opts:    newOptions(opts),
		visited: make(map[ast.Selection]struct{}),
	}
	return w.walk(root, 1)
}

type walker struct {
	fn      func(Node) error
	opts    options
	visited map[ast.Selection]struct{}
	clamped bool
}

func (w *walker) walk(n Node, level int) error {
	if !n.IsFragment() && level > w.opts.maxDepth {
		if !w.clamped {
			w.clamped = true
			logging.Warn().Int("max_depth", w.opts.maxDepth).Str("field", n.Name()).
				Msg("selection nested beyond depth cap, skipping")
		}
		return nil
	}
	if _, seen := w.visited[n.sel]; seen {
		return nil
	}
	w.visited[n.sel] = struct{}{}

	next := level
	if !n.IsFragment() {
		if err := w.fn(n); err != nil {
			return err
		}
		next = level + 1
	}
	for _, c := range n.Children() {
		if err := w.walk(c, next); err != nil {
			return err
		}
	}
	return nil
}

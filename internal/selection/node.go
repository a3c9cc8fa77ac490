// Package selection reads GraphQL selection trees.
//
// The package wraps gqlparser's AST with a read-only Node that hides the
// difference between fields, inline fragments and fragment spreads, then
// offers two traversals over it: Walk visits every field once for join
// planning, Depth measures how many levels of children were requested.
package selection

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/pthm/categorytree/internal/treeerr"
)

// Kind is the kind of a selection node.
type Kind int

const (
	KindInvalid Kind = iota
	KindField
	KindInlineFragment
	KindFragmentSpread
)

func (k Kind) String() string {
	switch k {
	case KindField:
		return "Field"
	case KindInlineFragment:
		return "InlineFragment"
	case KindFragmentSpread:
		return "FragmentSpread"
	default:
		return "Invalid"
	}
}

// Node is a read-only view of one selection. The zero Node is invalid.
type Node struct {
	sel       ast.Selection
	fragments ast.FragmentDefinitionList
}

// FromField wraps a field. fragments are the document's fragment
// definitions, used to resolve spreads that were not linked by validation.
func FromField(f *ast.Field, fragments ast.FragmentDefinitionList) Node {
	if f == nil {
		return Node{}
	}
	return Node{sel: f, fragments: fragments}
}

// FromSelection wraps any selection.
func FromSelection(sel ast.Selection, fragments ast.FragmentDefinitionList) Node {
	switch s := sel.(type) {
	case *ast.Field:
		if s == nil {
			return Node{}
		}
	case *ast.InlineFragment:
		if s == nil {
			return Node{}
		}
	case *ast.FragmentSpread:
		if s == nil {
			return Node{}
		}
	default:
		return Node{}
	}
	return Node{sel: sel, fragments: fragments}
}

// ParseRoot parses a query document and returns the first field named
// fieldName, searching every operation's top-level selections and the
// fragments they spread.
func ParseRoot(query, fieldName string) (Node, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return Node{}, fmt.Errorf("%w: %v", treeerr.ErrMalformedSelection, err)
	}
	for _, op := range doc.Operations {
		for _, sel := range op.SelectionSet {
			if found, ok := findField(FromSelection(sel, doc.Fragments), fieldName, map[string]bool{}); ok {
				return found, nil
			}
		}
	}
	return Node{}, fmt.Errorf("%w: no %q field in query", treeerr.ErrMalformedSelection, fieldName)
}

func findField(n Node, name string, visitedFragments map[string]bool) (Node, bool) {
	switch n.Kind() {
	case KindField:
		if n.Name() == name {
			return n, true
		}
		return Node{}, false
	case KindFragmentSpread:
		if visitedFragments[n.Name()] {
			return Node{}, false
		}
		visitedFragments[n.Name()] = true
	}
	for _, c := range n.Children() {
		if found, ok := findField(c, name, visitedFragments); ok {
			return found, true
		}
	}
	return Node{}, false
}

// Valid reports whether the node wraps a selection.
func (n Node) Valid() bool {
	return n.sel != nil
}

// Kind returns the node kind.
func (n Node) Kind() Kind {
	switch n.sel.(type) {
	case *ast.Field:
		return KindField
	case *ast.InlineFragment:
		return KindInlineFragment
	case *ast.FragmentSpread:
		return KindFragmentSpread
	default:
		return KindInvalid
	}
}

// IsFragment reports whether the node is an inline fragment or spread.
func (n Node) IsFragment() bool {
	k := n.Kind()
	return k == KindInlineFragment || k == KindFragmentSpread
}

// Name returns the field name, the spread's fragment name, or the inline
// fragment's type condition.
func (n Node) Name() string {
	switch s := n.sel.(type) {
	case *ast.Field:
		return s.Name
	case *ast.InlineFragment:
		return s.TypeCondition
	case *ast.FragmentSpread:
		return s.Name
	default:
		return ""
	}
}

// ResponseName returns the alias of a field, falling back to its name.
func (n Node) ResponseName() string {
	if f, ok := n.sel.(*ast.Field); ok && f.Alias != "" {
		return f.Alias
	}
	return n.Name()
}

// Field returns the underlying field, or nil for fragments.
func (n Node) Field() *ast.Field {
	f, _ := n.sel.(*ast.Field)
	return f
}

// Children returns the node's sub-selections in document order. A spread
// whose definition cannot be found has no children.
func (n Node) Children() []Node {
	var set ast.SelectionSet
	switch s := n.sel.(type) {
	case *ast.Field:
		set = s.SelectionSet
	case *ast.InlineFragment:
		set = s.SelectionSet
	case *ast.FragmentSpread:
		def := s.Definition
		if def == nil {
			def = n.fragments.ForName(s.Name)
		}
		if def == nil {
			return nil
		}
		set = def.SelectionSet
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]Node, 0, len(set))
	for _, sel := range set {
		if c := FromSelection(sel, n.fragments); c.Valid() {
			out = append(out, c)
		}
	}
	return out
}

// Fields returns the fields directly selected beneath n, looking through
// fragments. Order follows the document.
func (n Node) Fields() []Node {
	var out []Node
	collectFields(n, &out, map[string]bool{})
	return out
}

func collectFields(n Node, out *[]Node, visitedFragments map[string]bool) {
	for _, c := range n.Children() {
		switch c.Kind() {
		case KindField:
			*out = append(*out, c)
		case KindFragmentSpread:
			if visitedFragments[c.Name()] {
				continue
			}
			visitedFragments[c.Name()] = true
			collectFields(c, out, visitedFragments)
		case KindInlineFragment:
			collectFields(c, out, visitedFragments)
		}
	}
}

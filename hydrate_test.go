package categorytree_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pthm/categorytree"
)

type shape struct {
	ID       categorytree.NodeID
	Children []shape
}

func shapeOf(nodes []*categorytree.Node) []shape {
	out := make([]shape, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, shape{ID: n.ID, Children: shapeOf(n.Children)})
	}
	return out
}

func TestBuildTree(t *testing.T) {
	rows := []categorytree.Row{
		{ID: 2, ParentID: 1, Level: 1},
		{ID: 4, ParentID: 2, Level: 2, Position: 2},
		{ID: 3, ParentID: 2, Level: 2, Position: 1},
		{ID: 8, ParentID: 4, Level: 3},
		{ID: 6, ParentID: 3, Level: 3},
		{ID: 9, ParentID: 77, Level: 3},
	}

	got := shapeOf(categorytree.BuildTree(rows))
	want := []shape{
		{ID: 2, Children: []shape{
			{ID: 4, Children: []shape{{ID: 8, Children: []shape{}}}},
			{ID: 3, Children: []shape{{ID: 6, Children: []shape{}}}},
		}},
		{ID: 9, Children: []shape{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildTree() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildTree_DuplicatesAndEmpty(t *testing.T) {
	if got := categorytree.BuildTree(nil); len(got) != 0 {
		t.Errorf("BuildTree(nil) = %v, want empty", got)
	}

	rows := []categorytree.Row{
		{ID: 10, Path: "1/2/10"},
		{ID: 12, ParentID: 10, Path: "1/2/10/12"},
		{ID: 12, ParentID: 10, Path: "duplicate"},
	}
	roots := categorytree.BuildTree(rows)
	if len(roots) != 1 || len(roots[0].Children) != 1 {
		t.Fatalf("BuildTree() = %v, want one root with one child", shapeOf(roots))
	}
	if got := roots[0].Children[0].Path; got != "1/2/10/12" {
		t.Errorf("duplicate id kept path %q, want the first row", got)
	}
}

func TestNode_Walk(t *testing.T) {
	roots := categorytree.BuildTree([]categorytree.Row{
		{ID: 1},
		{ID: 2, ParentID: 1},
		{ID: 3, ParentID: 2},
		{ID: 4, ParentID: 1},
	})

	var seen []categorytree.NodeID
	roots[0].Walk(func(n *categorytree.Node) bool {
		seen = append(seen, n.ID)
		return n.ID != 3
	})
	if diff := cmp.Diff([]categorytree.NodeID{1, 2, 3}, seen); diff != "" {
		t.Errorf("Walk visited (-want +got):\n%s", diff)
	}
}

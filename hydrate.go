package categorytree

// Node is a Row nested under its parent.
type Node struct {
	Row
	Children []*Node
}

// BuildTree nests rows under their parents by ParentID. Siblings keep the
// order they had in rows. Rows whose parent is not among rows become roots,
// so the requested root of a subtree query (and every root of a multi-root
// query) is returned at the top level. Duplicate ids keep the first row.
func BuildTree(rows []Row) []*Node {
	nodes := make(map[NodeID]*Node, len(rows))
	ordered := make([]*Node, 0, len(rows))
	for _, r := range rows {
		if _, dup := nodes[r.ID]; dup {
			continue
		}
		n := &Node{Row: r}
		nodes[r.ID] = n
		ordered = append(ordered, n)
	}

	var roots []*Node
	for _, n := range ordered {
		parent, ok := nodes[n.ParentID]
		if !ok || parent == n {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return roots
}

// Walk calls fn for n and its descendants depth-first, stopping early when
// fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

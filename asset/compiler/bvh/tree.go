package bvh

// Stored in Node.Right to mark a leaf node.
const LeafMarker int32 = -1

// A BVH tree node. Nodes are stored as a contiguous list and reference each
// other by index.
//
// If Right is negative the node is a leaf and Left indexes the tree's leaf
// list. Otherwise Left and Right point to the child nodes; the left child
// always immediately follows its parent.
type Node struct {
	Bound Bound
	Left  int32
	Right int32
	Depth int
}

// Returns true if this is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.Right < 0
}

// Get the index of the leaf referenced by this node. Returns -1 for
// internal nodes.
func (n *Node) LeafIndex() int32 {
	if !n.IsLeaf() {
		return -1
	}
	return n.Left
}

// Get the child node indices. Returns ok=false for leaf nodes.
func (n *Node) Children() (left, right int32, ok bool) {
	if n.IsLeaf() {
		return 0, 0, false
	}
	return n.Left, n.Right, true
}

// A leaf holds the IDs of the primitives that were not further partitioned.
type Leaf struct {
	Depth int
	IDs   []int32

	// Set if the builder could not find a valid split for this leaf and it
	// may therefore exceed the configured max primitive count.
	Fallback bool
}

// A BVH tree. The root node, if any, is always Nodes[0].
type Tree struct {
	Nodes  []Node
	Leaves []Leaf
}

// Reset the tree so it can be reused for another build.
func (t *Tree) Clear() {
	t.Nodes = t.Nodes[:0]
	t.Leaves = t.Leaves[:0]
}

// Returns true if the tree has no nodes.
func (t *Tree) Empty() bool {
	return len(t.Nodes) == 0
}

// Get the root node bound.
func (t *Tree) Bound() Bound {
	if t.Empty() {
		return InvalidBound()
	}
	return t.Nodes[0].Bound
}

// Visit all nodes in pre-order (node, left subtree, right subtree). Walk
// stops early if fn returns false.
func (t *Tree) Walk(fn func(nodeIndex int32, node *Node) bool) {
	if t.Empty() {
		return
	}

	stack := []int32{0}
	for len(stack) > 0 {
		nodeIndex := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &t.Nodes[nodeIndex]
		if !fn(nodeIndex, node) {
			return
		}

		if left, right, ok := node.Children(); ok {
			stack = append(stack, right, left)
		}
	}
}

// Returns true if a pre-order traversal from Nodes[0] visits every node and
// visits the leafs in the same order that they are stored in the leaf list.
// Vertex data emitted in leaf order can only be addressed by node order when
// this holds. Trees holding more than one root (Build invoked again without
// Clear) fail this check.
func (t *Tree) CheckLeafOrder() bool {
	var nextLeaf int32
	visited := 0
	inOrder := true
	t.Walk(func(_ int32, node *Node) bool {
		visited++
		if !node.IsLeaf() {
			return true
		}
		if node.Left != nextLeaf {
			inOrder = false
			return false
		}
		nextLeaf++
		return true
	})
	return inOrder && visited == len(t.Nodes) && int(nextLeaf) == len(t.Leaves)
}

// Returns the total number of primitive IDs stored in the tree leafs.
func (t *Tree) PrimitiveCount() int {
	count := 0
	for _, leaf := range t.Leaves {
		count += len(leaf.IDs)
	}
	return count
}

package bvh

import (
	"fmt"

	"github.com/achilleasa/polaris-bvh/types"
)

// A GPU-friendly BVH node. Each node takes 32 bytes.
//
// For internal nodes Left and Right are both >= 0 and point to the child
// nodes. For leafs Right is < 0 and -Right is the number of primitives in
// the leaf while Left is the offset of the first primitive. Depending on the
// flattening method the offset points either to a primitive ID list or to a
// vertex list sorted in leaf order.
type FlatNode struct {
	BoundMin types.Vec3
	Left     int32

	BoundMax types.Vec3
	Right    int32
}

// Returns true if this is a leaf node.
func (n *FlatNode) IsLeaf() bool {
	return n.Right < 0
}

// Set left and right child node indices.
func (n *FlatNode) SetChildNodes(left, right int32) {
	n.Left = left
	n.Right = right
}

// Set leaf primitive offset and count.
func (n *FlatNode) SetPrimitives(start, count int32) {
	if count <= 0 {
		panic(fmt.Sprintf("bvh: leaf primitive count must be positive; got %d", count))
	}
	n.Left = start
	n.Right = -count
}

// Get leaf primitive offset and count.
func (n *FlatNode) Primitives() (start, count int32) {
	return n.Left, -n.Right
}

// Get the node bound.
func (n *FlatNode) Bound() Bound {
	return Bound{Min: n.BoundMin, Max: n.BoundMax}
}

func newFlatNode(node *Node) FlatNode {
	return FlatNode{
		BoundMin: node.Bound.Min,
		BoundMax: node.Bound.Max,
	}
}

// Flatten the tree into a node list and a global primitive ID list. Nodes
// keep their index; each leaf points to a contiguous range of the returned
// ID list.
func Generate(tree *Tree) (nodes []FlatNode, primitiveIDs []int32) {
	nodes = make([]FlatNode, len(tree.Nodes))
	primitiveIDs = make([]int32, 0, tree.PrimitiveCount())

	for index := range tree.Nodes {
		src := &tree.Nodes[index]
		node := &nodes[index]
		*node = newFlatNode(src)

		if src.IsLeaf() {
			leaf := &tree.Leaves[src.Left]
			node.SetPrimitives(int32(len(primitiveIDs)), int32(len(leaf.IDs)))
			primitiveIDs = append(primitiveIDs, leaf.IDs...)
			continue
		}

		node.SetChildNodes(src.Left, src.Right)
	}

	return nodes, primitiveIDs
}

// Append the flattened tree to dst for use with a triangle vertex list that
// is sorted in leaf order (see LeafOrderIDs). Child node indices are offset by
// len(dst). Leaf nodes point to the first vertex of their first triangle
// starting at vertexStart; each triangle occupies 3 vertices and -Right is the
// leaf triangle count.
//
// The tree must contain a single root at Nodes[0] with its leafs stored in
// traversal order (see Tree.CheckLeafOrder); otherwise AppendVertexBlock
// panics.
//
// Returns the updated node list and the vertex offset after the last emitted
// triangle.
func AppendVertexBlock(dst []FlatNode, tree *Tree, vertexStart int32) ([]FlatNode, int32) {
	if !tree.CheckLeafOrder() {
		panic("bvh: tree leafs are not stored in traversal order")
	}

	nodeOffset := int32(len(dst))
	vertexOffset := vertexStart
	for index := range tree.Nodes {
		src := &tree.Nodes[index]
		node := newFlatNode(src)

		if src.IsLeaf() {
			triCount := int32(len(tree.Leaves[src.Left].IDs))
			node.SetPrimitives(vertexOffset, triCount)
			vertexOffset += 3 * triCount
		} else {
			node.SetChildNodes(nodeOffset+src.Left, nodeOffset+src.Right)
		}

		dst = append(dst, node)
	}

	return dst, vertexOffset
}

// Returns the primitive IDs of all leafs reachable from Nodes[0] in traversal
// order.
func LeafOrderIDs(tree *Tree) []int32 {
	ids := make([]int32, 0, tree.PrimitiveCount())
	tree.Walk(func(_ int32, node *Node) bool {
		if node.IsLeaf() {
			ids = append(ids, tree.Leaves[node.Left].IDs...)
		}
		return true
	})
	return ids
}

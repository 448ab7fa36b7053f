package bvh

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/achilleasa/polaris-bvh/log"
	"github.com/chewxy/math32"
)

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis
)

// The strategy used for selecting split points.
type SplitMethod uint8

const (
	// Bucketed surface area heuristic.
	SAH SplitMethod = iota

	// Split at the median primitive along the axis with the largest extent.
	NodeBalance
)

const (
	// The default max number of primitives that can be stored in a leaf.
	DefaultMaxLeafPrimitiveCount = 5

	// Number of buckets evaluated per axis by the SAH split strategy.
	sahBucketCount = 16

	// The SAH builder will not attempt to calculate split candidates
	// along an axis whose extent is less than this threshold.
	minAxisExtent float32 = 1e-6
)

func (m SplitMethod) String() string {
	switch m {
	case SAH:
		return "sah"
	case NodeBalance:
		return "balance"
	}
	return fmt.Sprintf("SplitMethod(%d)", uint8(m))
}

// Parse a split method name (sah, balance).
func ParseSplitMethod(name string) (SplitMethod, error) {
	switch strings.ToLower(name) {
	case "sah":
		return SAH, nil
	case "balance", "nodebalance", "node-balance":
		return NodeBalance, nil
	}
	return SAH, fmt.Errorf("bvh: unknown split method %q", name)
}

// A builder configuration option.
type Option func(*Builder)

// Set the max number of primitives in a leaf. Values < 1 are clamped to 1.
func WithMaxLeafPrimitiveCount(count int) Option {
	return func(b *Builder) {
		b.maxLeafPrimitiveCount = max(count, 1)
	}
}

// Set the split strategy.
func WithSplitMethod(method SplitMethod) Option {
	return func(b *Builder) {
		b.splitMethod = method
	}
}

// A work item references a primitive by its index in the input list. The
// value field caches the primitive center along the current split axis.
type workItem struct {
	value float32
	index int32
}

type bucket struct {
	count int
	bound Bound
}

// The Builder partitions a list of primitives into a BVH tree. A builder
// may be reused for multiple builds but it must not be shared between
// goroutines.
type Builder struct {
	logger log.Logger

	// The tree receiving the generated nodes and leafs.
	tree *Tree

	maxLeafPrimitiveCount int
	splitMethod           SplitMethod

	// The primitives being partitioned by the current build.
	prims []Primitive
}

// Create a builder that appends nodes and leafs to tree.
func NewBuilder(tree *Tree, opts ...Option) *Builder {
	b := &Builder{
		logger:                log.New("bvh builder"),
		tree:                  tree,
		maxLeafPrimitiveCount: DefaultMaxLeafPrimitiveCount,
		splitMethod:           SAH,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Get the max number of primitives in a leaf.
func (b *Builder) MaxLeafPrimitiveCount() int {
	return b.maxLeafPrimitiveCount
}

// Partition prims and append the generated nodes and leafs to the builder
// tree. Returns the index of the root node which is 0 unless the tree
// already contained nodes.
//
// The prims list is never modified and may be shared with other builders.
func (b *Builder) Build(prims []Primitive) (int32, error) {
	if err := ValidatePrimitives(prims); err != nil {
		return -1, err
	}

	start := time.Now()
	b.prims = prims
	defer func() { b.prims = nil }()

	workList := make([]workItem, len(prims))
	for index := range workList {
		workList[index].index = int32(index)
	}

	root := b.buildNode(workList, b.boundOf(workList), 0)

	stats := b.tree.CalcStats()
	b.logger.Debugf(
		"BVH tree build time: %d ms, primitives: %d, split: %s, nodes: %d, leafs: %d, maxDepth: %d",
		time.Since(start).Nanoseconds()/1e6,
		len(prims), b.splitMethod, stats.Nodes, stats.Leaves, stats.MaxDepth,
	)
	return root, nil
}

// Partition work list and return node index.
func (b *Builder) buildNode(workList []workItem, bound Bound, depth int) int32 {
	var (
		splitCount  = -1
		splitAxis   Axis
		childBounds [2]Bound
	)

	if len(workList) > b.maxLeafPrimitiveCount {
		switch b.splitMethod {
		case NodeBalance:
			splitAxis = bound.MaxExtentAxis()
			splitCount = len(workList) / 2
		default:
			splitAxis, splitCount, childBounds = b.findSAHSplit(workList, bound)
		}
	}

	// Reserve the node slot before recursing so the left child ends up
	// right after its parent.
	nodeIndex := int32(len(b.tree.Nodes))
	b.tree.Nodes = append(b.tree.Nodes, Node{})

	if splitCount == -1 {
		leafIndex := b.createLeaf(workList, depth, len(workList) > b.maxLeafPrimitiveCount)
		b.tree.Nodes[nodeIndex] = Node{
			Bound: bound,
			Left:  leafIndex,
			Right: LeafMarker,
			Depth: depth,
		}
		return nodeIndex
	}

	for index := range workList {
		workList[index].value = b.prims[workList[index].index].Center[splitAxis]
	}
	selectSmallest(workList, splitCount)
	leftWorkList, rightWorkList := workList[:splitCount], workList[splitCount:]

	if b.splitMethod == NodeBalance {
		childBounds[0] = b.boundOf(leftWorkList)
		childBounds[1] = b.boundOf(rightWorkList)
	}

	leftNodeIndex := b.buildNode(leftWorkList, childBounds[0], depth+1)
	rightNodeIndex := b.buildNode(rightWorkList, childBounds[1], depth+1)
	if leftNodeIndex != nodeIndex+1 {
		panic(fmt.Sprintf("bvh: left child of node %d stored at index %d", nodeIndex, leftNodeIndex))
	}

	b.tree.Nodes[nodeIndex] = Node{
		Bound: bound,
		Left:  leftNodeIndex,
		Right: rightNodeIndex,
		Depth: depth,
	}
	return nodeIndex
}

// Bucket the work list along each axis and evaluate the SAH score for every
// boundary between two non-empty bucket groups. The score is:
//
// left count * left BBOX area + right count * right BBOX area.
//
// Splits are compared using a strict less-than so when scores tie the lowest
// axis and then the lowest bucket boundary wins. Returns splitCount = -1 if
// no split could be evaluated.
func (b *Builder) findSAHSplit(workList []workItem, bound Bound) (splitAxis Axis, splitCount int, childBounds [2]Bound) {
	splitCount = -1
	var minScore float32 = math.MaxFloat32

	var (
		buckets     [sahBucketCount]bucket
		rightCounts [sahBucketCount]int
		rightBounds [sahBucketCount]Bound
	)

	size := bound.Size()
	for axis := XAxis; axis <= ZAxis; axis++ {
		extent := size[axis]
		if extent < minAxisExtent {
			continue
		}

		for index := range buckets {
			buckets[index] = bucket{bound: InvalidBound()}
		}
		for _, item := range workList {
			prim := &b.prims[item.index]
			index := bucketIndex(prim.Center[axis], bound.Min[axis], extent)
			buckets[index].count++
			buckets[index].bound = buckets[index].bound.Union(prim.Bound)
		}

		// Accumulate right side counts and bounds for each boundary.
		rightCounts[sahBucketCount-1] = buckets[sahBucketCount-1].count
		rightBounds[sahBucketCount-1] = buckets[sahBucketCount-1].bound
		for index := sahBucketCount - 2; index >= 0; index-- {
			rightCounts[index] = rightCounts[index+1] + buckets[index].count
			rightBounds[index] = rightBounds[index+1].Union(buckets[index].bound)
		}

		leftCount := 0
		leftBound := InvalidBound()
		for index := 0; index < sahBucketCount-1; index++ {
			if buckets[index].count == 0 {
				continue
			}

			leftCount += buckets[index].count
			leftBound = leftBound.Union(buckets[index].bound)

			rightCount := rightCounts[index+1]
			if rightCount == 0 {
				continue
			}

			score := leftBound.SurfaceArea()*float32(leftCount) + rightBounds[index+1].SurfaceArea()*float32(rightCount)
			if score < minScore {
				minScore = score
				splitAxis = axis
				splitCount = leftCount
				childBounds = [2]Bound{leftBound, rightBounds[index+1]}
			}
		}
	}

	return splitAxis, splitCount, childBounds
}

// Map a center coordinate to a SAH bucket.
func bucketIndex(center, boundMin, extent float32) int {
	index := int(math32.Floor(float32(sahBucketCount) * (center - boundMin) / extent))
	if index < 0 {
		return 0
	}
	if index >= sahBucketCount {
		return sahBucketCount - 1
	}
	return index
}

// Setup a leaf containing all items in the work list. Returns the index to
// the leaf in the tree leaf list.
func (b *Builder) createLeaf(workList []workItem, depth int, fallback bool) int32 {
	leaf := Leaf{
		Depth:    depth,
		IDs:      make([]int32, len(workList)),
		Fallback: fallback,
	}
	for index, item := range workList {
		leaf.IDs[index] = b.prims[item.index].ID
	}

	if fallback {
		b.logger.Debugf("no valid split found for %d primitives at depth %d; creating oversized leaf", len(workList), depth)
	}

	leafIndex := int32(len(b.tree.Leaves))
	b.tree.Leaves = append(b.tree.Leaves, leaf)
	return leafIndex
}

// Calculate the union of the work list primitive bounds.
func (b *Builder) boundOf(workList []workItem) Bound {
	bound := InvalidBound()
	for _, item := range workList {
		bound = bound.Union(b.prims[item.index].Bound)
	}
	return bound
}

// Rearrange items so that the first k entries hold the k smallest values.
// The order within each partition is unspecified.
func selectSmallest(items []workItem, k int) {
	lo, hi := 0, len(items)-1
	for lo < hi {
		pivot := items[lo+(hi-lo)/2].value

		// Three-way partition: [lo,lt) < pivot, [lt,gt] == pivot, (gt,hi] > pivot
		lt, i, gt := lo, lo, hi
		for i <= gt {
			switch {
			case items[i].value < pivot:
				items[lt], items[i] = items[i], items[lt]
				lt++
				i++
			case items[i].value > pivot:
				items[i], items[gt] = items[gt], items[i]
				gt--
			default:
				i++
			}
		}

		switch {
		case k < lt:
			hi = lt - 1
		case k > gt+1:
			lo = gt + 1
		default:
			return
		}
	}
}

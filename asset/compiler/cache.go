package compiler

import (
	"encoding/binary"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"
)

// The default memory budget for cached mesh BVH trees.
const DefaultMeshCacheSize = 64 << 20

// A MeshCache keeps mesh BVH trees around so that meshes with identical
// geometry (e.g. the same asset used by multiple scenes compiled in one
// session) are only partitioned once. Cached trees are shared and must be
// treated as read-only. A MeshCache is safe for concurrent use.
type MeshCache struct {
	trees *ristretto.Cache[uint64, *bvh.Tree]
}

// Create a mesh cache whose contents are limited to roughly maxBytes.
func NewMeshCache(maxBytes int64) (*MeshCache, error) {
	trees, err := ristretto.NewCache(&ristretto.Config[uint64, *bvh.Tree]{
		NumCounters: 1e4,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "compiler: could not create mesh cache")
	}
	return &MeshCache{trees: trees}, nil
}

// Lookup the cached tree for a mesh built with the given options.
func (c *MeshCache) get(mesh *input.Mesh, opts Options) (*bvh.Tree, bool) {
	return c.trees.Get(meshKey(mesh, opts))
}

// Cache a mesh tree. Returns false if the cache rejected the entry.
func (c *MeshCache) put(mesh *input.Mesh, opts Options, tree *bvh.Tree) bool {
	if !c.trees.Set(meshKey(mesh, opts), tree, treeCost(tree)) {
		return false
	}
	c.trees.Wait()
	return true
}

// Release cache resources.
func (c *MeshCache) Close() {
	c.trees.Close()
}

// Generate a cache key from the mesh positions and the options that affect
// the tree layout.
func meshKey(mesh *input.Mesh, opts Options) uint64 {
	digest := xxhash.New()
	_ = binary.Write(digest, binary.LittleEndian, mesh.Positions)
	_ = binary.Write(digest, binary.LittleEndian, [2]int32{int32(opts.SplitMethod), int32(effectiveMaxLeaf(opts.MeshMaxLeafPrimitives))})
	return digest.Sum64()
}

// Get the leaf size the builder actually uses for a requested value.
func effectiveMaxLeaf(count int) int {
	return bvh.NewBuilder(nil, bvh.WithMaxLeafPrimitiveCount(count)).MaxLeafPrimitiveCount()
}

// Estimate the memory used by a tree.
func treeCost(tree *bvh.Tree) int64 {
	const nodeSize, leafSize, idSize = 48, 40, 4
	return int64(len(tree.Nodes)*nodeSize + len(tree.Leaves)*leafSize + tree.PrimitiveCount()*idSize)
}

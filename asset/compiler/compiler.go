package compiler

import (
	"context"
	"math"
	"runtime"
	"time"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/asset/scene"
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/achilleasa/polaris-bvh/types"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	// Object BVH leafs are kept small; each object is comparatively
	// expensive to intersect.
	DefaultObjectMaxLeafPrimitives = 2
)

// Compiler options.
type Options struct {
	SplitMethod bvh.SplitMethod

	// Max primitives per leaf for mesh and object BVH trees.
	MeshMaxLeafPrimitives   int
	ObjectMaxLeafPrimitives int

	// The max number of mesh BVH trees built in parallel.
	Workers int

	// An optional cache for mesh BVH trees.
	Cache *MeshCache
}

// Get the default compiler options.
func DefaultOptions() Options {
	return Options{
		SplitMethod:             bvh.SAH,
		MeshMaxLeafPrimitives:   bvh.DefaultMaxLeafPrimitiveCount,
		ObjectMaxLeafPrimitives: DefaultObjectMaxLeafPrimitives,
		Workers:                 runtime.NumCPU(),
	}
}

type sceneCompiler struct {
	parsedScene    *input.Scene
	optimizedScene *scene.Scene
	opts           Options
	logger         log.Logger

	// Mesh BVH trees indexed by mesh index.
	meshTrees []*bvh.Tree
}

// Compile a scene representation parsed by a scene reader into a GPU-friendly
// optimized scene format.
func Compile(ctx context.Context, parsedScene *input.Scene, opts Options) (*scene.Scene, error) {
	if len(parsedScene.Meshes) == 0 && len(parsedScene.Objects) == 0 {
		return nil, errors.New("compiler: scene contains no meshes or objects")
	}

	compiler := &sceneCompiler{
		parsedScene:    parsedScene,
		optimizedScene: &scene.Scene{},
		opts:           opts,
		logger:         log.New("scene compiler"),
	}

	start := time.Now()
	compiler.logger.Noticef("compiling scene")

	err := compiler.partitionMeshes(ctx)
	if err != nil {
		return nil, err
	}

	err = compiler.partitionObjects()
	if err != nil {
		return nil, err
	}

	compiler.logger.Noticef("compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return compiler.optimizedScene, nil
}

// Build a BVH tree for each mesh and append the flattened trees to the mesh
// node list. The mesh vertices are emitted in leaf order so each mesh leaf
// addresses a contiguous vertex range.
func (sc *sceneCompiler) partitionMeshes(ctx context.Context) error {
	start := time.Now()
	sc.logger.Noticef("partitioning %d meshes", len(sc.parsedScene.Meshes))

	for _, mesh := range sc.parsedScene.Meshes {
		if err := mesh.Validate(); err != nil {
			return err
		}
	}

	// Mesh trees do not depend on each other so they can be built in parallel.
	sc.meshTrees = make([]*bvh.Tree, len(sc.parsedScene.Meshes))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(sc.opts.Workers, 1))
	for meshIndex, mesh := range sc.parsedScene.Meshes {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			tree, err := sc.buildMeshTree(mesh)
			if err != nil {
				return errors.Wrapf(err, "compiler: could not partition mesh %q", mesh.Name)
			}
			sc.meshTrees[meshIndex] = tree
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	totalVertices := 0
	for _, mesh := range sc.parsedScene.Meshes {
		totalVertices += 3 * mesh.TriangleCount()
	}

	out := sc.optimizedScene
	out.Vertices = make([]scene.MeshVertex, 0, totalVertices)
	out.Meshes = make([]scene.MeshData, len(sc.parsedScene.Meshes))
	out.MeshStats = make([]bvh.Stats, len(sc.parsedScene.Meshes))
	for meshIndex, mesh := range sc.parsedScene.Meshes {
		tree := sc.meshTrees[meshIndex]
		nodeOffset := int32(len(out.MeshNodes))
		vertexOffset := int32(len(out.Vertices))

		out.MeshNodes, _ = bvh.AppendVertexBlock(out.MeshNodes, tree, vertexOffset)

		// Primitive IDs point to the first vertex of each triangle
		for _, id := range bvh.LeafOrderIDs(tree) {
			for n := int32(0); n < 3; n++ {
				out.Vertices = append(out.Vertices, scene.MeshVertex{
					Position: mesh.Positions[id+n],
					Normal:   mesh.Normal(int(id + n)),
				})
			}
		}

		bound := tree.Bound()
		out.Meshes[meshIndex] = scene.MeshData{
			BoundMin:     bound.Min,
			StartIndex:   vertexOffset,
			BoundMax:     bound.Max,
			NumTriangles: int32(mesh.TriangleCount()),
			NodeIndex:    nodeOffset,
		}
		out.MeshStats[meshIndex] = tree.CalcStats()
	}

	sc.logger.Noticef("partitioned meshes in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Build or fetch from the cache the BVH tree for a mesh.
func (sc *sceneCompiler) buildMeshTree(mesh *input.Mesh) (*bvh.Tree, error) {
	if sc.opts.Cache != nil {
		if tree, found := sc.opts.Cache.get(mesh, sc.opts); found {
			sc.logger.Infof(`using cached BVH tree for "%s"`, mesh.Name)
			return tree, nil
		}
	}

	sc.logger.Infof(`building BVH tree for "%s" (%d primitives)`, mesh.Name, mesh.TriangleCount())
	tree := &bvh.Tree{}
	builder := bvh.NewBuilder(
		tree,
		bvh.WithSplitMethod(sc.opts.SplitMethod),
		bvh.WithMaxLeafPrimitiveCount(sc.opts.MeshMaxLeafPrimitives),
	)
	if _, err := builder.Build(mesh.Primitives()); err != nil {
		return nil, err
	}

	if sc.opts.Cache != nil && !sc.opts.Cache.put(mesh, sc.opts, tree) {
		sc.logger.Debugf(`mesh cache rejected BVH tree for "%s"`, mesh.Name)
	}
	return tree, nil
}

// Partition scene objects into a BVH tree whose leafs point into a shared
// object ID list.
func (sc *sceneCompiler) partitionObjects() error {
	out := sc.optimizedScene
	if len(sc.parsedScene.Objects) == 0 {
		sc.logger.Warning("the scene contains no objects; mesh data will not be reachable by the object BVH")
		return nil
	}

	start := time.Now()
	sc.logger.Infof("building object BVH tree (%d meshes, %d objects)", len(sc.parsedScene.Meshes), len(sc.parsedScene.Objects))

	meshBounds := make([]bvh.Bound, len(sc.meshTrees))
	for meshIndex, tree := range sc.meshTrees {
		meshBounds[meshIndex] = tree.Bound()
	}

	prims := make([]bvh.Primitive, len(sc.parsedScene.Objects))
	out.Objects = make([]scene.ObjectData, len(sc.parsedScene.Objects))
	for index, obj := range sc.parsedScene.Objects {
		prim, err := obj.Primitive(int32(index), meshBounds)
		if err != nil {
			return err
		}
		prims[index] = prim
		out.Objects[index] = encodeObject(obj)
	}

	tree := &bvh.Tree{}
	builder := bvh.NewBuilder(
		tree,
		bvh.WithSplitMethod(sc.opts.SplitMethod),
		bvh.WithMaxLeafPrimitiveCount(sc.opts.ObjectMaxLeafPrimitives),
	)
	if _, err := builder.Build(prims); err != nil {
		return errors.Wrap(err, "compiler: could not partition scene objects")
	}

	out.SceneNodes, out.ObjectIDs = bvh.Generate(tree)
	out.SceneStats = tree.CalcStats()
	sc.logger.Debugf("object BVH statistics:\n%s", out.SceneStats.Table())

	sc.logger.Noticef("partitioned objects in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Convert an input object to its GPU representation.
func encodeObject(obj *input.Object) scene.ObjectData {
	rot := obj.Orientation()
	data := scene.ObjectData{
		Position:      obj.Position,
		Type:          scene.ObjectType(obj.Type),
		Rotation:      types.Vec4{rot.V[0], rot.V[1], rot.V[2], rot.W},
		MaterialIndex: obj.MaterialIndex,
	}

	switch obj.Type {
	case input.Sphere:
		data.Meta = types.XYZ(obj.Radius, 0, 0)
	case input.Box:
		data.Meta = obj.Size.Mul(0.5)
	case input.Quad:
		data.Meta = types.XYZ(0.5*obj.Size[0], 0.5*obj.Size[1], 0)
	case input.MeshInstance:
		scale := obj.Scale
		if scale == 0 {
			scale = 1
		}
		data.Meta = types.XYZ(math.Float32frombits(uint32(obj.MeshIndex)), scale, 0)
	}
	return data
}

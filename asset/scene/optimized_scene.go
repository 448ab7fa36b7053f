package scene

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/types"
	"github.com/olekukonko/tablewriter"
)

// A mesh vertex. Mesh vertices are stored in BVH leaf order so that mesh BVH
// leafs can address their triangles as a contiguous vertex range.
type MeshVertex struct {
	Position types.Vec3
	Normal   types.Vec3
}

// Per-mesh metadata.
type MeshData struct {
	BoundMin   types.Vec3
	StartIndex int32

	BoundMax     types.Vec3
	NumTriangles int32

	// The root of the mesh BVH inside the mesh node list.
	NodeIndex int32

	_ [3]int32
}

// The type of an object stored in the object list. The values match the
// object type constants of the input package.
type ObjectType int32

// A scene object.
type ObjectData struct {
	Position types.Vec3
	Type     ObjectType

	// Rotation quaternion (x, y, z, w).
	Rotation types.Vec4

	// Layout:
	// - sphere: [0] radius
	// - box, quad: half extents
	// - mesh: [0] mesh index (int32 bits), [1] scale
	Meta          types.Vec3
	MaterialIndex int32
}

type Scene struct {
	// BVH trees for all meshes stored back to back. Leafs point to the
	// first vertex of their triangles in Vertices.
	MeshNodes []bvh.FlatNode
	Vertices  []MeshVertex
	Meshes    []MeshData

	// Object BVH tree. Leafs point to a range of ObjectIDs.
	SceneNodes []bvh.FlatNode
	ObjectIDs  []int32
	Objects    []ObjectData

	// Build statistics for each mesh BVH and the object BVH.
	MeshStats  []bvh.Stats
	SceneStats bvh.Stats
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Count", "Size"})
	table.Append([]string{"Geometry", "---", "", fmtSize(sc.Vertices, sc.MeshNodes, sc.Meshes)})
	table.Append([]string{"", "Vertices", fmt.Sprint(len(sc.Vertices)), fmtSize(sc.Vertices)})
	table.Append([]string{"", "Mesh BVH nodes", fmt.Sprint(len(sc.MeshNodes)), fmtSize(sc.MeshNodes)})
	table.Append([]string{"", "Meshes", fmt.Sprint(len(sc.Meshes)), fmtSize(sc.Meshes)})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"Objects", "---", "", fmtSize(sc.SceneNodes, sc.ObjectIDs, sc.Objects)})
	table.Append([]string{"", "Scene BVH nodes", fmt.Sprint(len(sc.SceneNodes)), fmtSize(sc.SceneNodes)})
	table.Append([]string{"", "Object IDs", fmt.Sprint(len(sc.ObjectIDs)), fmtSize(sc.ObjectIDs)})
	table.Append([]string{"", "Objects", fmt.Sprint(len(sc.Objects)), fmtSize(sc.Objects)})
	table.SetFooter([]string{"Total", " ", " ", strings.TrimLeft(fmtSize(sc.Vertices, sc.MeshNodes, sc.Meshes, sc.SceneNodes, sc.ObjectIDs, sc.Objects), " ")})

	table.Render()
	return buf.String()
}

// Build a tabular representation of the BVH quality statistics.
func (sc *Scene) BvhStats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"BVH", "Nodes", "Leafs", "Depth (min/max/mean)", "Prims per leaf (min/max/mean)", "Fallback leafs"})
	for index, stats := range sc.MeshStats {
		table.Append(statsRow(fmt.Sprintf("mesh %d", index), stats))
	}
	table.Append(statsRow("objects", sc.SceneStats))
	table.Render()
	return buf.String()
}

func statsRow(name string, stats bvh.Stats) []string {
	return []string{
		name,
		fmt.Sprint(stats.Nodes),
		fmt.Sprint(stats.Leaves),
		fmt.Sprintf("%d / %d / %.2f", stats.MinDepth, stats.MaxDepth, stats.MeanDepth),
		fmt.Sprintf("%d / %d / %.2f", stats.MinCount, stats.MaxCount, stats.MeanCount),
		fmt.Sprint(stats.FallbackLeaves),
	}
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}

// Entries of a compiled scene archive.
const (
	// Gob-encoded Scene.
	DataFile = "scene.bin"

	// Raw little-endian GPU buffers.
	MeshNodesFile  = "mesh_nodes.bin"
	VerticesFile   = "vertices.bin"
	MeshesFile     = "meshes.bin"
	SceneNodesFile = "scene_nodes.bin"
	ObjectIDsFile  = "object_ids.bin"
	ObjectsFile    = "objects.bin"
)

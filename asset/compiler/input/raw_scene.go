package input

import (
	"fmt"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/types"
)

// The type of a scene object.
type ObjectType uint8

const (
	Sphere ObjectType = iota
	Box
	Quad
	MeshInstance
)

func (t ObjectType) String() string {
	switch t {
	case Sphere:
		return "sphere"
	case Box:
		return "box"
	case Quad:
		return "quad"
	case MeshInstance:
		return "mesh"
	}
	return fmt.Sprintf("ObjectType(%d)", uint8(t))
}

// Parse an object type name.
func ParseObjectType(name string) (ObjectType, error) {
	for t := Sphere; t <= MeshInstance; t++ {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("input: unknown object type %q", name)
}

// A mesh defined as a triangle soup; every 3 consecutive positions form a
// triangle.
type Mesh struct {
	Name      string
	Positions []types.Vec3

	// Optional per-vertex normals. If specified, the list must have the
	// same length as Positions.
	Normals []types.Vec3
}

// Get the number of mesh triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Positions) / 3
}

// Check that the mesh can be partitioned.
func (m *Mesh) Validate() error {
	if len(m.Positions) == 0 {
		return fmt.Errorf("input: mesh %q has no triangles", m.Name)
	}
	if len(m.Positions)%3 != 0 {
		return fmt.Errorf("input: mesh %q vertex count %d is not a multiple of 3", m.Name, len(m.Positions))
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Positions) {
		return fmt.Errorf("input: mesh %q has %d normals for %d vertices", m.Name, len(m.Normals), len(m.Positions))
	}
	return nil
}

// Generate a BVH primitive for each mesh triangle. The primitive ID is the
// index of the first triangle vertex in Positions.
func (m *Mesh) Primitives() []bvh.Primitive {
	prims := make([]bvh.Primitive, m.TriangleCount())
	for triIndex := range prims {
		bound := bvh.InvalidBound()
		var center types.Vec3
		for _, pos := range m.Positions[3*triIndex : 3*triIndex+3] {
			bound = bound.AddPoint(pos)
			center = center.Add(pos)
		}

		prims[triIndex] = bvh.Primitive{
			ID:     int32(3 * triIndex),
			Center: center.Mul(1.0 / 3.0),
			Bound:  bound,
		}
	}
	return prims
}

// Get the normal for a vertex. If the mesh does not define normals, the
// face normal of the triangle containing the vertex is returned.
func (m *Mesh) Normal(vertexIndex int) types.Vec3 {
	if len(m.Normals) != 0 {
		return m.Normals[vertexIndex]
	}

	first := vertexIndex - vertexIndex%3
	v0, v1, v2 := m.Positions[first], m.Positions[first+1], m.Positions[first+2]
	return v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
}

// An object placed in the scene.
//
// Depending on the object type, the following fields are used:
//   - Sphere: Radius
//   - Box: Size (full extents)
//   - Quad: Size (x and y extents)
//   - MeshInstance: MeshIndex and Scale
type Object struct {
	Type     ObjectType
	Position types.Vec3
	Rotation types.Quat

	Radius    float32
	Size      types.Vec3
	MeshIndex int
	Scale     float32

	MaterialIndex int32
}

// Get the object rotation. Unset rotations are treated as the identity.
func (o *Object) Orientation() types.Quat {
	if o.Rotation.IsZero() {
		return types.QuatIdent()
	}
	return o.Rotation.Normalize()
}

// Generate the BVH primitive for this object. The bounds of mesh instances
// are derived from meshBounds which must be indexed by mesh index.
func (o *Object) Primitive(id int32, meshBounds []bvh.Bound) (bvh.Primitive, error) {
	rotation := o.Orientation()
	prim := bvh.Primitive{ID: id}

	switch o.Type {
	case Sphere:
		if o.Radius <= 0 {
			return prim, fmt.Errorf("input: sphere object %d has non-positive radius %f", id, o.Radius)
		}
		prim.Center = o.Position
		prim.Bound = bvh.NewBound(types.Splat(-o.Radius), types.Splat(o.Radius)).Translate(o.Position)
	case Box:
		prim.Center = o.Position
		prim.Bound = rotatedBound(rotation, types.Vec3{}, o.Size.Mul(0.5)).Translate(o.Position)
	case Quad:
		prim.Center = o.Position
		prim.Bound = rotatedBound(rotation, types.Vec3{}, types.XYZ(0.5*o.Size[0], 0.5*o.Size[1], 0)).Translate(o.Position)
	case MeshInstance:
		if o.MeshIndex < 0 || o.MeshIndex >= len(meshBounds) {
			return prim, fmt.Errorf("input: mesh object %d references unknown mesh %d", id, o.MeshIndex)
		}
		scale := o.Scale
		if scale == 0 {
			scale = 1
		}
		meshBound := meshBounds[o.MeshIndex]
		offset := meshBound.Max.Add(meshBound.Min).Mul(0.5 * scale)
		halfSize := meshBound.Max.Sub(meshBound.Min).Mul(0.5 * scale)

		prim.Center = o.Position.Add(rotation.Rotate(offset))
		prim.Bound = rotatedBound(rotation, offset, halfSize).Translate(o.Position)
	default:
		return prim, fmt.Errorf("input: object %d has unsupported type %s", id, o.Type)
	}

	return prim, nil
}

// Calculate the AABB of a box with the given center and half extents after
// applying a rotation.
func rotatedBound(rotation types.Quat, center, halfSize types.Vec3) bvh.Bound {
	bound := bvh.InvalidBound()
	for corner := 0; corner < 8; corner++ {
		offset := halfSize
		if corner&0x1 == 0 {
			offset[0] = -offset[0]
		}
		if corner&0x2 == 0 {
			offset[1] = -offset[1]
		}
		if corner&0x4 == 0 {
			offset[2] = -offset[2]
		}
		bound = bound.AddPoint(rotation.Rotate(center.Add(offset)))
	}
	return bound
}

// A raw scene definition produced by a scene reader.
type Scene struct {
	Meshes  []*Mesh
	Objects []*Object
}

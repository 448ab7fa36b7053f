package input

import (
	"math"
	"testing"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/types"
)

const cmpTolerance = 1e-4

func approxEqual(v1, v2 types.Vec3) bool {
	for i := range v1 {
		if math.Abs(float64(v1[i]-v2[i])) > cmpTolerance {
			return false
		}
	}
	return true
}

func boundApproxEqual(b1, b2 bvh.Bound) bool {
	return approxEqual(b1.Min, b2.Min) && approxEqual(b1.Max, b2.Max)
}

func TestMeshPrimitives(t *testing.T) {
	mesh := &Mesh{
		Name: "two triangles",
		Positions: []types.Vec3{
			{0, 0, 0}, {3, 0, 0}, {0, 3, 0},
			{0, 0, 1}, {0, 0, 4}, {0, 6, 1},
		},
	}
	if err := mesh.Validate(); err != nil {
		t.Fatal(err)
	}

	prims := mesh.Primitives()
	if len(prims) != 2 {
		t.Fatalf("expected 2 primitives; got %d", len(prims))
	}

	specs := []struct {
		id     int32
		center types.Vec3
		bound  bvh.Bound
	}{
		{0, types.XYZ(1, 1, 0), bvh.NewBound(types.XYZ(0, 0, 0), types.XYZ(3, 3, 0))},
		{3, types.XYZ(0, 2, 2), bvh.NewBound(types.XYZ(0, 0, 1), types.XYZ(0, 6, 4))},
	}
	for index, spec := range specs {
		if prims[index].ID != spec.id {
			t.Fatalf("[prim %d] expected ID %d; got %d", index, spec.id, prims[index].ID)
		}
		if !approxEqual(prims[index].Center, spec.center) {
			t.Fatalf("[prim %d] expected center %v; got %v", index, spec.center, prims[index].Center)
		}
		if prims[index].Bound != spec.bound {
			t.Fatalf("[prim %d] expected bound %v; got %v", index, spec.bound, prims[index].Bound)
		}
	}

	if n := mesh.Normal(4); !approxEqual(n, types.XYZ(-1, 0, 0)) {
		t.Fatalf("expected face normal (-1, 0, 0); got %v", n)
	}
}

func TestMeshValidation(t *testing.T) {
	specs := []*Mesh{
		{Name: "empty"},
		{Name: "partial", Positions: make([]types.Vec3, 4)},
		{Name: "normals", Positions: make([]types.Vec3, 3), Normals: make([]types.Vec3, 2)},
	}
	for _, mesh := range specs {
		if err := mesh.Validate(); err == nil {
			t.Fatalf("expected validation error for mesh %q", mesh.Name)
		}
	}
}

func TestObjectPrimitives(t *testing.T) {
	rotZ90 := types.QuatFromAxisAngle(types.XYZ(0, 0, 1), math.Pi/2)
	meshBounds := []bvh.Bound{
		bvh.NewBound(types.XYZ(0, 0, 0), types.XYZ(2, 4, 6)),
	}

	specs := []struct {
		obj       Object
		expCenter types.Vec3
		expBound  bvh.Bound
	}{
		{
			Object{Type: Sphere, Position: types.XYZ(1, 2, 3), Radius: 0.5},
			types.XYZ(1, 2, 3),
			bvh.NewBound(types.XYZ(0.5, 1.5, 2.5), types.XYZ(1.5, 2.5, 3.5)),
		},
		{
			Object{Type: Box, Position: types.XYZ(0, 0, 10), Size: types.XYZ(2, 4, 6)},
			types.XYZ(0, 0, 10),
			bvh.NewBound(types.XYZ(-1, -2, 7), types.XYZ(1, 2, 13)),
		},
		{
			Object{Type: Box, Size: types.XYZ(2, 4, 6), Rotation: rotZ90},
			types.XYZ(0, 0, 0),
			bvh.NewBound(types.XYZ(-2, -1, -3), types.XYZ(2, 1, 3)),
		},
		{
			Object{Type: Quad, Position: types.XYZ(1, 1, 1), Size: types.XYZ(2, 2, 0)},
			types.XYZ(1, 1, 1),
			bvh.NewBound(types.XYZ(0, 0, 1), types.XYZ(2, 2, 1)),
		},
		{
			Object{Type: MeshInstance, Position: types.XYZ(10, 0, 0), MeshIndex: 0, Scale: 2},
			types.XYZ(12, 4, 6),
			bvh.NewBound(types.XYZ(10, 0, 0), types.XYZ(14, 8, 12)),
		},
		{
			Object{Type: MeshInstance, MeshIndex: 0, Rotation: rotZ90},
			types.XYZ(-2, 1, 3),
			bvh.NewBound(types.XYZ(-4, 0, 0), types.XYZ(0, 2, 6)),
		},
	}

	for specIndex, spec := range specs {
		prim, err := spec.obj.Primitive(int32(specIndex), meshBounds)
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", specIndex, err)
		}
		if prim.ID != int32(specIndex) {
			t.Fatalf("[spec %d] expected ID %d; got %d", specIndex, specIndex, prim.ID)
		}
		if !approxEqual(prim.Center, spec.expCenter) {
			t.Fatalf("[spec %d] expected center %v; got %v", specIndex, spec.expCenter, prim.Center)
		}
		if !boundApproxEqual(prim.Bound, spec.expBound) {
			t.Fatalf("[spec %d] expected bound %v; got %v", specIndex, spec.expBound, prim.Bound)
		}
	}
}

func TestObjectPrimitiveErrors(t *testing.T) {
	specs := []Object{
		{Type: Sphere, Radius: 0},
		{Type: MeshInstance, MeshIndex: 1},
		{Type: ObjectType(42)},
	}
	for specIndex, obj := range specs {
		if _, err := obj.Primitive(0, []bvh.Bound{bvh.NewBound(types.Vec3{}, types.Splat(1))}); err == nil {
			t.Fatalf("[spec %d] expected an error", specIndex)
		}
	}
}

func TestParseObjectType(t *testing.T) {
	for _, name := range []string{"sphere", "box", "quad", "mesh"} {
		objType, err := ParseObjectType(name)
		if err != nil {
			t.Fatal(err)
		}
		if objType.String() != name {
			t.Fatalf("expected %q; got %q", name, objType.String())
		}
	}
	if _, err := ParseObjectType("cone"); err == nil {
		t.Fatal("expected an error for an unknown object type")
	}
}

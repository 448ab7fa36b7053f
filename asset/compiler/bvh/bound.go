package bvh

import (
	"math"

	"github.com/achilleasa/polaris-bvh/types"
)

// An axis-aligned bounding box. The zero value is a degenerate box at the
// origin; use InvalidBound to get the identity element for Union.
type Bound struct {
	Min types.Vec3
	Max types.Vec3
}

// Create a bound from two extents.
func NewBound(min, max types.Vec3) Bound {
	return Bound{Min: min, Max: max}
}

// Returns an empty bound that acts as the identity for Union and AddPoint.
// The returned value must not be treated as a finite box.
func InvalidBound() Bound {
	return Bound{
		Min: types.Splat(math.MaxFloat32),
		Max: types.Splat(-math.MaxFloat32),
	}
}

// Returns the bound of a single point.
func PointBound(p types.Vec3) Bound {
	return Bound{Min: p, Max: p}
}

// Returns true if min <= max along every axis.
func (b Bound) IsValid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Returns the union of two bounds.
func (b Bound) Union(other Bound) Bound {
	return Bound{
		Min: types.MinVec3(b.Min, other.Min),
		Max: types.MaxVec3(b.Max, other.Max),
	}
}

// Grow the bound so it includes p.
func (b Bound) AddPoint(p types.Vec3) Bound {
	return Bound{
		Min: types.MinVec3(b.Min, p),
		Max: types.MaxVec3(b.Max, p),
	}
}

// Move the bound by offset.
func (b Bound) Translate(offset types.Vec3) Bound {
	return Bound{
		Min: b.Min.Add(offset),
		Max: b.Max.Add(offset),
	}
}

// Get the bound extent along each axis.
func (b Bound) Size() types.Vec3 {
	return b.Max.Sub(b.Min)
}

// Get the bound center.
func (b Bound) Center() types.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Returns a value proportional to the bound surface area:
// size.x*size.y + size.y*size.z + size.z*size.x
//
// It is only meaningful for comparing bounds against each other.
func (b Bound) SurfaceArea() float32 {
	size := b.Size()
	return size[0]*size[1] + size[1]*size[2] + size[2]*size[0]
}

// Returns true if other lies entirely inside b.
func (b Bound) Contains(other Bound) bool {
	for axis := 0; axis < 3; axis++ {
		if other.Min[axis] < b.Min[axis] || other.Max[axis] > b.Max[axis] {
			return false
		}
	}
	return true
}

// Returns the axis with the largest extent. An x/y tie picks y and a tie
// involving z never picks z.
func (b Bound) MaxExtentAxis() Axis {
	size := b.Size()
	if size[0] > size[1] {
		if size[0] >= size[2] {
			return XAxis
		}
		return ZAxis
	}
	if size[1] >= size[2] {
		return YAxis
	}
	return ZAxis
}

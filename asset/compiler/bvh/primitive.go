package bvh

import (
	"errors"
	"fmt"

	"github.com/achilleasa/polaris-bvh/types"
	"go.uber.org/multierr"
)

var (
	// Returned by Build when invoked with an empty primitive list.
	ErrNoPrimitives = errors.New("bvh: no primitives to partition")
)

// A primitive that can be partitioned by the BVH builder. The ID is an
// opaque reference (e.g. a triangle or object index) that is copied verbatim
// into the BVH leafs.
type Primitive struct {
	ID     int32
	Center types.Vec3
	Bound  Bound
}

// Create a primitive whose center is the center of its bound.
func NewPrimitive(id int32, bound Bound) Primitive {
	return Primitive{
		ID:     id,
		Center: bound.Center(),
		Bound:  bound,
	}
}

// Check that the primitive list can be partitioned. All invalid primitives
// are reported in the returned error.
func ValidatePrimitives(prims []Primitive) error {
	if len(prims) == 0 {
		return ErrNoPrimitives
	}

	var err error
	for index, prim := range prims {
		switch {
		case !prim.Bound.IsValid():
			err = multierr.Append(err, fmt.Errorf("bvh: primitive %d (id %d) has an invalid bound %v", index, prim.ID, prim.Bound))
		case !prim.Bound.Min.IsFinite() || !prim.Bound.Max.IsFinite():
			err = multierr.Append(err, fmt.Errorf("bvh: primitive %d (id %d) has a non-finite bound %v", index, prim.ID, prim.Bound))
		case !prim.Center.IsFinite():
			err = multierr.Append(err, fmt.Errorf("bvh: primitive %d (id %d) has a non-finite center %v", index, prim.ID, prim.Center))
		}
	}
	return err
}

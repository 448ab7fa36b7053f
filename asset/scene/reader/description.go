package reader

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/achilleasa/polaris-bvh/asset"
	"github.com/achilleasa/polaris-bvh/asset/compiler"
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/asset/scene"
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/achilleasa/polaris-bvh/types"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// A JSON vector. Its length is checked when converting it to a types.Vec3.
type vec3Description []float32

// Convert to a Vec3. Omitted optional vectors convert to the zero vector.
func (v vec3Description) toVec3(optional bool) (types.Vec3, error) {
	if optional && v == nil {
		return types.Vec3{}, nil
	}
	if len(v) != 3 {
		return types.Vec3{}, errors.Errorf("expected a vector with 3 components; got %d", len(v))
	}
	return types.XYZ(v[0], v[1], v[2]), nil
}

func toVec3List(list []vec3Description) ([]types.Vec3, error) {
	if list == nil {
		return nil, nil
	}
	out := make([]types.Vec3, len(list))
	for index, v := range list {
		var err error
		if out[index], err = v.toVec3(false); err != nil {
			return nil, errors.Wrapf(err, "vertex %d", index)
		}
	}
	return out, nil
}

type meshDescription struct {
	Name      string            `json:"name"`
	Positions []vec3Description `json:"positions"`
	Normals   []vec3Description `json:"normals,omitempty"`
}

type rotationDescription struct {
	Axis vec3Description `json:"axis"`

	// Rotation angle in degrees.
	Angle float32 `json:"angle"`
}

type objectDescription struct {
	Type     string               `json:"type"`
	Position vec3Description      `json:"position"`
	Rotation *rotationDescription `json:"rotation,omitempty"`
	Radius   float32              `json:"radius,omitempty"`
	Size     vec3Description      `json:"size,omitempty"`
	Mesh     int                  `json:"mesh,omitempty"`
	Scale    float32              `json:"scale,omitempty"`
	Material int32                `json:"material,omitempty"`
}

type sceneDescription struct {
	Meshes  []meshDescription   `json:"meshes"`
	Objects []objectDescription `json:"objects"`
}

// Reads JSON scene descriptions and compiles them.
type descriptionReader struct {
	logger log.Logger
	opts   compiler.Options
}

// Create a new scene description reader.
func newDescriptionReader(opts compiler.Options) *descriptionReader {
	return &descriptionReader{
		logger: log.New("scene description reader"),
		opts:   opts,
	}
}

// Read scene description and compile it.
func (r *descriptionReader) Read(ctx context.Context, sceneRes *asset.Resource) (*scene.Scene, error) {
	rawScene, err := r.Parse(sceneRes)
	if err != nil {
		return nil, err
	}

	// Compile scene into an optimized, gpu-friendly format
	return compiler.Compile(ctx, rawScene, r.opts)
}

// Parse a scene description into a raw scene.
func (r *descriptionReader) Parse(sceneRes *asset.Resource) (*input.Scene, error) {
	r.logger.Noticef(`parsing scene from "%s"`, sceneRes.Path())
	start := time.Now()

	var desc sceneDescription
	decoder := json.NewDecoder(sceneRes)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&desc); err != nil {
		return nil, errors.Wrapf(err, "descriptionReader: could not parse %s", sceneRes.Path())
	}

	rawScene := &input.Scene{
		Meshes:  make([]*input.Mesh, len(desc.Meshes)),
		Objects: make([]*input.Object, 0, len(desc.Objects)),
	}
	for index, md := range desc.Meshes {
		name := md.Name
		if name == "" {
			name = fmt.Sprintf("mesh_%d", index)
		}
		positions, err := toVec3List(md.Positions)
		if err != nil {
			return nil, errors.Wrapf(err, "descriptionReader: mesh %d positions", index)
		}
		normals, err := toVec3List(md.Normals)
		if err != nil {
			return nil, errors.Wrapf(err, "descriptionReader: mesh %d normals", index)
		}
		rawScene.Meshes[index] = &input.Mesh{
			Name:      name,
			Positions: positions,
			Normals:   normals,
		}
	}

	for index, od := range desc.Objects {
		obj, err := od.toObject()
		if err != nil {
			return nil, errors.Wrapf(err, "descriptionReader: object %d", index)
		}
		rawScene.Objects = append(rawScene.Objects, obj)
	}

	// If no objects are defined, create an instance for each defined mesh
	if len(rawScene.Objects) == 0 {
		r.createDefaultMeshInstances(rawScene)
	}

	r.logger.Noticef("parsed scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return rawScene, nil
}

// Create a mesh instance with an identity transform for each mesh.
func (r *descriptionReader) createDefaultMeshInstances(rawScene *input.Scene) {
	r.logger.Infof("no objects defined; creating default instances for %d meshes", len(rawScene.Meshes))
	for meshIndex := range rawScene.Meshes {
		rawScene.Objects = append(rawScene.Objects, &input.Object{
			Type:      input.MeshInstance,
			Rotation:  types.QuatIdent(),
			MeshIndex: meshIndex,
			Scale:     1,
		})
	}
}

func (od *objectDescription) toObject() (*input.Object, error) {
	objType, err := input.ParseObjectType(od.Type)
	if err != nil {
		return nil, err
	}

	position, err := od.Position.toVec3(true)
	if err != nil {
		return nil, errors.Wrap(err, "position")
	}
	size, err := od.Size.toVec3(true)
	if err != nil {
		return nil, errors.Wrap(err, "size")
	}

	obj := &input.Object{
		Type:          objType,
		Position:      position,
		Rotation:      types.QuatIdent(),
		Radius:        od.Radius,
		Size:          size,
		MeshIndex:     od.Mesh,
		Scale:         od.Scale,
		MaterialIndex: od.Material,
	}
	if od.Rotation != nil {
		axis, err := od.Rotation.Axis.toVec3(false)
		if err != nil {
			return nil, errors.Wrap(err, "rotation axis")
		}
		if axis.Len() == 0 {
			return nil, errors.New("rotation axis must not be a zero vector")
		}
		obj.Rotation = types.QuatFromAxisAngle(axis, od.Rotation.Angle*math32.Pi/180)
	}
	return obj, nil
}

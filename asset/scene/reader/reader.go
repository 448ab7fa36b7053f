package reader

import (
	"context"
	"fmt"

	"github.com/achilleasa/polaris-bvh/asset"
	"github.com/achilleasa/polaris-bvh/asset/compiler"
	"github.com/achilleasa/polaris-bvh/asset/scene"
)

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(context.Context, *asset.Resource) (*scene.Scene, error)
}

// Read scene from file. JSON scene descriptions are compiled using the
// supplied compiler options; compiled zip scenes are loaded as-is.
func ReadScene(ctx context.Context, filename string, opts compiler.Options) (*scene.Scene, error) {
	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	// Select reader based on file extension
	var reader Reader
	switch res.Ext() {
	case ".json":
		reader = newDescriptionReader(opts)
	case ".zip":
		reader = newZipSceneReader()
	default:
		return nil, fmt.Errorf("readScene: unsupported file format %q", res.Ext())
	}
	return reader.Read(ctx, res)
}

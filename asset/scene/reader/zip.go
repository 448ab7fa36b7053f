package reader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/gob"
	"io"
	"time"

	"github.com/achilleasa/polaris-bvh/asset"
	"github.com/achilleasa/polaris-bvh/asset/scene"
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/pkg/errors"
)

type zipSceneReader struct {
	logger log.Logger
}

// Create a new zip scene reader
func newZipSceneReader() *zipSceneReader {
	return &zipSceneReader{
		logger: log.New("zip reader"),
	}
}

// Read compiled scene from zip file.
func (p *zipSceneReader) Read(_ context.Context, sceneRes *asset.Resource) (*scene.Scene, error) {
	p.logger.Noticef(`parsing compiled scene from "%s"`, sceneRes.Path())
	start := time.Now()

	// zip package requires a reader implementing ReaderAt. To work around
	// this requirement we read the entire zip file into memory and create
	// a reader from the bytes package that implements ReaderAt
	data, err := io.ReadAll(sceneRes)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrapf(err, "zipSceneReader: could not open %s", sceneRes.Path())
	}

	var sc *scene.Scene
	for _, f := range zr.File {
		switch f.Name {
		case scene.DataFile:
		case scene.MeshNodesFile, scene.VerticesFile, scene.MeshesFile, scene.SceneNodesFile, scene.ObjectIDsFile, scene.ObjectsFile:
			p.logger.Debugf("skipping raw buffer %s", f.Name)
			continue
		default:
			p.logger.Warningf("unknown file %s in scene zip file; skipping", f.Name)
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		sc = &scene.Scene{}
		err = gob.NewDecoder(rc).Decode(sc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "zipSceneReader: failed to load %s", f.Name)
		}
	}

	if sc == nil {
		return nil, errors.Errorf("zipSceneReader: %s does not contain %s", sceneRes.Path(), scene.DataFile)
	}

	p.logger.Noticef("loaded scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return sc, nil
}

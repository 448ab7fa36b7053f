package writer

import (
	"archive/zip"
	"encoding/binary"
	"encoding/gob"
	"io"
	"os"
	"time"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/asset/scene"
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/pkg/errors"
)

type zipSceneWriter struct {
	logger         log.Logger
	sceneFile      string
	withRawBuffers bool
}

// Create a new zip scene writer
func newZipSceneWriter(sceneFile string, withRawBuffers bool) *zipSceneWriter {
	return &zipSceneWriter{
		logger:         log.New("zip writer"),
		sceneFile:      sceneFile,
		withRawBuffers: withRawBuffers,
	}
}

// Write scene definition to zip file.
func (w *zipSceneWriter) Write(sc *scene.Scene) (err error) {
	w.logger.Noticef("writing compressed scene to %s", w.sceneFile)
	start := time.Now()

	zipFile, err := os.Create(w.sceneFile)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := zipFile.Close(); err == nil {
			err = closeErr
		}

		// Do not leave a partially written archive behind
		if err != nil {
			os.Remove(w.sceneFile)
		}
	}()

	zw := zip.NewWriter(zipFile)
	err = w.writeEntry(zw, scene.DataFile, func(dst io.Writer) error {
		if sc == nil {
			return errors.New("nil scene")
		}
		return gob.NewEncoder(dst).Encode(sc)
	})
	if err != nil {
		return err
	}

	if w.withRawBuffers {
		entries := []struct {
			name  string
			write func(io.Writer) error
		}{
			{scene.MeshNodesFile, func(dst io.Writer) error { return bvh.WriteFlatNodes(dst, sc.MeshNodes) }},
			{scene.VerticesFile, func(dst io.Writer) error { return binary.Write(dst, binary.LittleEndian, sc.Vertices) }},
			{scene.MeshesFile, func(dst io.Writer) error { return binary.Write(dst, binary.LittleEndian, sc.Meshes) }},
			{scene.SceneNodesFile, func(dst io.Writer) error { return bvh.WriteFlatNodes(dst, sc.SceneNodes) }},
			{scene.ObjectIDsFile, func(dst io.Writer) error { return bvh.WriteIDs(dst, sc.ObjectIDs) }},
			{scene.ObjectsFile, func(dst io.Writer) error { return binary.Write(dst, binary.LittleEndian, sc.Objects) }},
		}
		for _, entry := range entries {
			if err = w.writeEntry(zw, entry.name, entry.write); err != nil {
				return err
			}
		}
	}

	if err = zw.Close(); err != nil {
		return errors.Wrap(err, "zipSceneWriter: could not finalize archive")
	}

	w.logger.Noticef("compressed scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}

func (w *zipSceneWriter) writeEntry(zw *zip.Writer, name string, write func(io.Writer) error) error {
	dst, err := zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "zipSceneWriter: could not create %s", name)
	}
	if err = write(dst); err != nil {
		return errors.Wrapf(err, "zipSceneWriter: could not write %s", name)
	}
	return nil
}

package writer

import "github.com/achilleasa/polaris-bvh/asset/scene"

// The Writer interface is implemented by all scene writers.
type Writer interface {
	// Write scene definition
	Write(*scene.Scene) error
}

// Write scene to a zip archive. If withRawBuffers is set, the GPU buffers
// are also stored as raw little-endian entries so that they can be uploaded
// without decoding the scene.
func WriteScene(sc *scene.Scene, filename string, withRawBuffers bool) error {
	writer := newZipSceneWriter(filename, withRawBuffers)
	return writer.Write(sc)
}

package reader

import (
	"archive/zip"
	"context"
	"encoding/binary"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/achilleasa/polaris-bvh/asset"
	"github.com/achilleasa/polaris-bvh/asset/compiler"
	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/asset/scene"
	"github.com/achilleasa/polaris-bvh/asset/scene/writer"
)

const sceneJSON = `{
  "meshes": [
    {
      "name": "pyramid",
      "positions": [
        [0, 0, 0], [1, 0, 0], [0.5, 1, 0.5],
        [1, 0, 0], [1, 0, 1], [0.5, 1, 0.5],
        [1, 0, 1], [0, 0, 1], [0.5, 1, 0.5],
        [0, 0, 1], [0, 0, 0], [0.5, 1, 0.5]
      ]
    },
    {
      "positions": [[0, 0, 0], [2, 0, 0], [0, 2, 0]]
    }
  ],
  "objects": [
    {"type": "sphere", "position": [0, 3, 0], "radius": 0.5, "material": 1},
    {"type": "box", "position": [4, 0, 0], "size": [1, 1, 1], "rotation": {"axis": [0, 1, 0], "angle": 45}},
    {"type": "mesh", "mesh": 0, "position": [-3, 0, 0], "scale": 2},
    {"type": "mesh", "mesh": 1}
  ]
}`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(filename, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestParseDescription(t *testing.T) {
	r := newDescriptionReader(compiler.DefaultOptions())
	rawScene, err := r.Parse(asset.NewResourceFromStream("scene.json", strings.NewReader(sceneJSON)))
	if err != nil {
		t.Fatal(err)
	}

	if len(rawScene.Meshes) != 2 {
		t.Fatalf("expected 2 meshes; got %d", len(rawScene.Meshes))
	}
	if rawScene.Meshes[0].Name != "pyramid" || rawScene.Meshes[1].Name != "mesh_1" {
		t.Fatalf("unexpected mesh names %q, %q", rawScene.Meshes[0].Name, rawScene.Meshes[1].Name)
	}
	if rawScene.Meshes[0].TriangleCount() != 4 {
		t.Fatalf("expected 4 triangles; got %d", rawScene.Meshes[0].TriangleCount())
	}

	expTypes := []input.ObjectType{input.Sphere, input.Box, input.MeshInstance, input.MeshInstance}
	if len(rawScene.Objects) != len(expTypes) {
		t.Fatalf("expected %d objects; got %d", len(expTypes), len(rawScene.Objects))
	}
	for index, expType := range expTypes {
		if rawScene.Objects[index].Type != expType {
			t.Fatalf("[obj %d] expected type %s; got %s", index, expType, rawScene.Objects[index].Type)
		}
	}

	if rawScene.Objects[0].MaterialIndex != 1 {
		t.Fatalf("expected material index 1; got %d", rawScene.Objects[0].MaterialIndex)
	}

	// 45 degree rotation around the y axis
	rot := rawScene.Objects[1].Rotation
	if math.Abs(float64(rot.V[1])-0.38268343) > 1e-5 || math.Abs(float64(rot.W)-0.9238795) > 1e-5 {
		t.Fatalf("unexpected rotation quaternion %v", rot)
	}

	if rawScene.Objects[2].Scale != 2 || rawScene.Objects[2].MeshIndex != 0 {
		t.Fatalf("unexpected mesh instance %+v", rawScene.Objects[2])
	}
}

func TestParseDefaultMeshInstances(t *testing.T) {
	desc := `{"meshes": [
	  {"positions": [[0, 0, 0], [1, 0, 0], [0, 1, 0]]},
	  {"positions": [[0, 0, 5], [1, 0, 5], [0, 1, 5]]}
	]}`

	r := newDescriptionReader(compiler.DefaultOptions())
	rawScene, err := r.Parse(asset.NewResourceFromStream("scene.json", strings.NewReader(desc)))
	if err != nil {
		t.Fatal(err)
	}

	if len(rawScene.Objects) != 2 {
		t.Fatalf("expected 2 default mesh instances; got %d", len(rawScene.Objects))
	}
	for index, obj := range rawScene.Objects {
		if obj.Type != input.MeshInstance || obj.MeshIndex != index || obj.Scale != 1 {
			t.Fatalf("[obj %d] unexpected default instance %+v", index, obj)
		}
	}
}

func TestParseDescriptionErrors(t *testing.T) {
	specs := []string{
		`{"meshes": [`,
		`{"cameras": []}`,
		`{"objects": [{"type": "cone"}]}`,
		`{"objects": [{"type": "box", "rotation": {"axis": [0, 0, 0], "angle": 10}}]}`,
		`{"objects": [{"type": "box", "rotation": {"axis": [0, 1], "angle": 10}}]}`,
		`{"meshes": [{"positions": [[0, 0, 0, 99], [1, 0, 0], [0, 1, 0]]}]}`,
		`{"meshes": [{"positions": [[0, 0, 0], [1, 0], [0, 1, 0]]}]}`,
		`{"meshes": [{"positions": [[0, 0, 0], [1, 0, 0], [0, 1, 0]], "normals": [[0, 0, 1], [0, 0, 1], [0, 1]]}]}`,
		`{"objects": [{"type": "box", "position": [1, 2], "size": [1, 1, 1]}]}`,
		`{"objects": [{"type": "box", "size": [1, 1, 1, 1]}]}`,
	}

	r := newDescriptionReader(compiler.DefaultOptions())
	for specIndex, spec := range specs {
		if _, err := r.Parse(asset.NewResourceFromStream("scene.json", strings.NewReader(spec))); err == nil {
			t.Fatalf("[spec %d] expected an error", specIndex)
		}
	}
}

func TestParseDescriptionVectorErrorsNameTheEntry(t *testing.T) {
	specs := []struct {
		desc   string
		expMsg string
	}{
		{
			`{"meshes": [{"positions": [[0, 0, 0], [1, 0, 0], [0, 1, 0]]}, {"positions": [[0, 0, 0], [1, 0], [0, 1, 0]]}]}`,
			"mesh 1 positions: vertex 1",
		},
		{
			`{"objects": [{"type": "sphere", "radius": 1}, {"type": "box", "position": [1, 2]}]}`,
			"object 1: position",
		},
	}

	r := newDescriptionReader(compiler.DefaultOptions())
	for specIndex, spec := range specs {
		_, err := r.Parse(asset.NewResourceFromStream("scene.json", strings.NewReader(spec.desc)))
		if err == nil || !strings.Contains(err.Error(), spec.expMsg) {
			t.Fatalf("[spec %d] expected error containing %q; got %v", specIndex, spec.expMsg, err)
		}
	}
}

func TestCompiledSceneRoundTrip(t *testing.T) {
	sceneFile := writeTempFile(t, "scene.json", sceneJSON)

	opts := compiler.DefaultOptions()
	opts.MeshMaxLeafPrimitives = 1
	sc, err := ReadScene(context.Background(), sceneFile, opts)
	if err != nil {
		t.Fatal(err)
	}

	if len(sc.Meshes) != 2 || len(sc.Objects) != 4 {
		t.Fatalf("expected 2 meshes and 4 objects; got %d and %d", len(sc.Meshes), len(sc.Objects))
	}
	if sc.MeshStats[0].Leaves != 4 {
		t.Fatalf("expected 4 leafs for the pyramid mesh; got %d", sc.MeshStats[0].Leaves)
	}

	zipFile := filepath.Join(filepath.Dir(sceneFile), "scene.zip")
	if err = writer.WriteScene(sc, zipFile, true); err != nil {
		t.Fatal(err)
	}

	loaded, err := ReadScene(context.Background(), zipFile, compiler.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sc, loaded) {
		t.Fatal("expected loaded scene to match the compiled scene")
	}

	// Raw buffers must match the scene contents
	zr, err := zip.OpenReader(zipFile)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	entries := make(map[string]*zip.File)
	for _, f := range zr.File {
		entries[f.Name] = f
	}
	for _, name := range []string{scene.DataFile, scene.MeshNodesFile, scene.VerticesFile, scene.MeshesFile, scene.SceneNodesFile, scene.ObjectIDsFile, scene.ObjectsFile} {
		if entries[name] == nil {
			t.Fatalf("expected archive to contain %s", name)
		}
	}

	rc, err := entries[scene.MeshNodesFile].Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	if entries[scene.MeshNodesFile].UncompressedSize64 != uint64(bvh.FlatNodeSize*len(sc.MeshNodes)) {
		t.Fatalf("expected %d bytes of mesh nodes; got %d", bvh.FlatNodeSize*len(sc.MeshNodes), entries[scene.MeshNodesFile].UncompressedSize64)
	}
	nodes, err := bvh.ReadFlatNodes(rc, len(sc.MeshNodes))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(nodes, sc.MeshNodes) {
		t.Fatal("expected raw mesh node buffer to match the scene mesh nodes")
	}

	// Mesh and object records are needed to locate mesh roots and resolve
	// object leafs without decoding the gob data.
	meshes := make([]scene.MeshData, len(sc.Meshes))
	readRawEntry(t, entries[scene.MeshesFile], meshes)
	if !reflect.DeepEqual(meshes, sc.Meshes) {
		t.Fatalf("expected raw mesh records %+v to match %+v", meshes, sc.Meshes)
	}
	if meshes[1].NodeIndex == 0 || meshes[1].StartIndex != 3*meshes[0].NumTriangles {
		t.Fatalf("unexpected second mesh record %+v", meshes[1])
	}

	objects := make([]scene.ObjectData, len(sc.Objects))
	readRawEntry(t, entries[scene.ObjectsFile], objects)
	if !reflect.DeepEqual(objects, sc.Objects) {
		t.Fatalf("expected raw object records %+v to match %+v", objects, sc.Objects)
	}
}

func readRawEntry(t *testing.T, f *zip.File, data interface{}) {
	t.Helper()

	if exp := uint64(binary.Size(data)); f.UncompressedSize64 != exp {
		t.Fatalf("expected %s to contain %d bytes; got %d", f.Name, exp, f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	if err = binary.Read(rc, binary.LittleEndian, data); err != nil {
		t.Fatalf("could not decode %s: %v", f.Name, err)
	}
}

func TestWriteSceneWithoutRawBuffers(t *testing.T) {
	sc, err := ReadScene(context.Background(), writeTempFile(t, "scene.json", sceneJSON), compiler.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	zipFile := filepath.Join(t.TempDir(), "scene.zip")
	if err = writer.WriteScene(sc, zipFile, false); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.OpenReader(zipFile)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	if len(zr.File) != 1 || zr.File[0].Name != scene.DataFile {
		t.Fatalf("expected archive to only contain %s", scene.DataFile)
	}
}

func TestReadSceneErrors(t *testing.T) {
	if _, err := ReadScene(context.Background(), writeTempFile(t, "scene.obj", "o cube"), compiler.DefaultOptions()); err == nil {
		t.Fatal("expected an error for an unsupported file format")
	}

	if _, err := ReadScene(context.Background(), writeTempFile(t, "scene.zip", "not a zip file"), compiler.DefaultOptions()); err == nil {
		t.Fatal("expected an error for a corrupted zip file")
	}

	// Valid archive without scene data
	zipFile := filepath.Join(t.TempDir(), "empty.zip")
	f, err := os.Create(zipFile)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	if _, err = zw.Create("readme.txt"); err != nil {
		t.Fatal(err)
	}
	if err = zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := ReadScene(context.Background(), zipFile, compiler.DefaultOptions()); err == nil {
		t.Fatal("expected an error for an archive without scene data")
	}
}

func TestReadRemoteSceneDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scenes/pyramid.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(sceneJSON))
	}))
	defer server.Close()

	sc, err := ReadScene(context.Background(), server.URL+"/scenes/pyramid.json", compiler.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Objects) != 4 {
		t.Fatalf("expected 4 objects; got %d", len(sc.Objects))
	}

	if _, err = ReadScene(context.Background(), server.URL+"/scenes/missing.json", compiler.DefaultOptions()); err == nil {
		t.Fatal("expected an error for a missing remote scene")
	}
}

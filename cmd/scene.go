package cmd

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/achilleasa/polaris-bvh/asset/compiler"
	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/asset/scene"
	"github.com/achilleasa/polaris-bvh/asset/scene/reader"
	"github.com/achilleasa/polaris-bvh/asset/scene/writer"
	"github.com/urfave/cli"
)

// Compile scene descriptions to binary format.
func CompileScene(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}
	if ctx.NArg() == 0 {
		return errors.New("missing scene description file")
	}
	if ctx.NArg() > 1 && ctx.String("out") != "" {
		return errors.New("the out flag can only be used when compiling a single scene")
	}

	opts, err := compilerOptions(ctx)
	if err != nil {
		return err
	}

	// Meshes shared between the compiled scenes are only partitioned once
	opts.Cache, err = compiler.NewMeshCache(compiler.DefaultMeshCacheSize)
	if err != nil {
		return err
	}
	defer opts.Cache.Close()

	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)
		defaultZipFile, ok := compiledSceneFile(sceneFile)
		if !ok {
			logger.Warningf("skipping unsupported file %s", sceneFile)
			continue
		}

		logger.Noticef("parsing and compiling scene: %s", sceneFile)
		sc, err := reader.ReadScene(context.Background(), sceneFile, opts)
		if err != nil {
			return err
		}

		// Display compiled scene info
		logger.Noticef("scene information:\n%s", sc.Stats())

		zipFile := ctx.String("out")
		if zipFile == "" {
			zipFile = defaultZipFile
		}
		err = writer.WriteScene(sc, zipFile, ctx.Bool("raw"))
		if err != nil {
			return err
		}
	}

	return nil
}

// Display compiled scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	sc, err := loadCompiledScene(ctx)
	if err != nil {
		return err
	}

	// Display compiled scene info
	logger.Noticef("scene information:\n%s", sc.Stats())

	return nil
}

// Display BVH quality statistics for a compiled scene.
func InspectScene(ctx *cli.Context) error {
	sc, err := loadCompiledScene(ctx)
	if err != nil {
		return err
	}

	logger.Noticef("BVH statistics:\n%s", sc.BvhStats())

	return nil
}

func loadCompiledScene(ctx *cli.Context) (*scene.Scene, error) {
	if err := setupLogging(ctx); err != nil {
		return nil, err
	}

	if ctx.NArg() != 1 {
		return nil, errors.New("missing compiled scene zip file")
	}

	sceneFile := ctx.Args().First()
	if !strings.EqualFold(filepath.Ext(sceneFile), ".zip") {
		return nil, errors.New("only compiled scene files with a .zip extension are supported")
	}

	return reader.ReadScene(context.Background(), sceneFile, compiler.DefaultOptions())
}

// Get the default output file for a scene description. Returns false if
// sceneFile is not a JSON scene description.
func compiledSceneFile(sceneFile string) (string, bool) {
	ext := filepath.Ext(sceneFile)
	if !strings.EqualFold(ext, ".json") {
		return "", false
	}
	return strings.TrimSuffix(sceneFile, ext) + ".zip", true
}

// Build compiler options from the compile command flags.
func compilerOptions(ctx *cli.Context) (compiler.Options, error) {
	opts := compiler.DefaultOptions()

	method, err := bvh.ParseSplitMethod(ctx.String("split"))
	if err != nil {
		return opts, err
	}
	opts.SplitMethod = method

	if ctx.Int("max-leaf") < 1 || ctx.Int("object-max-leaf") < 1 {
		return opts, errors.New("max leaf primitive counts must be at least 1")
	}
	opts.MeshMaxLeafPrimitives = ctx.Int("max-leaf")
	opts.ObjectMaxLeafPrimitives = ctx.Int("object-max-leaf")

	if workers := ctx.Int("workers"); workers > 0 {
		opts.Workers = workers
	}
	return opts, nil
}

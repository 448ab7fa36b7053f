package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/polaris-bvh/asset/compiler"
	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "polaris-bvh"
	app.Usage = "compile scenes into BVH-accelerated GPU buffers"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "set log level (debug, info, notice, warning, error)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile scene descriptions into a binary compressed format",
			Description: `
Parse a JSON scene description, build a BVH tree for each mesh and a BVH tree
for the scene objects, and package scene elements in a GPU-friendly format.

The optimized scene data is then written to a zip archive which can be supplied
as an argument to the info and inspect commands.`,
			ArgsUsage: "scene_file1.json scene_file2.json ...",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "split",
					Value: bvh.SAH.String(),
					Usage: "BVH split method (sah, balance)",
				},
				cli.IntFlag{
					Name:  "max-leaf",
					Value: bvh.DefaultMaxLeafPrimitiveCount,
					Usage: "max triangles per mesh BVH leaf",
				},
				cli.IntFlag{
					Name:  "object-max-leaf",
					Value: compiler.DefaultObjectMaxLeafPrimitives,
					Usage: "max objects per scene BVH leaf",
				},
				cli.IntFlag{
					Name:  "workers",
					Usage: "max mesh BVH trees built in parallel (defaults to the number of CPUs)",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "output zip file (single scene only)",
				},
				cli.BoolFlag{
					Name:  "raw",
					Usage: "also store raw little-endian GPU buffers in the archive",
				},
			},
			Action: cmd.CompileScene,
		},
		{
			Name:      "info",
			Usage:     "print compiled scene information",
			ArgsUsage: "scene_file.zip",
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:      "inspect",
			Usage:     "print BVH statistics for a compiled scene",
			ArgsUsage: "scene_file.zip",
			Action:    cmd.InspectScene,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

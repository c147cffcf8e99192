package main

import (
	"io"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

// newApp builds the command line interface. `fs` holds the images and the
// files copied in and out of them.
func newApp(fs afero.Fs, stdout io.Writer) *cli.App {
	commands := &commandSet{fs: fs}

	imageFlag := &cli.StringFlag{
		Name:    "image",
		Aliases: []string{"i"},
		Usage:   "path to the disk image; images ending in .gz are RLE8+gzip compressed",
		EnvVars: []string{"FAT12_IMAGE"},
	}
	geometryFlag := &cli.StringFlag{
		Name:     "geometry",
		Aliases:  []string{"g"},
		Usage:    "predefined disk geometry, e.g. fd1440 (see `geometries`)",
		Required: true,
	}
	labelFlag := &cli.StringFlag{
		Name:  "label",
		Usage: "volume label, up to 11 characters",
	}

	return &cli.App{
		Name:   "fat12",
		Usage:  "Manage FAT12 floppy disk images",
		Writer: stdout,
		Flags:  []cli.Flag{imageFlag},
		Commands: []*cli.Command{
			{
				Name:   "format",
				Usage:  "Create or wipe an image",
				Flags:  []cli.Flag{geometryFlag, labelFlag},
				Action: commands.format,
			},
			{
				Name:   "ls",
				Usage:  "List the root directory",
				Action: commands.list,
			},
			{
				Name:      "cat",
				Usage:     "Print the contents of a file",
				ArgsUsage: "NAME",
				Action:    commands.cat,
			},
			{
				Name:      "touch",
				Usage:     "Create an empty file if it doesn't exist",
				ArgsUsage: "NAME",
				Action:    commands.touch,
			},
			{
				Name:      "mkdir",
				Usage:     "Create a directory",
				ArgsUsage: "NAME",
				Action:    commands.mkdir,
			},
			{
				Name:      "rm",
				Usage:     "Delete a file",
				ArgsUsage: "NAME",
				Action:    commands.remove,
			},
			{
				Name:      "rmdir",
				Usage:     "Delete a directory",
				ArgsUsage: "NAME",
				Action:    commands.removeDirectory,
			},
			{
				Name:      "write",
				Usage:     "Replace the contents of a file with text",
				ArgsUsage: "NAME TEXT...",
				Action:    commands.write,
			},
			{
				Name:      "put",
				Usage:     "Copy a host file into the image",
				ArgsUsage: "HOST_FILE [NAME]",
				Action:    commands.put,
			},
			{
				Name:      "get",
				Usage:     "Copy a file out of the image",
				ArgsUsage: "NAME [HOST_FILE]",
				Action:    commands.get,
			},
			{
				Name:   "df",
				Usage:  "Show free space",
				Action: commands.diskFree,
			},
			{
				Name:   "geometries",
				Usage:  "List the predefined disk geometries",
				Action: commands.geometries,
			},
			{
				Name:      "compress",
				Usage:     "Compress a raw image with RLE8 and gzip",
				ArgsUsage: "SOURCE DESTINATION",
				Action:    commands.compress,
			},
			{
				Name:      "decompress",
				Usage:     "Expand a compressed image",
				ArgsUsage: "SOURCE DESTINATION",
				Action:    commands.decompress,
			},
		},
	}
}

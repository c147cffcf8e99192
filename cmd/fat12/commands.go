package main

import (
	goerrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dargueta/fatkit/disks"
	"github.com/dargueta/fatkit/errors"
	c "github.com/dargueta/fatkit/file_systems/common"
	"github.com/dargueta/fatkit/file_systems/common/blockdevice"
	"github.com/dargueta/fatkit/file_systems/fat12"
	"github.com/dargueta/fatkit/utilities/compression"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"github.com/xaionaro-go/bytesextra"
)

// commandSet holds the actions of every command.
type commandSet struct {
	fs afero.Fs
}

// withVolume opens the image given on the command line, runs `action` on the
// mounted volume, and closes the image. If `modifies` is set, compressed
// images are written back afterwards.
func (cs *commandSet) withVolume(
	ctx *cli.Context, modifies bool, action func(volume *fat12.Volume) error,
) error {
	img, err := openImage(cs.fs, ctx.String("image"))
	if err != nil {
		return err
	}
	defer img.Close()

	err = action(img.volume)
	if err != nil {
		return err
	}
	if modifies {
		return img.Save()
	}
	return nil
}

// requireArgs returns the positional arguments, failing if there are fewer
// than `minArgs` or more than `maxArgs`. A negative `maxArgs` means no upper
// limit.
func requireArgs(ctx *cli.Context, minArgs, maxArgs int) ([]string, error) {
	args := ctx.Args().Slice()
	if len(args) < minArgs || (maxArgs >= 0 && len(args) > maxArgs) {
		return nil, errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("usage: %s %s", ctx.Command.FullName(), ctx.Command.ArgsUsage))
	}
	return args, nil
}

func (cs *commandSet) format(ctx *cli.Context) error {
	path := ctx.String("image")
	if path == "" {
		return errors.ErrInvalidArgument.WithMessage(
			"no image given; use --image or set FAT12_IMAGE")
	}

	geometry, err := disks.GetPredefinedDiskGeometry(ctx.String("geometry"))
	if err != nil {
		return err
	}

	options := fat12.FormatOptionsFromGeometry(geometry)
	options.VolumeLabel = ctx.String("label")

	if isCompressedPath(path) {
		err = cs.formatInMemory(path, geometry, options)
	} else {
		err = cs.formatInPlace(path, geometry, options)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Formatted %s as %s.\n", path, geometry.Name)
	return nil
}

// formatInPlace creates or truncates the raw image at `path` to the size of
// the disk and formats it directly.
func (cs *commandSet) formatInPlace(
	path string, geometry disks.DiskGeometry, options fat12.FormatOptions,
) error {
	file, err := cs.fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	device, err := blockdevice.WrapStream(file, 0)
	if err != nil {
		return err
	}
	err = device.Resize(geometry.TotalSectors)
	if err != nil {
		return err
	}
	return fat12.Format(device, options)
}

// formatInMemory builds the image in memory and writes it out compressed.
func (cs *commandSet) formatInMemory(
	path string, geometry disks.DiskGeometry, options fat12.FormatOptions,
) error {
	contents := make([]byte, geometry.TotalSizeBytes())
	device, err := blockdevice.WrapStream(
		bytesextra.NewReadWriteSeeker(contents), geometry.TotalSectors)
	if err != nil {
		return err
	}

	err = fat12.Format(device, options)
	if err != nil {
		return err
	}
	return saveImage(cs.fs, path, contents)
}

func (cs *commandSet) list(ctx *cli.Context) error {
	return cs.withVolume(ctx, false, func(volume *fat12.Volume) error {
		entries, err := volume.ReadDir()
		if err != nil {
			return err
		}

		for _, entry := range entries {
			size := fmt.Sprintf("%d", entry.Size())
			if entry.IsDir() {
				size = "<DIR>"
			}
			fmt.Fprintf(
				ctx.App.Writer,
				"%-12s %10s  %s\n",
				entry.Name(),
				size,
				entry.ModTime().Format("2006-01-02 15:04"),
			)
		}
		return nil
	})
}

func (cs *commandSet) cat(ctx *cli.Context) error {
	args, err := requireArgs(ctx, 1, 1)
	if err != nil {
		return err
	}

	return cs.withVolume(ctx, false, func(volume *fat12.Volume) error {
		data, err := volume.ReadFileBytes(args[0])
		if err != nil {
			return err
		}
		_, err = ctx.App.Writer.Write(data)
		return err
	})
}

func (cs *commandSet) touch(ctx *cli.Context) error {
	args, err := requireArgs(ctx, 1, 1)
	if err != nil {
		return err
	}

	return cs.withVolume(ctx, true, func(volume *fat12.Volume) error {
		err := volume.CreateFile(args[0])
		if goerrors.Is(err, errors.ErrExists) {
			return nil
		}
		return err
	})
}

func (cs *commandSet) mkdir(ctx *cli.Context) error {
	args, err := requireArgs(ctx, 1, 1)
	if err != nil {
		return err
	}
	return cs.withVolume(ctx, true, func(volume *fat12.Volume) error {
		return volume.CreateDirectory(args[0])
	})
}

func (cs *commandSet) remove(ctx *cli.Context) error {
	args, err := requireArgs(ctx, 1, 1)
	if err != nil {
		return err
	}
	return cs.withVolume(ctx, true, func(volume *fat12.Volume) error {
		return volume.DeleteFile(args[0])
	})
}

func (cs *commandSet) removeDirectory(ctx *cli.Context) error {
	args, err := requireArgs(ctx, 1, 1)
	if err != nil {
		return err
	}
	return cs.withVolume(ctx, true, func(volume *fat12.Volume) error {
		return volume.DeleteDirectory(args[0])
	})
}

func (cs *commandSet) write(ctx *cli.Context) error {
	args, err := requireArgs(ctx, 1, -1)
	if err != nil {
		return err
	}

	text := strings.Join(args[1:], " ")
	return cs.withVolume(ctx, true, func(volume *fat12.Volume) error {
		return volume.WriteFile(args[0], []byte(text))
	})
}

func (cs *commandSet) put(ctx *cli.Context) error {
	args, err := requireArgs(ctx, 1, 2)
	if err != nil {
		return err
	}

	hostPath := args[0]
	name := filepath.Base(hostPath)
	if len(args) > 1 {
		name = args[1]
	}

	data, err := afero.ReadFile(cs.fs, hostPath)
	if err != nil {
		return err
	}
	return cs.withVolume(ctx, true, func(volume *fat12.Volume) error {
		return volume.WriteFile(name, data)
	})
}

func (cs *commandSet) get(ctx *cli.Context) error {
	args, err := requireArgs(ctx, 1, 2)
	if err != nil {
		return err
	}

	name := args[0]
	hostPath := name
	if len(args) > 1 {
		hostPath = args[1]
	}

	return cs.withVolume(ctx, false, func(volume *fat12.Volume) error {
		data, err := volume.ReadFileBytes(name)
		if err != nil {
			return err
		}
		return afero.WriteFile(cs.fs, hostPath, data, 0o644)
	})
}

func (cs *commandSet) diskFree(ctx *cli.Context) error {
	return cs.withVolume(ctx, false, func(volume *fat12.Volume) error {
		stat, err := volume.Stat()
		if err != nil {
			return err
		}

		label := stat.Label
		if label == "" {
			label = "(none)"
		}

		out := ctx.App.Writer
		fmt.Fprintf(out, "Volume label:      %s\n", label)
		fmt.Fprintf(out, "Bytes per cluster: %d\n", stat.BytesPerCluster())
		fmt.Fprintf(out, "Total clusters:    %d\n", stat.TotalClusters)
		fmt.Fprintf(out, "Free clusters:     %d\n", stat.FreeClusters)
		fmt.Fprintf(out, "Total bytes:       %d\n", stat.TotalBytes())
		fmt.Fprintf(out, "Free bytes:        %d\n", stat.FreeBytes())
		fmt.Fprintf(
			out,
			"Root entries:      %d of %d free\n",
			stat.FreeRootEntries,
			stat.RootEntryCapacity,
		)
		return nil
	})
}

func (cs *commandSet) geometries(ctx *cli.Context) error {
	for _, geometry := range disks.ListPredefinedDiskGeometries() {
		fmt.Fprintf(
			ctx.App.Writer,
			"%-8s %-40s %-7s %5d sectors (%d KiB)\n",
			geometry.Slug,
			geometry.Name,
			geometry.FormFactor,
			geometry.TotalSectors,
			geometry.TotalSizeBytes()/1024,
		)
	}
	return nil
}

func (cs *commandSet) compress(ctx *cli.Context) error {
	args, err := requireArgs(ctx, 2, 2)
	if err != nil {
		return err
	}

	source, err := cs.fs.Open(args[0])
	if err != nil {
		return err
	}
	defer source.Close()

	sectors, err := blockdevice.DetermineSectorCount(source)
	if err != nil {
		return err
	}
	info, err := source.Stat()
	if err != nil {
		return err
	}
	if info.Size() != int64(sectors)*c.BytesPerSector {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"%q is %d bytes, not a whole number of %d-byte sectors",
				args[0],
				info.Size(),
				c.BytesPerSector,
			),
		)
	}
	_, err = source.Seek(0, io.SeekStart)
	if err != nil {
		return err
	}

	destination, err := cs.fs.Create(args[1])
	if err != nil {
		return err
	}
	defer destination.Close()

	written, err := compression.CompressImage(source, destination)
	if err != nil {
		return err
	}
	fmt.Fprintf(
		ctx.App.Writer, "Compressed %d bytes to %d bytes.\n", info.Size(), written)
	return nil
}

func (cs *commandSet) decompress(ctx *cli.Context) error {
	args, err := requireArgs(ctx, 2, 2)
	if err != nil {
		return err
	}

	source, err := cs.fs.Open(args[0])
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := cs.fs.Create(args[1])
	if err != nil {
		return err
	}
	defer destination.Close()

	written, err := compression.DecompressImage(source, destination)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Expanded image to %d bytes.\n", written)
	return nil
}

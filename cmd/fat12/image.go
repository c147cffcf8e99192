package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/dargueta/fatkit/errors"
	c "github.com/dargueta/fatkit/file_systems/common"
	"github.com/dargueta/fatkit/file_systems/common/blockdevice"
	"github.com/dargueta/fatkit/file_systems/fat12"
	"github.com/dargueta/fatkit/utilities/compression"
	"github.com/spf13/afero"
	"github.com/xaionaro-go/bytesextra"
)

// image is a disk image on the host opened as a mounted volume.
//
// Raw images are accessed directly through the host file. Compressed images
// are expanded into memory and only written back by [image.Save].
type image struct {
	fs       afero.Fs
	path     string
	file     afero.File
	contents []byte
	volume   *fat12.Volume
}

func isCompressedPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// openImage opens and mounts the image at `path`.
func openImage(fs afero.Fs, path string) (*image, error) {
	if path == "" {
		return nil, errors.ErrInvalidArgument.WithMessage(
			"no image given; use --image or set FAT12_IMAGE")
	}

	img := &image{fs: fs, path: path}
	var device blockdevice.SectorDevice
	var err error

	if isCompressedPath(path) {
		device, err = img.expand()
	} else {
		device, err = img.openRaw()
	}
	if err != nil {
		return nil, err
	}

	img.volume = fat12.NewVolume(device)
	err = img.volume.Mount()
	if err != nil {
		img.Close()
		return nil, fmt.Errorf("can't mount %q: %w", path, err)
	}
	return img, nil
}

func (img *image) openRaw() (blockdevice.SectorDevice, error) {
	file, err := img.fs.OpenFile(img.path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	img.file = file

	device, err := blockdevice.WrapStreamWithInferredSize(file)
	if err != nil {
		return nil, err
	}
	return device, nil
}

func (img *image) expand() (blockdevice.SectorDevice, error) {
	compressed, err := afero.ReadFile(img.fs, img.path)
	if err != nil {
		return nil, err
	}

	img.contents, err = compression.DecompressImageToBytes(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("can't decompress %q: %w", img.path, err)
	}

	return blockdevice.WrapStream(
		bytesextra.NewReadWriteSeeker(img.contents),
		uint(len(img.contents)/c.BytesPerSector),
	)
}

// Save writes a compressed image back to the host. Changes to raw images are
// already on the host, so this does nothing for them.
func (img *image) Save() error {
	if img.file != nil {
		return nil
	}
	return saveImage(img.fs, img.path, img.contents)
}

func (img *image) Close() error {
	if img.file != nil {
		return img.file.Close()
	}
	return nil
}

// saveImage writes the raw bytes of an image to `path`, compressing them first
// if the path calls for it.
func saveImage(fs afero.Fs, path string, contents []byte) error {
	if !isCompressedPath(path) {
		return afero.WriteFile(fs, path, contents, 0o644)
	}

	compressed, err := compression.CompressImageToBytes(bytes.NewReader(contents))
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, compressed, 0o644)
}

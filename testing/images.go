package testing

import (
	"bytes"
	"testing"

	c "github.com/dargueta/fatkit/file_systems/common"
	"github.com/dargueta/fatkit/file_systems/common/blockdevice"
	"github.com/dargueta/fatkit/utilities/compression"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// LoadDiskImage takes a compressed disk image and returns a device accessing
// the uncompressed data, along with the uncompressed bytes.
//
//   - Writes to the device do not affect `compressedImageBytes`.
//   - The device is fixed at `totalSectors` sectors. Accessing sectors past the
//     end fails.
func LoadDiskImage(
	t *testing.T, compressedImageBytes []byte, totalSectors uint,
) (*blockdevice.StreamDevice, []byte) {
	require.Greater(t, len(compressedImageBytes), 0, "compressed image is empty")

	imageBytes, err := compression.DecompressImageToBytes(
		bytes.NewReader(compressedImageBytes))
	require.NoError(t, err)
	require.Equal(
		t,
		totalSectors*c.BytesPerSector,
		uint(len(imageBytes)),
		"uncompressed image is wrong size",
	)

	device, err := blockdevice.WrapStream(
		bytesextra.NewReadWriteSeeker(imageBytes), totalSectors)
	require.NoError(t, err)
	return device, imageBytes
}

// CompressDevice returns the compressed contents of an in-memory device's
// backing bytes, suitable for [LoadDiskImage].
func CompressDevice(t *testing.T, backing []byte) []byte {
	compressed, err := compression.CompressImageToBytes(bytes.NewReader(backing))
	require.NoError(t, err)
	return compressed
}

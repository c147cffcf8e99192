// Package testing contains helpers shared by the tests of other packages:
// in-memory devices, formatted volumes, and compressed disk images.
package testing

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/dargueta/fatkit/disks"
	c "github.com/dargueta/fatkit/file_systems/common"
	"github.com/dargueta/fatkit/file_systems/common/blockdevice"
	"github.com/dargueta/fatkit/file_systems/fat12"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// FixedTime is the clock used by volumes created with [MountVolume], so that
// timestamps in tests are predictable.
// It's representable exactly in a directory entry.
var FixedTime = time.Date(2021, time.March, 14, 15, 9, 26, 0, time.UTC)

// NewBlankDevice creates an in-memory device of `totalSectors` null sectors.
// Writes to the device are visible in the returned slice.
func NewBlankDevice(t *testing.T, totalSectors uint) (*blockdevice.StreamDevice, []byte) {
	backing := make([]byte, totalSectors*c.BytesPerSector)
	device, err := blockdevice.WrapStream(bytesextra.NewReadWriteSeeker(backing), totalSectors)
	require.NoError(t, err, "failed to create in-memory device")
	return device, backing
}

// NewFormattedDevice creates an in-memory device formatted with `options`. If
// options.TotalSectors is 0, the device has 2880 sectors, the size of a 1.44M
// floppy.
func NewFormattedDevice(
	t *testing.T, options fat12.FormatOptions,
) (*blockdevice.StreamDevice, []byte) {
	totalSectors := options.TotalSectors
	if totalSectors == 0 {
		totalSectors = 2880
	}
	if options.Timestamp.IsZero() {
		options.Timestamp = FixedTime
	}

	device, backing := NewBlankDevice(t, totalSectors)
	require.NoError(t, fat12.Format(device, options), "failed to format device")
	return device, backing
}

// NewFormattedFloppy creates an in-memory floppy formatted the way DOS would
// for the predefined geometry `slug`, e.g. "fd360".
func NewFormattedFloppy(t *testing.T, slug string) (*blockdevice.StreamDevice, []byte) {
	geometry, err := disks.GetPredefinedDiskGeometry(slug)
	require.NoError(t, err)
	return NewFormattedDevice(t, fat12.FormatOptionsFromGeometry(geometry))
}

// MountVolume mounts `device` and fails the test if that isn't possible. The
// volume's clock is set to [FixedTime].
func MountVolume(t *testing.T, device blockdevice.SectorDevice) *fat12.Volume {
	volume := fat12.NewVolume(device)
	volume.Now = func() time.Time { return FixedTime }
	require.NoError(t, volume.Mount(), "failed to mount volume")
	return volume
}

// RandomBytes returns `size` bytes of random data.
func RandomBytes(t *testing.T, size int) []byte {
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err, "failed to generate random data")
	return data
}

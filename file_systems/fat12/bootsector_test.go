package fat12_test

import (
	"encoding/binary"
	"testing"

	"github.com/dargueta/fatkit/errors"
	c "github.com/dargueta/fatkit/file_systems/common"
	"github.com/dargueta/fatkit/file_systems/fat12"
	fktesting "github.com/dargueta/fatkit/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formattedBootSector(t *testing.T) []byte {
	_, backing := fktesting.NewFormattedFloppy(t, "fd1440")
	sector := make([]byte, c.BytesPerSector)
	copy(sector, backing)
	return sector
}

func TestNewBootSectorFromBytes(t *testing.T) {
	bootSector, err := fat12.NewBootSectorFromBytes(formattedBootSector(t))
	require.NoError(t, err)

	assert.EqualValues(t, 512, bootSector.BytesPerSector)
	assert.EqualValues(t, 1, bootSector.SectorsPerCluster)
	assert.EqualValues(t, 2, bootSector.NumFATs)
	assert.EqualValues(t, 224, bootSector.RootEntryCount)
	assert.EqualValues(t, 9, bootSector.SectorsPerFAT)
	assert.EqualValues(t, 0xF0, bootSector.Media)
	assert.EqualValues(t, 2880, bootSector.TotalSectors)
	assert.EqualValues(t, 14, bootSector.RootDirSectors)
	assert.EqualValues(t, 1, bootSector.FirstFATSector)
	assert.EqualValues(t, 19, bootSector.FirstRootDirSector)
	assert.EqualValues(t, 33, bootSector.FirstDataSector)
	assert.EqualValues(t, 2847, bootSector.TotalDataSectors)
	assert.EqualValues(t, 2847, bootSector.TotalClusters)
	assert.EqualValues(t, 512, bootSector.BytesPerCluster)
	assert.Equal(t, []c.SectorID{10}, bootSector.FATCopySectors())
	assert.EqualValues(t, 33, bootSector.ClusterToSector(2))
	assert.EqualValues(t, 42, bootSector.ClusterToSector(11))
	assert.Equal(t, "NO NAME", bootSector.Label())
	assert.Equal(t, fat12.FileSystemTypeLabel, string(bootSector.FileSystemType[:]))
}

func TestNewBootSectorFromBytes__Invalid(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(sector []byte)
		expected error
	}{
		{
			"sector size",
			func(sector []byte) { binary.LittleEndian.PutUint16(sector[11:], 1024) },
			errors.ErrInvalidFileSystem,
		},
		{
			"zeroed",
			func(sector []byte) { copy(sector, make([]byte, len(sector))) },
			errors.ErrInvalidFileSystem,
		},
		{
			"zero sectors per cluster",
			func(sector []byte) { sector[13] = 0 },
			errors.ErrFileSystemCorrupted,
		},
		{
			"sectors per cluster not a power of 2",
			func(sector []byte) { sector[13] = 3 },
			errors.ErrFileSystemCorrupted,
		},
		{
			"no FATs",
			func(sector []byte) { sector[16] = 0 },
			errors.ErrFileSystemCorrupted,
		},
		{
			"no root directory",
			func(sector []byte) { binary.LittleEndian.PutUint16(sector[17:], 0) },
			errors.ErrFileSystemCorrupted,
		},
		{
			"zero sectors per FAT",
			func(sector []byte) { binary.LittleEndian.PutUint16(sector[22:], 0) },
			errors.ErrFileSystemCorrupted,
		},
		{
			"data region past end",
			func(sector []byte) { binary.LittleEndian.PutUint16(sector[19:], 20) },
			errors.ErrFileSystemCorrupted,
		},
		{
			"too many clusters",
			func(sector []byte) { binary.LittleEndian.PutUint16(sector[19:], 60000) },
			errors.ErrFileSystemCorrupted,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			sector := formattedBootSector(t)
			test.mutate(sector)
			_, err := fat12.NewBootSectorFromBytes(sector)
			assert.ErrorIs(t, err, test.expected)
		})
	}
}

func TestNewBootSectorFromBytes__LargeSectorCount(t *testing.T) {
	sector := formattedBootSector(t)
	binary.LittleEndian.PutUint16(sector[19:], 0)
	binary.LittleEndian.PutUint32(sector[32:], 2880)

	bootSector, err := fat12.NewBootSectorFromBytes(sector)
	require.NoError(t, err)
	assert.EqualValues(t, 2880, bootSector.TotalSectors)
}

func TestNewBootSectorFromBytes__TooShort(t *testing.T) {
	_, err := fat12.NewBootSectorFromBytes(make([]byte, 100))
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestBootSectorBytes(t *testing.T) {
	original := formattedBootSector(t)
	bootSector, err := fat12.NewBootSectorFromBytes(original)
	require.NoError(t, err)

	serialized := bootSector.Bytes()
	require.Len(t, serialized, c.BytesPerSector)
	assert.Equal(t, original[:fat12.RawBootSectorSize], serialized[:fat12.RawBootSectorSize])
	assert.Equal(t, []byte{0x55, 0xAA}, serialized[510:])
}

func TestBootSectorLabel__NoExtendedBootRecord(t *testing.T) {
	sector := formattedBootSector(t)
	sector[38] = 0

	bootSector, err := fat12.NewBootSectorFromBytes(sector)
	require.NoError(t, err)
	assert.Equal(t, "", bootSector.Label())
}

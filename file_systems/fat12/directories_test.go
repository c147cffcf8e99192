package fat12_test

import (
	"fmt"
	"testing"

	"github.com/dargueta/fatkit/errors"
	"github.com/dargueta/fatkit/file_systems/fat12"
	fktesting "github.com/dargueta/fatkit/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFile(t *testing.T) {
	volume, _, _ := newSmallVolume(t)
	require.NoError(t, volume.CreateFile("notes.txt"))

	dirent, err := volume.Lookup("NOTES.TXT")
	require.NoError(t, err)
	assert.Equal(t, "NOTES.TXT", dirent.Name())
	assert.False(t, dirent.IsDir())
	assert.EqualValues(t, 0, dirent.FileSize)
	assert.Equal(t, fat12.FreeCluster, dirent.FirstCluster)

	data, err := volume.ReadFileBytes("notes.txt")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestCreateFile__CaseInsensitive(t *testing.T) {
	volume, _, _ := newSmallVolume(t)
	require.NoError(t, volume.CreateFile("readme.txt"))

	for _, name := range []string{"readme.txt", "README.TXT", "ReadMe.Txt", "/readme.txt"} {
		_, err := volume.Lookup(name)
		assert.NoError(t, err, name)
		assert.ErrorIs(t, volume.CreateFile(name), errors.ErrExists, name)
	}
}

func TestCreateFile__Exists(t *testing.T) {
	volume, _, _ := newSmallVolume(t)
	require.NoError(t, volume.CreateFile("a.txt"))
	require.NoError(t, volume.CreateDirectory("docs"))

	assert.ErrorIs(t, volume.CreateFile("a.txt"), errors.ErrExists)
	assert.ErrorIs(t, volume.CreateDirectory("a.txt"), errors.ErrExists)
	assert.ErrorIs(t, volume.CreateFile("docs"), errors.ErrExists)
	assert.ErrorIs(t, volume.CreateDirectory("docs"), errors.ErrExists)
}

func TestCreateFile__RootDirectoryFull(t *testing.T) {
	volume, _, _ := newSmallVolume(t)
	for i := 0; i < smallVolumeRootSlots; i++ {
		require.NoError(t, volume.CreateFile(fmt.Sprintf("file%d.txt", i)))
	}

	err := volume.CreateFile("extra.txt")
	assert.ErrorIs(t, err, errors.ErrNoSpaceOnDevice)
	err = volume.WriteFile("extra.txt", []byte("data"))
	assert.ErrorIs(t, err, errors.ErrNoSpaceOnDevice)

	// Existing files can still be rewritten.
	require.NoError(t, volume.WriteFile("file0.txt", []byte("data")))

	stat, err := volume.Stat()
	require.NoError(t, err)
	assert.EqualValues(t, 0, stat.FreeRootEntries)
	assert.EqualValues(t, smallVolumeClusters-1, stat.FreeClusters)
}

func TestCreateFile__ReusesDeletedSlot(t *testing.T) {
	volume, _, _ := newSmallVolume(t)
	require.NoError(t, volume.CreateFile("a.txt"))
	require.NoError(t, volume.CreateFile("b.txt"))
	require.NoError(t, volume.DeleteFile("a.txt"))
	require.NoError(t, volume.CreateFile("c.txt"))

	slots, err := volume.RootDirectory()
	require.NoError(t, err)
	require.Len(t, slots, smallVolumeRootSlots)
	assert.Equal(t, "C.TXT", slots[0].Name())
	assert.Equal(t, "B.TXT", slots[1].Name())
	assert.True(t, slots[2].IsEndOfDirectory())
}

func TestCreateDirectory(t *testing.T) {
	volume, _, _ := newSmallVolume(t)
	require.NoError(t, volume.CreateDirectory("docs"))

	dirent, err := volume.Lookup("docs")
	require.NoError(t, err)
	assert.True(t, dirent.IsDir())
	assert.Equal(t, fat12.FreeCluster, dirent.FirstCluster)

	info, err := volume.StatFile("DOCS")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "DOCS", info.Name())
}

func TestDeleteFile(t *testing.T) {
	volume, _, backing := newSmallVolume(t)
	require.NoError(t, volume.WriteFile("hello.txt", []byte("hello")))

	rootSector := sectorBytes(backing, smallVolumeRootDir)
	before := append([]byte(nil), rootSector[:fat12.DirentSize]...)

	require.NoError(t, volume.DeleteFile("hello.txt"))

	// Only the first byte of the entry changes on disk.
	assert.EqualValues(t, 0xE5, rootSector[0])
	assert.Equal(t, before[1:], rootSector[1:fat12.DirentSize])

	_, err := volume.Lookup("hello.txt")
	assert.ErrorIs(t, err, errors.ErrNotFound)
	entries, err := volume.ListRootDirectory()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteFile__Errors(t *testing.T) {
	volume, _, _ := newSmallVolume(t)
	require.NoError(t, volume.CreateDirectory("docs"))

	assert.ErrorIs(t, volume.DeleteFile("missing.txt"), errors.ErrNotFound)
	assert.ErrorIs(t, volume.DeleteFile("docs"), errors.ErrIsADirectory)
	assert.ErrorIs(t, volume.DeleteFile("bad?.txt"), errors.ErrInvalidArgument)
}

func TestDeleteDirectory(t *testing.T) {
	volume, _, _ := newSmallVolume(t)
	require.NoError(t, volume.CreateDirectory("docs"))
	require.NoError(t, volume.CreateFile("a.txt"))

	assert.ErrorIs(t, volume.DeleteDirectory("a.txt"), errors.ErrNotADirectory)
	assert.ErrorIs(t, volume.DeleteDirectory("missing"), errors.ErrNotFound)

	require.NoError(t, volume.DeleteDirectory("docs"))
	_, err := volume.Lookup("docs")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestDeleteFile__CorruptedChainIsFreed(t *testing.T) {
	volume, _, _ := newSmallVolume(t)
	require.NoError(t, volume.WriteFile("a.bin", make([]byte, 3*512)))

	fat, err := volume.FAT()
	require.NoError(t, err)
	require.NoError(t, fat.Set(4, 2))

	require.NoError(t, volume.DeleteFile("a.bin"))
	assert.EqualValues(t, smallVolumeClusters, fat.CountFree())
}

func TestListRootDirectory(t *testing.T) {
	device, _ := fktesting.NewFormattedDevice(
		t, fat12.FormatOptions{TotalSectors: 100, VolumeLabel: "LABELLED"})
	volume := fktesting.MountVolume(t, device)

	require.NoError(t, volume.CreateFile("one.txt"))
	require.NoError(t, volume.CreateDirectory("two"))
	require.NoError(t, volume.CreateFile("three.txt"))
	require.NoError(t, volume.DeleteFile("one.txt"))

	entries, err := volume.ListRootDirectory()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "TWO", entries[0].Name())
	assert.Equal(t, "THREE.TXT", entries[1].Name())

	infos, err := volume.ReadDir()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.True(t, infos[0].IsDir())
	assert.Equal(t, "THREE.TXT", infos[1].Name())

	_, err = volume.Lookup("LABELLED")
	assert.ErrorIs(t, err, errors.ErrNotFound, "volume label shouldn't be found")
}

func TestLookup__SkipsLongFileNameEntries(t *testing.T) {
	_, device, backing := newSmallVolume(t)

	// A long file name entry whose bytes happen to spell out a valid 8.3 name.
	rootSector := sectorBytes(backing, smallVolumeRootDir)
	fake := fat12.Dirent{ShortName: rawName("GHOST   TXT"), AttributeFlags: fat12.AttrLongFileName}
	fake.Encode(rootSector)

	remounted := fktesting.MountVolume(t, device)
	_, err := remounted.Lookup("ghost.txt")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	entries, err := remounted.ListRootDirectory()
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The slot isn't free either.
	require.NoError(t, remounted.CreateFile("ghost.txt"))
	slots, err := remounted.RootDirectory()
	require.NoError(t, err)
	assert.Equal(t, "GHOST.TXT", slots[1].Name())
}

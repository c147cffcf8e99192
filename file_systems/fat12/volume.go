package fat12

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/dargueta/fatkit"
	"github.com/dargueta/fatkit/errors"
	c "github.com/dargueta/fatkit/file_systems/common"
	"github.com/dargueta/fatkit/file_systems/common/blockdevice"
	"github.com/dargueta/fatkit/file_systems/common/region"
)

var _ fatkit.Driver = (*Volume)(nil)

// Volume is a FAT12 volume on a block device. All operations other than
// mounting require the volume to be mounted first; there is no unmount, as
// all changes are written to the device before each operation returns.
//
// A Volume is safe for concurrent use. Operations are serialized.
type Volume struct {
	// Now gives the timestamps recorded in directory entries. It defaults to
	// [time.Now].
	Now func() time.Time

	lock       sync.Mutex
	device     blockdevice.SectorDevice
	isMounted  bool
	bootSector *BootSector
	fat        *Table
	rootDir    *region.Region
	// scratch holds one cluster for transfers between files and the device.
	scratch []byte
}

// NewVolume creates an unmounted volume on `device`.
func NewVolume(device blockdevice.SectorDevice) *Volume {
	return &Volume{
		Now:    time.Now,
		device: device,
	}
}

// Mount reads the boot sector, the first FAT, and the root directory into
// memory. Mounting an already-mounted volume does nothing.
//
// If mounting fails the volume remains unmounted and nothing is retained.
func (v *Volume) Mount() error {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.isMounted {
		return nil
	}

	sector := make([]byte, c.BytesPerSector)
	err := v.device.ReadSector(0, sector)
	if err != nil {
		return errors.CastToDriverError(err)
	}

	bootSector, err := parseBootSector(sector, v.device.TotalSectors())
	if err != nil {
		return err
	}
	if uint(bootSector.FirstDataSector) > v.device.TotalSectors() {
		return errors.ErrFileSystemCorrupted.WithMessage(
			fmt.Sprintf(
				"volume metadata needs %d sectors but the device only has %d",
				bootSector.FirstDataSector,
				v.device.TotalSectors(),
			),
		)
	}

	fatRegion, err := region.Load(
		v.device,
		bootSector.FirstFATSector,
		uint(bootSector.SectorsPerFAT),
		bootSector.FATCopySectors()...,
	)
	if err != nil {
		return err
	}

	rootDir, err := region.Load(
		v.device, bootSector.FirstRootDirSector, bootSector.RootDirSectors)
	if err != nil {
		return err
	}

	v.bootSector = bootSector
	v.fat = NewTable(fatRegion, bootSector.TotalClusters)
	v.rootDir = rootDir
	v.scratch = make([]byte, bootSector.BytesPerCluster)
	v.isMounted = true
	return nil
}

// IsMounted returns true if the volume has been mounted successfully.
func (v *Volume) IsMounted() bool {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.isMounted
}

// BootSector returns the boot sector of the mounted volume.
func (v *Volume) BootSector() (BootSector, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if !v.isMounted {
		return BootSector{}, errors.ErrNotMounted
	}
	return *v.bootSector, nil
}

// FAT returns the in-memory allocation table of the mounted volume. Callers
// must not use it concurrently with other operations on the volume.
func (v *Volume) FAT() (*Table, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if !v.isMounted {
		return nil, errors.ErrNotMounted
	}
	return v.fat, nil
}

// Stat returns the geometry of the volume along with its free space.
func (v *Volume) Stat() (fatkit.VolumeStat, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if !v.isMounted {
		return fatkit.VolumeStat{}, errors.ErrNotMounted
	}

	freeEntries := uint(0)
	for i := 0; i < v.rootEntryCapacity(); i++ {
		dirent := v.direntAt(i)
		if dirent.IsEndOfDirectory() || dirent.IsDeleted() {
			freeEntries++
		}
	}

	return fatkit.VolumeStat{
		Label:             v.volumeLabel(),
		BytesPerSector:    uint(v.bootSector.BytesPerSector),
		SectorsPerCluster: uint(v.bootSector.SectorsPerCluster),
		TotalSectors:      v.bootSector.TotalSectors,
		TotalClusters:     uint(v.fat.MaxCluster()) + 1 - uint(FirstDataCluster),
		FreeClusters:      v.fat.CountFree(),
		RootEntryCapacity: uint(v.rootEntryCapacity()),
		FreeRootEntries:   freeEntries,
	}, nil
}

// VolumeLabel returns the label from the volume label entry in the root
// directory, or the one in the boot sector if there's no such entry.
func (v *Volume) VolumeLabel() (string, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if !v.isMounted {
		return "", errors.ErrNotMounted
	}
	return v.volumeLabel(), nil
}

func (v *Volume) volumeLabel() string {
	for i := 0; i < v.rootEntryCapacity(); i++ {
		dirent := v.direntAt(i)
		if dirent.IsEndOfDirectory() {
			break
		}
		if !dirent.IsDeleted() && dirent.AttributeFlags&AttrLongFileName == AttrVolumeLabel {
			return string(bytes.TrimRight(dirent.ShortName[:], " "))
		}
	}
	return v.bootSector.Label()
}

////////////////////////////////////////////////////////////////////////////////
// Shared helpers. Callers must hold the lock.

// commit writes the FAT and then the root directory to the device. If either
// fails, both are reverted to the given snapshots. Reverted sectors remain
// dirty, so the device is brought back in line on the next successful commit.
func (v *Volume) commit(fatSnapshot, rootSnapshot region.Snapshot) error {
	err := v.fat.Flush()
	if err == nil {
		err = v.rootDir.Flush()
	}
	if err != nil {
		v.rollback(fatSnapshot, rootSnapshot)
		return err
	}
	return nil
}

func (v *Volume) rollback(fatSnapshot, rootSnapshot region.Snapshot) {
	v.fat.Restore(fatSnapshot)
	v.rootDir.Restore(rootSnapshot)
}

// now gives the current time according to the volume's clock.
func (v *Volume) now() time.Time {
	if v.Now == nil {
		return time.Now()
	}
	return v.Now()
}

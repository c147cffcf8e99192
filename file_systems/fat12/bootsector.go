// Package fat12 implements a driver for FAT12 volumes with a flat root
// directory, working directly against a sector-addressed block device.
package fat12

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dargueta/fatkit/errors"
	c "github.com/dargueta/fatkit/file_systems/common"
	"github.com/noxer/bytewriter"
)

// MaxFAT12Clusters is the exclusive upper bound on the number of data clusters
// a FAT12 volume can have. Taken from Microsoft's FAT documentation, v1.03,
// page 14.
const MaxFAT12Clusters = 4085

// FileSystemTypeLabel is the informational type string stored in the extended
// boot record of FAT12 volumes.
const FileSystemTypeLabel = "FAT12   "

const (
	extendedBootSignature = 0x29
	bootSignatureOffset   = 510
)

// RawBootSector is the on-disk representation of the BIOS parameter block and
// extended boot record of a FAT12 volume. Fields are in on-disk order with no
// padding, so the struct can be used directly with [binary.Read] and
// [binary.Write].
type RawBootSector struct {
	JumpInstruction   [3]byte
	OEMName           [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors16    uint16
	Media             uint8
	SectorsPerFAT     uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32
	TotalSectors32    uint32
	DriveNumber       uint8
	NTReserved        uint8
	ExBootSignature   uint8
	VolumeID          uint32
	VolumeLabel       [11]byte
	FileSystemType    [8]byte
}

// RawBootSectorSize is the size of [RawBootSector] on disk, in bytes.
const RawBootSectorSize = 62

// BootSector extends [RawBootSector] with precomputed fields describing the
// layout of the volume.
type BootSector struct {
	RawBootSector
	TotalSectors       uint
	RootDirSectors     uint
	FirstFATSector     c.SectorID
	FirstRootDirSector c.SectorID
	FirstDataSector    c.SectorID
	TotalDataSectors   uint
	BytesPerCluster    uint
	TotalClusters      uint
}

// NewBootSectorFromBytes parses the first sector of a volume and validates it.
//
// Errors:
//
//   - [errors.EMEDIUMTYPE]: the sector size isn't 512 bytes.
//   - [errors.EUCLEAN]: the parameter block is internally inconsistent or
//     doesn't describe a FAT12 volume.
func NewBootSectorFromBytes(data []byte) (*BootSector, error) {
	return parseBootSector(data, 0)
}

// parseBootSector is [NewBootSectorFromBytes] for a boot sector read from a
// device of `deviceSectors` sectors. If both total sector fields are 0, the
// volume is assumed to fill the device.
func parseBootSector(data []byte, deviceSectors uint) (*BootSector, error) {
	if len(data) < c.BytesPerSector {
		return nil, errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"boot sector must be at least %d bytes, got %d",
				c.BytesPerSector,
				len(data),
			),
		)
	}

	var raw RawBootSector
	err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &raw)
	if err != nil {
		return nil, errors.ErrIOFailed.Wrap(err)
	}

	bootSector := &BootSector{RawBootSector: raw}
	if raw.TotalSectors16 == 0 && raw.TotalSectors32 == 0 {
		bootSector.TotalSectors32 = uint32(deviceSectors)
	}
	err = bootSector.computeLayout()
	if err != nil {
		return nil, err
	}
	return bootSector, nil
}

// computeLayout validates the raw boot sector and fills in the derived fields.
func (bs *BootSector) computeLayout() error {
	if bs.BytesPerSector != c.BytesPerSector {
		return errors.ErrInvalidFileSystem.WithMessage(
			fmt.Sprintf(
				"only %d-byte sectors are supported, got %d",
				c.BytesPerSector,
				bs.BytesPerSector,
			),
		)
	}

	spc := bs.SectorsPerCluster
	if spc == 0 || spc&(spc-1) != 0 {
		return errors.ErrFileSystemCorrupted.WithMessage(
			fmt.Sprintf("sectors per cluster must be a power of 2 in 1-128, got %d", spc))
	}
	if bs.NumFATs == 0 {
		return errors.ErrFileSystemCorrupted.WithMessage("volume has no FATs")
	}
	if bs.SectorsPerFAT == 0 {
		return errors.ErrFileSystemCorrupted.WithMessage("sectors per FAT is 0")
	}
	if bs.RootEntryCount == 0 {
		return errors.ErrFileSystemCorrupted.WithMessage(
			"root directory has no space for entries")
	}

	if bs.TotalSectors16 != 0 {
		bs.TotalSectors = uint(bs.TotalSectors16)
	} else {
		bs.TotalSectors = uint(bs.TotalSectors32)
	}

	bs.RootDirSectors = (uint(bs.RootEntryCount)*DirentSize + c.BytesPerSector - 1) /
		c.BytesPerSector
	bs.FirstFATSector = c.SectorID(bs.ReservedSectors)
	bs.FirstRootDirSector = bs.FirstFATSector +
		c.SectorID(uint(bs.NumFATs)*uint(bs.SectorsPerFAT))
	bs.FirstDataSector = bs.FirstRootDirSector + c.SectorID(bs.RootDirSectors)

	if uint(bs.FirstDataSector) > bs.TotalSectors {
		return errors.ErrFileSystemCorrupted.WithMessage(
			fmt.Sprintf(
				"data region starts at sector %d, past the end of the volume (%d sectors)",
				bs.FirstDataSector,
				bs.TotalSectors,
			),
		)
	}

	bs.TotalDataSectors = bs.TotalSectors - uint(bs.FirstDataSector)
	bs.BytesPerCluster = uint(spc) * c.BytesPerSector
	bs.TotalClusters = bs.TotalDataSectors / uint(spc)

	if bs.TotalClusters >= MaxFAT12Clusters {
		return errors.ErrFileSystemCorrupted.WithMessage(
			fmt.Sprintf(
				"%d clusters is too many for FAT12; must be less than %d",
				bs.TotalClusters,
				MaxFAT12Clusters,
			),
		)
	}
	return nil
}

// FATCopySectors gives the first sector of every FAT after the first one.
func (bs *BootSector) FATCopySectors() []c.SectorID {
	copies := make([]c.SectorID, 0, int(bs.NumFATs)-1)
	for i := 1; i < int(bs.NumFATs); i++ {
		copies = append(
			copies, bs.FirstFATSector+c.SectorID(i*int(bs.SectorsPerFAT)))
	}
	return copies
}

// ClusterToSector gives the first sector of a data cluster. It doesn't check
// that the cluster exists.
func (bs *BootSector) ClusterToSector(cluster c.ClusterID) c.SectorID {
	return bs.FirstDataSector +
		c.SectorID(uint(cluster-FirstDataCluster)*uint(bs.SectorsPerCluster))
}

// Label gives the volume label stored in the extended boot record, without
// trailing padding. It's empty if the boot sector has no extended boot record.
func (bs *BootSector) Label() string {
	if bs.ExBootSignature != extendedBootSignature {
		return ""
	}
	return string(bytes.TrimRight(bs.VolumeLabel[:], " \x00"))
}

// Bytes serializes the boot sector into a full sector, including the 0x55AA
// signature. The boot code area is zeroed.
func (bs *BootSector) Bytes() []byte {
	sector := make([]byte, c.BytesPerSector)
	writer := bytewriter.New(sector)

	// Can't fail; the struct is fixed-size and smaller than the sector.
	binary.Write(writer, binary.LittleEndian, &bs.RawBootSector)

	sector[bootSignatureOffset] = 0x55
	sector[bootSignatureOffset+1] = 0xAA
	return sector
}

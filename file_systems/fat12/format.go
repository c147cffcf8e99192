package fat12

import (
	"fmt"
	"strings"
	"time"

	"github.com/dargueta/fatkit/disks"
	"github.com/dargueta/fatkit/errors"
	c "github.com/dargueta/fatkit/file_systems/common"
	"github.com/dargueta/fatkit/file_systems/common/blockdevice"
)

// DefaultOEMName is written to the boot sector of formatted volumes unless
// another name is given.
const DefaultOEMName = "FATKIT  "

// FormatOptions controls the layout of a newly formatted volume. Fields left
// zero get the defaults noted.
type FormatOptions struct {
	// TotalSectors is the size of the volume. Defaults to the size of the
	// device.
	TotalSectors uint
	// SectorsPerCluster must be a power of 2 in 1-128. Defaults to 1.
	SectorsPerCluster uint8
	// ReservedSectors defaults to 1, i.e. just the boot sector.
	ReservedSectors uint16
	// NumFATs defaults to 2.
	NumFATs uint8
	// RootEntryCount defaults to 224.
	RootEntryCount uint16
	// Media defaults to 0xF0, removable media.
	Media           uint8
	SectorsPerTrack uint16
	NumHeads        uint16
	// VolumeLabel is stored in the boot sector and, if not empty, in a volume
	// label entry in the root directory. It's uppercased and can be at most 11
	// characters.
	VolumeLabel string
	// VolumeID defaults to a value derived from the time of formatting.
	VolumeID uint32
	OEMName  string
	// Timestamp is recorded in the volume label entry. Defaults to the current
	// time.
	Timestamp time.Time
}

// FormatOptionsFromGeometry gives the options DOS used when formatting a disk
// with the given geometry.
func FormatOptionsFromGeometry(geometry disks.DiskGeometry) FormatOptions {
	return FormatOptions{
		TotalSectors:      geometry.TotalSectors,
		SectorsPerCluster: uint8(geometry.SectorsPerCluster),
		ReservedSectors:   1,
		NumFATs:           2,
		RootEntryCount:    uint16(geometry.RootEntryCount),
		Media:             uint8(geometry.Media),
		SectorsPerTrack:   uint16(geometry.SectorsPerTrack),
		NumHeads:          uint16(geometry.Heads),
	}
}

func (options *FormatOptions) setDefaults(device blockdevice.SectorDevice) {
	if options.TotalSectors == 0 {
		options.TotalSectors = device.TotalSectors()
	}
	if options.SectorsPerCluster == 0 {
		options.SectorsPerCluster = 1
	}
	if options.ReservedSectors == 0 {
		options.ReservedSectors = 1
	}
	if options.NumFATs == 0 {
		options.NumFATs = 2
	}
	if options.RootEntryCount == 0 {
		options.RootEntryCount = 224
	}
	if options.Media == 0 {
		options.Media = 0xF0
	}
	if options.OEMName == "" {
		options.OEMName = DefaultOEMName
	}
	if options.Timestamp.IsZero() {
		options.Timestamp = time.Now()
	}
	if options.VolumeID == 0 {
		// DOS derives the serial number from the date and time of formatting.
		datePart, timePart, _ := TimestampToParts(options.Timestamp)
		options.VolumeID = uint32(datePart)<<16 | uint32(timePart)
	}
}

// normalizeLabel converts a volume label to its on-disk form. An empty label
// is stored as "NO NAME".
func normalizeLabel(label string) ([11]byte, error) {
	var rawLabel [11]byte
	copy(rawLabel[:], "NO NAME    ")
	if label == "" {
		return rawLabel, nil
	}

	if len(label) > len(rawLabel) {
		return rawLabel, errors.ErrNameTooLong.WithMessage(
			fmt.Sprintf("volume label %q is longer than 11 characters", label))
	}
	for i := 0; i < len(label); i++ {
		if label[i] < 0x20 || strings.IndexByte(invalidNameCharacters, label[i]) >= 0 {
			return rawLabel, errors.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("volume label %q has invalid character %#02x", label, label[i]))
		}
	}

	copy(rawLabel[:], "           ")
	copy(rawLabel[:], upperASCII(label))
	return rawLabel, nil
}

// computeSectorsPerFAT finds the smallest FAT that can hold an entry for every
// data cluster. Growing the FAT shrinks the data region, so this iterates until
// the size stops changing.
func computeSectorsPerFAT(options *FormatOptions, rootDirSectors uint) (uint, uint, error) {
	sectorsPerFAT := uint(1)
	for {
		metadataSectors := uint(options.ReservedSectors) +
			uint(options.NumFATs)*sectorsPerFAT +
			rootDirSectors
		if metadataSectors >= options.TotalSectors {
			return 0, 0, errors.ErrInvalidArgument.WithMessage(
				fmt.Sprintf(
					"volume of %d sectors is too small; metadata alone needs %d",
					options.TotalSectors,
					metadataSectors,
				),
			)
		}

		totalClusters := (options.TotalSectors - metadataSectors) /
			uint(options.SectorsPerCluster)

		// Entries 0 and 1 are reserved, and each entry is 1.5 bytes.
		fatBytes := ((totalClusters+uint(FirstDataCluster))*3 + 1) / 2
		needed := (fatBytes + c.BytesPerSector - 1) / c.BytesPerSector
		if needed <= sectorsPerFAT {
			return sectorsPerFAT, totalClusters, nil
		}
		sectorsPerFAT = needed
	}
}

// Format writes an empty FAT12 volume to `device`, destroying anything on it.
// Every sector of the volume is written: the boot sector, all FATs, an empty
// root directory, and a zeroed data region.
//
// Errors:
//
//   - [errors.EINVAL]: the options don't describe a valid FAT12 volume, e.g.
//     the volume would have too many clusters.
//   - [errors.ENOSPC]: the volume is larger than the device.
//   - [errors.EIO]: a sector couldn't be written.
func Format(device blockdevice.SectorDevice, options FormatOptions) error {
	options.setDefaults(device)

	if options.TotalSectors > device.TotalSectors() {
		return errors.ErrNoSpaceOnDevice.WithMessage(
			fmt.Sprintf(
				"volume of %d sectors doesn't fit on a device with %d",
				options.TotalSectors,
				device.TotalSectors(),
			),
		)
	}

	spc := options.SectorsPerCluster
	if spc&(spc-1) != 0 {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("sectors per cluster must be a power of 2, got %d", spc))
	}
	if len(options.OEMName) > 8 {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("OEM name %q is longer than 8 characters", options.OEMName))
	}

	rawLabel, err := normalizeLabel(options.VolumeLabel)
	if err != nil {
		return err
	}

	rootDirSectors := (uint(options.RootEntryCount)*DirentSize + c.BytesPerSector - 1) /
		c.BytesPerSector
	sectorsPerFAT, totalClusters, err := computeSectorsPerFAT(&options, rootDirSectors)
	if err != nil {
		return err
	}
	if totalClusters >= MaxFAT12Clusters {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"volume would have %d clusters; FAT12 supports at most %d. Use larger clusters.",
				totalClusters,
				MaxFAT12Clusters-1,
			),
		)
	}

	bootSector := BootSector{
		RawBootSector: RawBootSector{
			JumpInstruction:   [3]byte{0xEB, 0x3C, 0x90},
			BytesPerSector:    c.BytesPerSector,
			SectorsPerCluster: spc,
			ReservedSectors:   options.ReservedSectors,
			NumFATs:           options.NumFATs,
			RootEntryCount:    options.RootEntryCount,
			Media:             options.Media,
			SectorsPerFAT:     uint16(sectorsPerFAT),
			SectorsPerTrack:   options.SectorsPerTrack,
			NumHeads:          options.NumHeads,
			ExBootSignature:   extendedBootSignature,
			VolumeID:          options.VolumeID,
			VolumeLabel:       rawLabel,
		},
	}
	copy(bootSector.OEMName[:], fmt.Sprintf("%-8s", options.OEMName))
	copy(bootSector.FileSystemType[:], FileSystemTypeLabel)
	if options.TotalSectors < 0x10000 {
		bootSector.TotalSectors16 = uint16(options.TotalSectors)
	} else {
		bootSector.TotalSectors32 = uint32(options.TotalSectors)
	}

	// Catches anything the checks above missed, and fills in the layout.
	err = bootSector.computeLayout()
	if err != nil {
		return errors.ErrInvalidArgument.Wrap(err)
	}

	return writeVolume(device, &bootSector, options)
}

// writeVolume writes every sector of a blank volume described by `bootSector`.
func writeVolume(device blockdevice.SectorDevice, bootSector *BootSector, options FormatOptions) error {
	fat := make([]byte, uint(bootSector.SectorsPerFAT)*c.BytesPerSector)
	setEntry(fat, 0, 0xF00|c.ClusterID(bootSector.Media))
	setEntry(fat, 1, EndOfChainMarker)

	rootDir := make([]byte, bootSector.RootDirSectors*c.BytesPerSector)
	if options.VolumeLabel != "" {
		labelEntry := Dirent{
			ShortName:      bootSector.VolumeLabel,
			AttributeFlags: AttrVolumeLabel,
			LastModified:   options.Timestamp,
		}
		labelEntry.Encode(rootDir)
	}

	err := blockdevice.WriteSectors(device, 0, bootSector.Bytes())
	if err != nil {
		return errors.CastToDriverError(err)
	}

	zeroSector := make([]byte, c.BytesPerSector)
	for sector := c.SectorID(1); sector < bootSector.FirstFATSector; sector++ {
		err = device.WriteSector(sector, zeroSector)
		if err != nil {
			return errors.CastToDriverError(err)
		}
	}

	fatStarts := append([]c.SectorID{bootSector.FirstFATSector}, bootSector.FATCopySectors()...)
	for _, start := range fatStarts {
		err = blockdevice.WriteSectors(device, start, fat)
		if err != nil {
			return errors.CastToDriverError(err)
		}
	}

	err = blockdevice.WriteSectors(device, bootSector.FirstRootDirSector, rootDir)
	if err != nil {
		return errors.CastToDriverError(err)
	}

	for sector := bootSector.FirstDataSector; uint(sector) < bootSector.TotalSectors; sector++ {
		err = device.WriteSector(sector, zeroSector)
		if err != nil {
			return errors.CastToDriverError(err)
		}
	}
	return nil
}

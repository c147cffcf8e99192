// Package blockdevice provides the sector-level I/O layer that file system
// drivers are built on. Devices are addressed by 28-bit logical block address
// and transfer exactly one 512-byte sector per call.
package blockdevice

import (
	"fmt"

	"github.com/dargueta/fatkit/errors"
	c "github.com/dargueta/fatkit/file_systems/common"
)

// SectorDevice is a raw block device that reads and writes single sectors.
// Implementations report success or failure only; any retrying happens inside
// the device.
//
// Generated mock using mockgen:
//
//	mockgen -source=device.go -destination=device_mock.go -package blockdevice
type SectorDevice interface {
	// ReadSector fills `buffer`, which must be exactly [c.BytesPerSector] bytes,
	// with the contents of the sector at `sector`.
	ReadSector(sector c.SectorID, buffer []byte) error
	// WriteSector writes `data`, which must be exactly [c.BytesPerSector] bytes,
	// to the sector at `sector`.
	WriteSector(sector c.SectorID, data []byte) error
	// TotalSectors gives the number of addressable sectors on the device.
	TotalSectors() uint
}

// ReadSectors reads `len(buffer) / BytesPerSector` consecutive sectors
// beginning at `start`. `buffer` must be a whole number of sectors. It stops at
// the first failed sector; the contents of `buffer` are undefined in that case.
func ReadSectors(device SectorDevice, start c.SectorID, buffer []byte) error {
	err := checkWholeSectors(len(buffer))
	if err != nil {
		return err
	}

	for offset := 0; offset < len(buffer); offset += c.BytesPerSector {
		sector := start + c.SectorID(offset/c.BytesPerSector)
		err = device.ReadSector(sector, buffer[offset:offset+c.BytesPerSector])
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteSectors is the write counterpart of [ReadSectors].
func WriteSectors(device SectorDevice, start c.SectorID, data []byte) error {
	err := checkWholeSectors(len(data))
	if err != nil {
		return err
	}

	for offset := 0; offset < len(data); offset += c.BytesPerSector {
		sector := start + c.SectorID(offset/c.BytesPerSector)
		err = device.WriteSector(sector, data[offset:offset+c.BytesPerSector])
		if err != nil {
			return err
		}
	}
	return nil
}

func checkWholeSectors(length int) error {
	if length%c.BytesPerSector != 0 {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"data must be a multiple of the sector size (%d B), got %d (remainder %d)",
				c.BytesPerSector,
				length,
				length%c.BytesPerSector,
			),
		)
	}
	return nil
}

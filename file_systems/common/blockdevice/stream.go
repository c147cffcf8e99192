package blockdevice

import (
	"fmt"
	"io"

	"github.com/dargueta/fatkit/errors"
	c "github.com/dargueta/fatkit/file_systems/common"
)

// DefaultRetryBudget is the number of attempts a [StreamDevice] makes for a
// single sector operation before giving up.
const DefaultRetryBudget = 3

// StreamDevice is a [SectorDevice] backed by any seekable stream, such as an
// image file or an in-memory buffer.
//
// The exposed fields are for informational purposes only and should never be
// changed, with the exception of RetryBudget.
type StreamDevice struct {
	// RetryBudget is the number of attempts made for each sector operation
	// before it fails. Values less than 1 are treated as 1.
	RetryBudget  int
	stream       io.ReadWriteSeeker
	totalSectors uint
}

// WrapStream creates a [StreamDevice] exposing `totalSectors` sectors of
// `stream`, starting at offset 0.
func WrapStream(stream io.ReadWriteSeeker, totalSectors uint) (*StreamDevice, error) {
	if totalSectors > uint(c.MaxSectorID)+1 {
		return nil, errors.ErrFileTooLarge.WithMessage(
			fmt.Sprintf(
				"%d sectors can't be addressed with 28-bit LBA (max %d)",
				totalSectors,
				uint(c.MaxSectorID)+1,
			),
		)
	}

	return &StreamDevice{
		RetryBudget:  DefaultRetryBudget,
		stream:       stream,
		totalSectors: totalSectors,
	}, nil
}

// WrapStreamWithInferredSize is like [WrapStream] but determines the number of
// sectors from the size of the stream, rounded down to the nearest sector.
func WrapStreamWithInferredSize(stream io.ReadWriteSeeker) (*StreamDevice, error) {
	totalSectors, err := DetermineSectorCount(stream)
	if err != nil {
		return nil, err
	}
	return WrapStream(stream, totalSectors)
}

// DetermineSectorCount gives the total number of sectors in a stream, rounded
// down to the nearest sector.
func DetermineSectorCount(stream io.Seeker) (uint, error) {
	offset, err := stream.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, errors.ErrIOFailed.Wrap(err)
	}
	return uint(offset / c.BytesPerSector), nil
}

// TotalSectors implements [SectorDevice].
func (device *StreamDevice) TotalSectors() uint {
	return device.totalSectors
}

// Size gives the size of the device, in bytes.
func (device *StreamDevice) Size() int64 {
	return int64(device.totalSectors) * c.BytesPerSector
}

// ReadSector implements [SectorDevice].
func (device *StreamDevice) ReadSector(sector c.SectorID, buffer []byte) error {
	err := device.checkIOBounds(sector, len(buffer))
	if err != nil {
		return err
	}

	return device.withRetries(
		func() error {
			_, err := device.seekToSector(sector)
			if err != nil {
				return err
			}
			_, err = io.ReadFull(device.stream, buffer)
			return err
		},
		"read",
		sector,
	)
}

// WriteSector implements [SectorDevice].
func (device *StreamDevice) WriteSector(sector c.SectorID, data []byte) error {
	err := device.checkIOBounds(sector, len(data))
	if err != nil {
		return err
	}

	return device.withRetries(
		func() error {
			_, err := device.seekToSector(sector)
			if err != nil {
				return err
			}
			n, err := device.stream.Write(data)
			if err == nil && n < len(data) {
				err = io.ErrShortWrite
			}
			return err
		},
		"write",
		sector,
	)
}

// Resize changes the size of the backing stream to exactly `totalSectors`
// sectors. The stream must implement [c.Truncator].
func (device *StreamDevice) Resize(totalSectors uint) error {
	truncator, ok := device.stream.(c.Truncator)
	if !ok {
		return errors.ErrNotSupported.WithMessage("stream can't be resized")
	}
	if totalSectors > uint(c.MaxSectorID)+1 {
		return errors.ErrFileTooLarge.WithMessage(
			fmt.Sprintf("%d sectors exceeds the 28-bit LBA limit", totalSectors))
	}

	err := truncator.Truncate(int64(totalSectors) * c.BytesPerSector)
	if err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	device.totalSectors = totalSectors
	return nil
}

// checkIOBounds verifies that exactly one sector is being transferred and that
// the sector exists on the device.
func (device *StreamDevice) checkIOBounds(sector c.SectorID, dataLength int) error {
	if dataLength != c.BytesPerSector {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"buffer must be exactly one sector (%d B), got %d",
				c.BytesPerSector,
				dataLength,
			),
		)
	}

	if sector > c.MaxSectorID || uint(sector) >= device.totalSectors {
		return errors.ErrIOFailed.WithMessage(
			fmt.Sprintf(
				"invalid sector %d: not in range [0, %d)",
				sector,
				device.totalSectors,
			),
		)
	}
	return nil
}

// seekToSector positions the stream pointer at the byte offset where the given
// sector starts.
func (device *StreamDevice) seekToSector(sector c.SectorID) (int64, error) {
	return device.stream.Seek(int64(sector)*c.BytesPerSector, io.SeekStart)
}

// withRetries runs `operation` until it succeeds or the retry budget is
// exhausted. The error from the last attempt is returned wrapped in EIO.
func (device *StreamDevice) withRetries(
	operation func() error,
	verb string,
	sector c.SectorID,
) error {
	attempts := device.RetryBudget
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = operation()
		if err == nil {
			return nil
		}
	}

	return errors.ErrIOFailed.WithMessage(
		fmt.Sprintf(
			"failed to %s sector %d after %d attempts: %s",
			verb,
			sector,
			attempts,
			err.Error(),
		),
	)
}

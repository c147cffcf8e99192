// Package region provides an in-memory mirror of a contiguous range of sectors
// on a block device, such as a file allocation table or a fixed-size root
// directory. Modified sectors are tracked and only those are written back.
//
// All offsets are in bytes from the beginning of the region unless stated
// otherwise.
package region

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/fatkit/errors"
	c "github.com/dargueta/fatkit/file_systems/common"
	"github.com/dargueta/fatkit/file_systems/common/blockdevice"
	"github.com/hashicorp/go-multierror"
)

// Region mirrors `totalSectors` sectors starting at `first`. The same contents
// can optionally be written to additional copies elsewhere on the device when
// flushed, e.g. the second FAT on a volume.
type Region struct {
	device       blockdevice.SectorDevice
	first        c.SectorID
	copies       []c.SectorID
	totalSectors uint
	dirtySectors bitmap.Bitmap
	data         []byte
}

// Snapshot is a saved copy of a region's contents, used for undoing in-memory
// modifications after a failed operation.
type Snapshot struct {
	data         []byte
	dirtySectors bitmap.Bitmap
}

// Load reads `count` sectors beginning at `first` from the device. `copies`
// gives the first sector of each mirrored copy of the region; they're only
// ever written to, never read.
//
// If any sector fails to load, no region is returned.
func Load(
	device blockdevice.SectorDevice,
	first c.SectorID,
	count uint,
	copies ...c.SectorID,
) (*Region, error) {
	for _, start := range append([]c.SectorID{first}, copies...) {
		end := uint(start) + count
		if end > device.TotalSectors() {
			return nil, errors.ErrInvalidArgument.WithMessage(
				fmt.Sprintf(
					"region of %d sectors at %d extends past end of device: %d not in [0, %d]",
					count,
					start,
					end,
					device.TotalSectors(),
				),
			)
		}
	}

	data := make([]byte, count*c.BytesPerSector)
	err := blockdevice.ReadSectors(device, first, data)
	if err != nil {
		return nil, err
	}

	return &Region{
		device:       device,
		first:        first,
		copies:       copies,
		totalSectors: count,
		dirtySectors: bitmap.New(int(count)),
		data:         data,
	}, nil
}

// FirstSector gives the sector the primary copy of the region begins at.
func (r *Region) FirstSector() c.SectorID {
	return r.first
}

// TotalSectors gives the size of the region, in sectors.
func (r *Region) TotalSectors() uint {
	return r.totalSectors
}

// Size gives the size of the region, in bytes.
func (r *Region) Size() int {
	return len(r.data)
}

// Bytes returns the region's storage directly. Modifications to the returned
// slice MUST be followed by a call to [Region.MarkDirty] for the affected
// range, or they won't be written out.
func (r *Region) Bytes() []byte {
	return r.data
}

// MarkDirty marks every sector overlapping the byte range
// [offset, offset + length) as modified.
func (r *Region) MarkDirty(offset, length int) error {
	if offset < 0 || length < 0 || offset+length > len(r.data) {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"can't mark %d bytes at offset %d dirty: range not in [0, %d)",
				length,
				offset,
				len(r.data),
			),
		)
	}
	if length == 0 {
		return nil
	}

	firstSector := offset / c.BytesPerSector
	lastSector := (offset + length - 1) / c.BytesPerSector
	for i := firstSector; i <= lastSector; i++ {
		r.dirtySectors.Set(i, true)
	}
	return nil
}

// IsDirty returns true if any sector in the region has unflushed changes.
func (r *Region) IsDirty() bool {
	for i := 0; i < int(r.totalSectors); i++ {
		if r.dirtySectors.Get(i) {
			return true
		}
	}
	return false
}

// Flush writes every dirty sector to the primary range and then to each copy.
// A sector is marked clean only once it was written to all of them.
//
// Writing continues past failures so that as many copies as possible are
// consistent; all errors encountered are returned together.
func (r *Region) Flush() error {
	var result *multierror.Error

	for i := 0; i < int(r.totalSectors); i++ {
		// Missing sectors are never dirty, since the entire region is loaded
		// up front.
		if !r.dirtySectors.Get(i) {
			continue
		}

		sectorData := r.data[i*c.BytesPerSector : (i+1)*c.BytesPerSector]
		writtenEverywhere := true

		for _, start := range append([]c.SectorID{r.first}, r.copies...) {
			err := r.device.WriteSector(start+c.SectorID(i), sectorData)
			if err != nil {
				writtenEverywhere = false
				result = multierror.Append(
					result,
					fmt.Errorf(
						"failed to flush sector %d of region at %d to sector %d: %w",
						i,
						r.first,
						start+c.SectorID(i),
						err,
					),
				)
			}
		}

		if writtenEverywhere {
			r.dirtySectors.Set(i, false)
		}
	}

	if result != nil {
		return errors.ErrIOFailed.Wrap(result.ErrorOrNil())
	}
	return nil
}

// Snapshot saves a copy of the region's current contents and dirty state.
func (r *Region) Snapshot() Snapshot {
	snapshot := Snapshot{
		data:         make([]byte, len(r.data)),
		dirtySectors: bitmap.New(int(r.totalSectors)),
	}
	copy(snapshot.data, r.data)
	copy(snapshot.dirtySectors, r.dirtySectors)
	return snapshot
}

// Restore reverts the region's contents to those saved in `snapshot`.
//
// Any sector that differs from the snapshot is marked dirty along with those
// that were dirty when the snapshot was taken, so that sectors flushed since
// then are rewritten on the next flush.
func (r *Region) Restore(snapshot Snapshot) {
	for i := 0; i < int(r.totalSectors); i++ {
		start := i * c.BytesPerSector
		end := start + c.BytesPerSector

		changed := false
		for j := start; j < end; j++ {
			if r.data[j] != snapshot.data[j] {
				changed = true
				break
			}
		}
		r.dirtySectors.Set(i, changed || snapshot.dirtySectors.Get(i))
	}
	copy(r.data, snapshot.data)
}

// Package common contains definitions of fundamental types and functions used
// across multiple file system implementations.
package common

// SectorID is a logical block address: the index of a sector from the
// beginning of the device.
type SectorID uint32

// ClusterID is the number of a cluster in the data region of a FAT volume.
// Clusters 0 and 1 are reserved; data clusters start at 2.
type ClusterID uint16

// BytesPerSector is the only sector size supported by the block device layer.
const BytesPerSector = 512

// MaxSectorID is the highest sector addressable with 28-bit LBA.
const MaxSectorID = SectorID(1<<28 - 1)

// Truncator is an interface for objects that support a Truncate() method. This
// method must behave just like [os.File.Truncate].
type Truncator interface {
	Truncate(size int64) error
}

package fat12

import (
	"encoding/binary"
	"fmt"

	"github.com/dargueta/fatkit/errors"
	c "github.com/dargueta/fatkit/file_systems/common"
	"github.com/dargueta/fatkit/file_systems/common/region"
)

const (
	// FreeCluster is the FAT entry value of an unallocated cluster.
	FreeCluster c.ClusterID = 0
	// FirstDataCluster is the lowest cluster number that can hold data.
	// Clusters 0 and 1 are reserved.
	FirstDataCluster c.ClusterID = 2
	// BadClusterMarker is the FAT entry value of a cluster with a bad sector.
	BadClusterMarker c.ClusterID = 0xFF7
	// EndOfChainMarker is the value written to the FAT entry of the last
	// cluster in a chain.
	EndOfChainMarker c.ClusterID = 0xFFF
	// EndOfChain is returned by [Table.Next] for the last cluster in a chain.
	// It's distinct from every 12-bit value so it can't be mistaken for a
	// cluster number.
	EndOfChain c.ClusterID = 0xFFFF

	minEndOfChainValue = 0xFF8
	entryMask          = 0xFFF
)

// getEntry decodes the raw 12-bit FAT entry for `cluster`. Two entries are
// packed into three bytes; odd clusters occupy the upper 12 bits of the 16-bit
// word at `cluster + cluster/2`, even clusters the lower 12 bits.
func getEntry(fat []byte, cluster c.ClusterID) c.ClusterID {
	offset := int(cluster) + int(cluster)/2
	word := binary.LittleEndian.Uint16(fat[offset : offset+2])
	if cluster%2 == 1 {
		return c.ClusterID(word >> 4)
	}
	return c.ClusterID(word & entryMask)
}

// setEntry is the inverse of [getEntry]. The nibble shared with the adjacent
// cluster's entry is preserved.
func setEntry(fat []byte, cluster c.ClusterID, value c.ClusterID) {
	offset := int(cluster) + int(cluster)/2
	word := binary.LittleEndian.Uint16(fat[offset : offset+2])
	value &= entryMask

	if cluster%2 == 1 {
		word = (word & 0x000F) | uint16(value<<4)
	} else {
		word = (word & 0xF000) | uint16(value)
	}
	binary.LittleEndian.PutUint16(fat[offset:offset+2], word)
}

// entriesInBuffer gives the number of whole 12-bit entries that fit in a FAT
// of `size` bytes.
func entriesInBuffer(size int) int {
	return size * 2 / 3
}

// Table is the file allocation table of a mounted volume, kept in memory.
type Table struct {
	region *region.Region
	// lastEntry is the highest cluster whose entry fits in the buffer.
	lastEntry c.ClusterID
	// maxCluster is the highest cluster that can be allocated. It's bounded by
	// both the size of the buffer and the number of clusters on the volume.
	maxCluster c.ClusterID
}

// NewTable creates a [Table] over the first copy of the FAT of a volume with
// `totalClusters` data clusters.
func NewTable(fat *region.Region, totalClusters uint) *Table {
	lastEntry := entriesInBuffer(fat.Size()) - 1
	maxCluster := int(totalClusters) + int(FirstDataCluster) - 1
	if maxCluster > lastEntry {
		maxCluster = lastEntry
	}

	return &Table{
		region:     fat,
		lastEntry:  c.ClusterID(lastEntry),
		maxCluster: c.ClusterID(maxCluster),
	}
}

// MaxCluster gives the highest allocatable cluster number.
func (t *Table) MaxCluster() c.ClusterID {
	return t.maxCluster
}

// IsValidCluster determines if `cluster` can hold data on this volume.
func (t *Table) IsValidCluster(cluster c.ClusterID) bool {
	return cluster >= FirstDataCluster && cluster <= t.maxCluster
}

func (t *Table) checkEntryBounds(cluster c.ClusterID) error {
	if cluster > t.lastEntry {
		return errors.ErrResultOutOfRange.WithMessage(
			fmt.Sprintf(
				"invalid cluster %d: not in range [0, %d]", cluster, t.lastEntry))
	}
	return nil
}

// Get returns the raw 12-bit value of the FAT entry for `cluster`.
func (t *Table) Get(cluster c.ClusterID) (c.ClusterID, error) {
	err := t.checkEntryBounds(cluster)
	if err != nil {
		return 0, err
	}
	return getEntry(t.region.Bytes(), cluster), nil
}

// Next returns the cluster following `cluster` in its chain. Every value from
// 0xFF8 to 0xFFF is returned as [EndOfChain].
func (t *Table) Next(cluster c.ClusterID) (c.ClusterID, error) {
	value, err := t.Get(cluster)
	if err != nil {
		return 0, err
	}
	if value >= minEndOfChainValue {
		return EndOfChain, nil
	}
	return value, nil
}

// Set changes the FAT entry for `cluster` to `value`, masked to 12 bits.
// [EndOfChain] is thus written as [EndOfChainMarker]. The change is only in
// memory until [Table.Flush] is called.
func (t *Table) Set(cluster c.ClusterID, value c.ClusterID) error {
	err := t.checkEntryBounds(cluster)
	if err != nil {
		return err
	}

	setEntry(t.region.Bytes(), cluster, value)
	return t.region.MarkDirty(int(cluster)+int(cluster)/2, 2)
}

// FindFree returns the lowest-numbered free cluster.
func (t *Table) FindFree() (c.ClusterID, error) {
	for cluster := FirstDataCluster; cluster <= t.maxCluster; cluster++ {
		if getEntry(t.region.Bytes(), cluster) == FreeCluster {
			return cluster, nil
		}
	}
	return 0, errors.ErrNoSpaceOnDevice.WithMessage("no free clusters")
}

// CountFree gives the number of free clusters.
func (t *Table) CountFree() uint {
	total := uint(0)
	for cluster := FirstDataCluster; cluster <= t.maxCluster; cluster++ {
		if getEntry(t.region.Bytes(), cluster) == FreeCluster {
			total++
		}
	}
	return total
}

// Flush writes all modified sectors of the table to every FAT on the volume.
func (t *Table) Flush() error {
	return t.region.Flush()
}

// Snapshot saves the current state of the table.
func (t *Table) Snapshot() region.Snapshot {
	return t.region.Snapshot()
}

// Restore reverts the table to a previously saved state.
func (t *Table) Restore(snapshot region.Snapshot) {
	t.region.Restore(snapshot)
}

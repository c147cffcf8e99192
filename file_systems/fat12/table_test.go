package fat12

import (
	"bytes"
	"testing"

	"github.com/dargueta/fatkit/errors"
	c "github.com/dargueta/fatkit/file_systems/common"
	"github.com/dargueta/fatkit/file_systems/common/blockdevice"
	"github.com/dargueta/fatkit/file_systems/common/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// newTestTable creates a table over a one-sector FAT at sector 0 of an
// in-memory device, with a second copy at sector 1.
func newTestTable(t *testing.T, totalClusters uint) (*Table, []byte) {
	backing := make([]byte, 2*c.BytesPerSector)
	device, err := blockdevice.WrapStream(bytesextra.NewReadWriteSeeker(backing), 2)
	require.NoError(t, err)

	fat, err := region.Load(device, 0, 1, 1)
	require.NoError(t, err)
	return NewTable(fat, totalClusters), backing
}

func TestEntryCodec__Layout(t *testing.T) {
	fat := make([]byte, 12)
	setEntry(fat, 2, 0xABC)
	setEntry(fat, 3, 0x123)

	assert.Equal(t, []byte{0xBC, 0x3A, 0x12}, fat[3:6])
	assert.EqualValues(t, 0xABC, getEntry(fat, 2))
	assert.EqualValues(t, 0x123, getEntry(fat, 3))
}

func TestEntryCodec__PreservesNeighbors(t *testing.T) {
	for cluster := c.ClusterID(1); cluster < 7; cluster++ {
		fat := bytes.Repeat([]byte{0xFF}, 12)
		setEntry(fat, cluster, 0)

		for other := c.ClusterID(0); other < 8; other++ {
			if other == cluster {
				assert.EqualValues(t, 0, getEntry(fat, other))
			} else {
				assert.EqualValues(
					t, 0xFFF, getEntry(fat, other),
					"setting %d changed %d", cluster, other)
			}
		}
	}
}

func TestTable__EveryClusterRoundTrips(t *testing.T) {
	table, _ := newTestTable(t, 1000)
	require.EqualValues(t, 340, table.MaxCluster())

	// Alternate between patterns so adjacent entries never share nibbles.
	pattern := func(cluster c.ClusterID) c.ClusterID {
		if cluster%2 == 0 {
			return (0xA5A ^ cluster*7) & 0xFFF
		}
		return (0x5A5 ^ cluster*13) & 0xFFF
	}

	for cluster := FirstDataCluster; cluster <= table.MaxCluster(); cluster++ {
		require.NoError(t, table.Set(cluster, pattern(cluster)))
	}

	for cluster := FirstDataCluster; cluster <= table.MaxCluster(); cluster++ {
		value, err := table.Get(cluster)
		require.NoError(t, err)
		assert.Equal(t, pattern(cluster), value, "cluster %d", cluster)

		next, err := table.Next(cluster)
		require.NoError(t, err)
		if value >= 0xFF8 {
			assert.Equal(t, EndOfChain, next, "cluster %d", cluster)
		} else {
			assert.Equal(t, value, next, "cluster %d", cluster)
		}
	}

	// Overwriting any single entry leaves both of its neighbors alone.
	for cluster := FirstDataCluster; cluster <= table.MaxCluster(); cluster++ {
		inverted := ^pattern(cluster) & 0xFFF
		require.NoError(t, table.Set(cluster, inverted))

		value, err := table.Get(cluster)
		require.NoError(t, err)
		assert.Equal(t, inverted, value, "cluster %d", cluster)

		for _, neighbor := range []c.ClusterID{cluster - 1, cluster + 1} {
			if neighbor < FirstDataCluster || neighbor > table.MaxCluster() {
				continue
			}
			value, err = table.Get(neighbor)
			require.NoError(t, err)
			assert.Equal(
				t, pattern(neighbor), value, "setting %d changed %d", cluster, neighbor)
		}

		require.NoError(t, table.Set(cluster, pattern(cluster)))
	}
}

func TestEntryCodec__MasksTo12Bits(t *testing.T) {
	fat := make([]byte, 6)
	setEntry(fat, 2, EndOfChain)
	assert.EqualValues(t, EndOfChainMarker, getEntry(fat, 2))
	assert.EqualValues(t, 0, getEntry(fat, 1))
	assert.EqualValues(t, 0, getEntry(fat, 3))
}

func TestNewTable__Bounds(t *testing.T) {
	table, _ := newTestTable(t, 10)
	assert.EqualValues(t, 11, table.MaxCluster())
	assert.False(t, table.IsValidCluster(1))
	assert.True(t, table.IsValidCluster(2))
	assert.True(t, table.IsValidCluster(11))
	assert.False(t, table.IsValidCluster(12))

	// More clusters than a single sector can describe.
	table, _ = newTestTable(t, 1000)
	assert.EqualValues(t, 340, table.MaxCluster())
}

func TestTableGetSet(t *testing.T) {
	table, _ := newTestTable(t, 10)

	require.NoError(t, table.Set(5, 0x7A5))
	value, err := table.Get(5)
	require.NoError(t, err)
	assert.EqualValues(t, 0x7A5, value)

	next, err := table.Next(5)
	require.NoError(t, err)
	assert.EqualValues(t, 0x7A5, next)
}

func TestTableNext__EndOfChainValues(t *testing.T) {
	table, _ := newTestTable(t, 10)

	for value := c.ClusterID(0xFF8); value <= 0xFFF; value++ {
		require.NoError(t, table.Set(4, value))
		next, err := table.Next(4)
		require.NoError(t, err)
		assert.Equal(t, EndOfChain, next, "%#x should end the chain", value)
	}

	require.NoError(t, table.Set(4, BadClusterMarker))
	next, err := table.Next(4)
	require.NoError(t, err)
	assert.Equal(t, BadClusterMarker, next)
}

func TestTableGetSet__OutOfRange(t *testing.T) {
	table, _ := newTestTable(t, 10)

	// The last whole entry in 512 bytes is 340.
	_, err := table.Get(340)
	assert.NoError(t, err)

	_, err = table.Get(341)
	assert.ErrorIs(t, err, errors.ErrResultOutOfRange)
	err = table.Set(341, 0)
	assert.ErrorIs(t, err, errors.ErrResultOutOfRange)
}

func TestTableFindFree(t *testing.T) {
	table, _ := newTestTable(t, 10)

	cluster, err := table.FindFree()
	require.NoError(t, err)
	assert.EqualValues(t, 2, cluster)
	assert.EqualValues(t, 10, table.CountFree())

	require.NoError(t, table.Set(2, EndOfChainMarker))
	require.NoError(t, table.Set(3, BadClusterMarker))
	cluster, err = table.FindFree()
	require.NoError(t, err)
	assert.EqualValues(t, 4, cluster)
	assert.EqualValues(t, 8, table.CountFree())
}

func TestTableFindFree__Full(t *testing.T) {
	table, _ := newTestTable(t, 10)
	for cluster := FirstDataCluster; cluster <= table.MaxCluster(); cluster++ {
		require.NoError(t, table.Set(cluster, EndOfChainMarker))
	}

	_, err := table.FindFree()
	assert.ErrorIs(t, err, errors.ErrNoSpaceOnDevice)
	assert.EqualValues(t, 0, table.CountFree())

	// Entries past the end of the volume are never handed out, even if free.
	value, err := table.Get(table.MaxCluster() + 1)
	require.NoError(t, err)
	assert.Equal(t, FreeCluster, value)
}

func TestTableFlush__WritesAllCopies(t *testing.T) {
	table, backing := newTestTable(t, 10)
	require.NoError(t, table.Set(2, 3))
	require.NoError(t, table.Set(3, EndOfChainMarker))
	require.NoError(t, table.Flush())

	primary := backing[:c.BytesPerSector]
	secondCopy := backing[c.BytesPerSector:]
	assert.Equal(t, primary, secondCopy)
	assert.EqualValues(t, 3, getEntry(primary, 2))
	assert.EqualValues(t, EndOfChainMarker, getEntry(primary, 3))
}

func TestTableSnapshotRestore(t *testing.T) {
	table, _ := newTestTable(t, 10)
	require.NoError(t, table.Set(2, EndOfChainMarker))
	snapshot := table.Snapshot()

	require.NoError(t, table.Set(2, FreeCluster))
	require.NoError(t, table.Set(7, EndOfChainMarker))
	table.Restore(snapshot)

	value, err := table.Get(2)
	require.NoError(t, err)
	assert.Equal(t, EndOfChainMarker, value)
	value, err = table.Get(7)
	require.NoError(t, err)
	assert.Equal(t, FreeCluster, value)
}

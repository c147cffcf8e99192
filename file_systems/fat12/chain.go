package fat12

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/fatkit/errors"
	c "github.com/dargueta/fatkit/file_systems/common"
)

// chainWalker follows a cluster chain one link at a time, detecting corruption
// as it goes.
type chainWalker struct {
	table   *Table
	first   c.ClusterID
	next    c.ClusterID
	index   int
	visited bitmap.Bitmap
}

func (t *Table) walkChain(first c.ClusterID) *chainWalker {
	next := first
	if first == FreeCluster {
		// An empty file has no chain at all.
		next = EndOfChain
	}

	return &chainWalker{
		table:   t,
		first:   first,
		next:    next,
		visited: bitmap.New(int(t.maxCluster) + 1),
	}
}

// Next returns the next cluster in the chain. The boolean is false once the
// end of the chain has been reached.
//
// A chain that points outside the data region, runs into a free cluster, or
// loops back on itself is reported as [errors.EUCLEAN].
func (w *chainWalker) Next() (c.ClusterID, bool, error) {
	current := w.next
	if current == EndOfChain {
		return 0, false, nil
	}

	if current == FreeCluster {
		return 0, false, errors.ErrFileSystemCorrupted.WithMessage(
			fmt.Sprintf(
				"chain starting at %d hits a free cluster at index %d",
				w.first,
				w.index,
			),
		)
	}
	if !w.table.IsValidCluster(current) {
		return 0, false, errors.ErrFileSystemCorrupted.WithMessage(
			fmt.Sprintf(
				"chain starting at %d has invalid cluster %#x at index %d; not in range [%d, %d]",
				w.first,
				current,
				w.index,
				FirstDataCluster,
				w.table.maxCluster,
			),
		)
	}
	if w.visited.Get(int(current)) {
		return 0, false, errors.ErrFileSystemCorrupted.WithMessage(
			fmt.Sprintf(
				"cycle detected in chain starting at %d: cluster %d repeats at index %d",
				w.first,
				current,
				w.index,
			),
		)
	}

	w.visited.Set(int(current), true)
	next, err := w.table.Next(current)
	if err != nil {
		return 0, false, err
	}

	w.next = next
	w.index++
	return current, true, nil
}

// Chain returns every cluster in the chain beginning at `first`, in order. A
// `first` of [FreeCluster] gives an empty chain.
func (t *Table) Chain(first c.ClusterID) ([]c.ClusterID, error) {
	walker := t.walkChain(first)
	chain := []c.ClusterID{}

	for {
		cluster, ok, err := walker.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return chain, nil
		}
		chain = append(chain, cluster)
	}
}

// FreeChain marks every cluster in the chain beginning at `first` as free, and
// returns the number of clusters freed.
//
// Corrupted chains are freed as far as possible: freeing stops at the first
// link that points outside the data region or to a cluster already seen.
func (t *Table) FreeChain(first c.ClusterID) (int, error) {
	visited := bitmap.New(int(t.maxCluster) + 1)
	current := first
	freed := 0

	for t.IsValidCluster(current) && !visited.Get(int(current)) {
		visited.Set(int(current), true)

		next, err := t.Next(current)
		if err != nil {
			return freed, err
		}

		err = t.Set(current, FreeCluster)
		if err != nil {
			return freed, err
		}

		freed++
		current = next
	}
	return freed, nil
}

// LinkChain writes the FAT entries that join `clusters` into a single chain in
// the given order, terminating it with [EndOfChainMarker].
func (t *Table) LinkChain(clusters []c.ClusterID) error {
	for i, cluster := range clusters {
		next := EndOfChainMarker
		if i+1 < len(clusters) {
			next = clusters[i+1]
		}

		err := t.Set(cluster, next)
		if err != nil {
			return err
		}
	}
	return nil
}

// PickClusters chooses `count` distinct clusters for a new chain without
// modifying the table. Free clusters are taken first-fit; clusters in
// `reusable`, which must belong to a chain about to be freed, are only used
// once no other free clusters remain.
func (t *Table) PickClusters(count int, reusable []c.ClusterID) ([]c.ClusterID, error) {
	picked := make([]c.ClusterID, 0, count)
	fat := t.region.Bytes()

	for cluster := FirstDataCluster; cluster <= t.maxCluster && len(picked) < count; cluster++ {
		if getEntry(fat, cluster) == FreeCluster {
			picked = append(picked, cluster)
		}
	}

	for i := 0; i < len(reusable) && len(picked) < count; i++ {
		picked = append(picked, reusable[i])
	}

	if len(picked) < count {
		return nil, errors.ErrNoSpaceOnDevice.WithMessage(
			fmt.Sprintf(
				"need %d clusters but only %d are available",
				count,
				len(picked),
			),
		)
	}
	return picked, nil
}

package fat12

import (
	"fmt"
	"math"

	"github.com/dargueta/fatkit/errors"
	c "github.com/dargueta/fatkit/file_systems/common"
	"github.com/dargueta/fatkit/file_systems/common/blockdevice"
)

// ReadFile copies the contents of the file `name` into `buffer` and returns
// the number of bytes copied. If the buffer is smaller than the file, only the
// beginning of the file is read.
//
// If an error occurs, the contents of `buffer` are undefined.
//
// Errors:
//
//   - [errors.ENOENT]: the file doesn't exist.
//   - [errors.EISDIR]: `name` is a directory.
//   - [errors.EUCLEAN]: the file's cluster chain is corrupted or shorter than
//     the file.
//   - [errors.EIO]: a sector couldn't be read.
func (v *Volume) ReadFile(name string, buffer []byte) (int, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	_, dirent, err := v.lookup(name, false)
	if err != nil {
		return 0, err
	}
	return v.readChain(&dirent, buffer)
}

// ReadFileBytes returns the entire contents of the file `name`. Errors are the
// same as for [Volume.ReadFile].
func (v *Volume) ReadFileBytes(name string) ([]byte, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	_, dirent, err := v.lookup(name, false)
	if err != nil {
		return nil, err
	}

	// The size in the entry isn't trusted until the chain has been checked to
	// be long enough to hold it.
	chain, err := v.fat.Chain(dirent.FirstCluster)
	if err != nil {
		return nil, err
	}
	capacity := uint64(len(chain)) * uint64(v.bootSector.BytesPerCluster)
	if uint64(dirent.FileSize) > capacity {
		return nil, errors.ErrFileSystemCorrupted.WithMessage(
			fmt.Sprintf(
				"%q claims to be %d bytes but its %d clusters only hold %d",
				dirent.Name(),
				dirent.FileSize,
				len(chain),
				capacity,
			),
		)
	}

	buffer := make([]byte, dirent.FileSize)
	_, err = v.readChain(&dirent, buffer)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}

// readChain follows the cluster chain of `dirent`, copying cluster contents
// into `buffer` until the buffer is full or the end of the file is reached.
func (v *Volume) readChain(dirent *Dirent, buffer []byte) (int, error) {
	toCopy := int(dirent.FileSize)
	if len(buffer) < toCopy {
		toCopy = len(buffer)
	}

	walker := v.fat.walkChain(dirent.FirstCluster)
	copied := 0

	for copied < toCopy {
		cluster, ok, err := walker.Next()
		if err != nil {
			return copied, err
		}
		if !ok {
			return copied, errors.ErrFileSystemCorrupted.WithMessage(
				fmt.Sprintf(
					"cluster chain of %q ends after %d bytes but file is %d bytes",
					dirent.Name(),
					copied,
					dirent.FileSize,
				),
			)
		}

		err = blockdevice.ReadSectors(
			v.device, v.bootSector.ClusterToSector(cluster), v.scratch)
		if err != nil {
			return copied, errors.CastToDriverError(err)
		}
		copied += copy(buffer[copied:toCopy], v.scratch)
	}
	return copied, nil
}

// WriteFile replaces the contents of the file `name` with `data`, creating the
// file if it doesn't exist.
//
// Space is checked before anything is modified: the free clusters plus those
// already owned by the file must be enough to hold `data`. New data is written
// to clusters not owned by the file whenever possible, and all data clusters
// are written before the FAT and root directory. If any step fails, the
// in-memory FAT and root directory are reverted to how they were before the
// call.
//
// Errors:
//
//   - [errors.EISDIR]: `name` is a directory.
//   - [errors.ENOSPC]: there aren't enough free clusters for `data`, or the
//     file doesn't exist and the root directory is full.
//   - [errors.EFBIG]: `data` is larger than the maximum file size, 4 GiB - 1.
//   - [errors.EIO]: a sector couldn't be written.
func (v *Volume) WriteFile(name string, data []byte) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	if !v.isMounted {
		return errors.ErrNotMounted
	}
	if uint64(len(data)) > math.MaxUint32 {
		return errors.ErrFileTooLarge.WithMessage(
			fmt.Sprintf("%d bytes exceeds the maximum file size", len(data)))
	}

	rawName, err := NormalizeName(name)
	if err != nil {
		return err
	}

	index, dirent, err := v.findEntry(rawName)
	if err != nil {
		index, err = v.findFreeEntry()
		if err != nil {
			return err
		}
		dirent = Dirent{ShortName: rawName, CreatedAt: v.now()}
	} else if dirent.IsDir() {
		return errors.ErrIsADirectory.WithMessage(dirent.Name())
	}

	// A corrupted chain can't be reused, but it's still freed as far as
	// possible below.
	oldChain, err := v.fat.Chain(dirent.FirstCluster)
	if err != nil {
		oldChain = nil
	}

	bytesPerCluster := int(v.bootSector.BytesPerCluster)
	clustersNeeded := (len(data) + bytesPerCluster - 1) / bytesPerCluster
	newChain, err := v.fat.PickClusters(clustersNeeded, oldChain)
	if err != nil {
		return err
	}

	for i, cluster := range newChain {
		chunk := data[i*bytesPerCluster:]
		n := copy(v.scratch, chunk)
		for j := n; j < len(v.scratch); j++ {
			v.scratch[j] = 0
		}

		err = blockdevice.WriteSectors(
			v.device, v.bootSector.ClusterToSector(cluster), v.scratch)
		if err != nil {
			return errors.CastToDriverError(err)
		}
	}

	fatSnapshot := v.fat.Snapshot()
	rootSnapshot := v.rootDir.Snapshot()

	err = v.replaceChain(dirent.FirstCluster, newChain)
	if err != nil {
		v.rollback(fatSnapshot, rootSnapshot)
		return err
	}

	now := v.now()
	dirent.FirstCluster = FreeCluster
	if len(newChain) > 0 {
		dirent.FirstCluster = newChain[0]
	}
	dirent.FileSize = uint32(len(data))
	dirent.AttributeFlags |= AttrArchived
	dirent.LastModified = now
	dirent.LastAccessed = now

	err = v.putDirent(index, &dirent)
	if err != nil {
		v.rollback(fatSnapshot, rootSnapshot)
		return err
	}
	return v.commit(fatSnapshot, rootSnapshot)
}

// replaceChain frees the chain starting at `oldFirst` and links `newChain` in
// its place. Clusters may appear in both.
func (v *Volume) replaceChain(oldFirst c.ClusterID, newChain []c.ClusterID) error {
	_, err := v.fat.FreeChain(oldFirst)
	if err != nil {
		return err
	}
	return v.fat.LinkChain(newChain)
}

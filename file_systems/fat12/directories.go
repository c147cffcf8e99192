package fat12

import (
	"fmt"
	"os"

	"github.com/dargueta/fatkit/errors"
)

// rootEntryCapacity gives the number of slots in the root directory.
func (v *Volume) rootEntryCapacity() int {
	return int(v.bootSector.RootEntryCount)
}

func (v *Volume) direntAt(index int) Dirent {
	offset := index * DirentSize
	return DecodeDirent(v.rootDir.Bytes()[offset : offset+DirentSize])
}

// putDirent overwrites the slot at `index` in the in-memory root directory.
func (v *Volume) putDirent(index int, dirent *Dirent) error {
	offset := index * DirentSize
	dirent.Encode(v.rootDir.Bytes()[offset : offset+DirentSize])
	return v.rootDir.MarkDirty(offset, DirentSize)
}

// findEntry returns the index and contents of the first live entry named
// `rawName`. Scanning stops at the first never-used slot.
func (v *Volume) findEntry(rawName [11]byte) (int, Dirent, error) {
	for i := 0; i < v.rootEntryCapacity(); i++ {
		dirent := v.direntAt(i)
		if dirent.IsEndOfDirectory() {
			break
		}
		if dirent.isLive() && dirent.ShortName == rawName {
			return i, dirent, nil
		}
	}
	return -1, Dirent{}, errors.ErrNotFound.WithMessage(
		fmt.Sprintf("%q not found in root directory", FormatName(rawName)))
}

// findFreeEntry returns the index of the first slot that is either deleted or
// has never been used.
func (v *Volume) findFreeEntry() (int, error) {
	for i := 0; i < v.rootEntryCapacity(); i++ {
		dirent := v.direntAt(i)
		if dirent.IsEndOfDirectory() || dirent.IsDeleted() {
			return i, nil
		}
	}
	return -1, errors.ErrNoSpaceOnDevice.WithMessage(
		fmt.Sprintf("root directory is full (%d entries)", v.rootEntryCapacity()))
}

// lookup finds the entry for `name` and checks its type. Callers must hold the
// lock.
func (v *Volume) lookup(name string, wantDirectory bool) (int, Dirent, error) {
	if !v.isMounted {
		return -1, Dirent{}, errors.ErrNotMounted
	}

	rawName, err := NormalizeName(name)
	if err != nil {
		return -1, Dirent{}, err
	}

	index, dirent, err := v.findEntry(rawName)
	if err != nil {
		return -1, Dirent{}, err
	}

	if wantDirectory && !dirent.IsDir() {
		return -1, Dirent{}, errors.ErrNotADirectory.WithMessage(dirent.Name())
	} else if !wantDirectory && dirent.IsDir() {
		return -1, Dirent{}, errors.ErrIsADirectory.WithMessage(dirent.Name())
	}
	return index, dirent, nil
}

// Lookup returns the directory entry for the file or directory named `name`.
// Case doesn't matter.
func (v *Volume) Lookup(name string) (Dirent, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if !v.isMounted {
		return Dirent{}, errors.ErrNotMounted
	}

	rawName, err := NormalizeName(name)
	if err != nil {
		return Dirent{}, err
	}
	_, dirent, err := v.findEntry(rawName)
	return dirent, err
}

// StatFile implements [fatkit.ReadingDriver]. It's [Volume.Lookup] returning an
// [os.FileInfo].
func (v *Volume) StatFile(name string) (os.FileInfo, error) {
	dirent, err := v.Lookup(name)
	if err != nil {
		return nil, err
	}
	return dirent, nil
}

// RootDirectory returns every slot of the root directory in order, including
// deleted and never-used ones. The length of the returned slice is the
// capacity of the directory.
func (v *Volume) RootDirectory() ([]Dirent, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if !v.isMounted {
		return nil, errors.ErrNotMounted
	}

	entries := make([]Dirent, v.rootEntryCapacity())
	for i := range entries {
		entries[i] = v.direntAt(i)
	}
	return entries, nil
}

// ListRootDirectory returns the files and directories in the root directory,
// in on-disk order. Deleted entries and the volume label are omitted.
func (v *Volume) ListRootDirectory() ([]Dirent, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if !v.isMounted {
		return nil, errors.ErrNotMounted
	}

	entries := []Dirent{}
	for i := 0; i < v.rootEntryCapacity(); i++ {
		dirent := v.direntAt(i)
		if dirent.IsEndOfDirectory() {
			break
		}
		if dirent.isLive() {
			entries = append(entries, dirent)
		}
	}
	return entries, nil
}

// ReadDir implements [fatkit.ReadingDriver].
func (v *Volume) ReadDir() ([]os.FileInfo, error) {
	entries, err := v.ListRootDirectory()
	if err != nil {
		return nil, err
	}

	infos := make([]os.FileInfo, len(entries))
	for i, entry := range entries {
		infos[i] = entry
	}
	return infos, nil
}

////////////////////////////////////////////////////////////////////////////////
// Creating and deleting

// CreateFile creates an empty file in the root directory.
//
// Errors:
//
//   - [errors.EEXIST]: a file or directory with the same name already exists.
//   - [errors.ENOSPC]: the root directory is full.
func (v *Volume) CreateFile(name string) error {
	return v.createEntry(name, 0)
}

// CreateDirectory creates an empty directory in the root directory. Only the
// entry is created; no clusters are allocated for it.
//
// Errors are the same as for [Volume.CreateFile].
func (v *Volume) CreateDirectory(name string) error {
	return v.createEntry(name, AttrDirectory)
}

func (v *Volume) createEntry(name string, attributes uint8) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	if !v.isMounted {
		return errors.ErrNotMounted
	}

	rawName, err := NormalizeName(name)
	if err != nil {
		return err
	}

	_, _, err = v.findEntry(rawName)
	if err == nil {
		return errors.ErrExists.WithMessage(FormatName(rawName))
	}

	index, err := v.findFreeEntry()
	if err != nil {
		return err
	}

	rootSnapshot := v.rootDir.Snapshot()
	now := v.now()
	dirent := Dirent{
		ShortName:      rawName,
		AttributeFlags: attributes,
		CreatedAt:      now,
		LastAccessed:   now,
		LastModified:   now,
		FirstCluster:   FreeCluster,
	}

	err = v.putDirent(index, &dirent)
	if err == nil {
		err = v.rootDir.Flush()
	}
	if err != nil {
		v.rootDir.Restore(rootSnapshot)
		return err
	}
	return nil
}

// DeleteFile removes a file from the root directory and frees its clusters.
//
// Errors:
//
//   - [errors.ENOENT]: the file doesn't exist.
//   - [errors.EISDIR]: `name` is a directory.
func (v *Volume) DeleteFile(name string) error {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.deleteEntry(name, false)
}

// DeleteDirectory removes a directory from the root directory and frees its
// clusters. The directory's contents aren't checked or removed.
//
// Errors:
//
//   - [errors.ENOENT]: the directory doesn't exist.
//   - [errors.ENOTDIR]: `name` is a file.
func (v *Volume) DeleteDirectory(name string) error {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.deleteEntry(name, true)
}

func (v *Volume) deleteEntry(name string, isDirectory bool) error {
	index, dirent, err := v.lookup(name, isDirectory)
	if err != nil {
		return err
	}

	fatSnapshot := v.fat.Snapshot()
	rootSnapshot := v.rootDir.Snapshot()

	// Only the marker byte changes so the rest of the entry stays recoverable.
	offset := index * DirentSize
	v.rootDir.Bytes()[offset] = deletedMarker
	err = v.rootDir.MarkDirty(offset, 1)
	if err != nil {
		v.rollback(fatSnapshot, rootSnapshot)
		return err
	}

	_, err = v.fat.FreeChain(dirent.FirstCluster)
	if err != nil {
		v.rollback(fatSnapshot, rootSnapshot)
		return err
	}

	return v.commit(fatSnapshot, rootSnapshot)
}

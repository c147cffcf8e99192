// Package fatkit defines the interfaces shared by the volume drivers in this
// module.
package fatkit

import (
	"os"
)

// VolumeStat describes the geometry and usage of a mounted volume.
type VolumeStat struct {
	Label             string
	BytesPerSector    uint
	SectorsPerCluster uint
	TotalSectors      uint
	TotalClusters     uint
	FreeClusters      uint
	// RootEntryCapacity is the maximum number of entries the root directory
	// can hold, including deleted ones and the volume label.
	RootEntryCapacity uint
	FreeRootEntries   uint
}

// BytesPerCluster gives the size of a single cluster, in bytes.
func (s VolumeStat) BytesPerCluster() uint {
	return s.BytesPerSector * s.SectorsPerCluster
}

// TotalBytes gives the size of the data region of the volume, in bytes.
func (s VolumeStat) TotalBytes() uint64 {
	return uint64(s.TotalClusters) * uint64(s.BytesPerCluster())
}

// FreeBytes gives the number of bytes available for file data.
func (s VolumeStat) FreeBytes() uint64 {
	return uint64(s.FreeClusters) * uint64(s.BytesPerCluster())
}

// ReadingDriver is the interface for drivers supporting read operations.
//
// All operations other than Mount and IsMounted must fail with an error
// matching [errors.ErrNotMounted] if the volume isn't mounted.
type ReadingDriver interface {
	// Mount reads the volume's metadata from the device. Calling it on a
	// mounted volume does nothing.
	Mount() error
	IsMounted() bool
	// ReadFile copies the contents of a file into `buffer`, truncating it if
	// the buffer is too small, and returns the number of bytes copied.
	ReadFile(name string, buffer []byte) (int, error)
	// ReadFileBytes returns the entire contents of a file.
	ReadFileBytes(name string) ([]byte, error)
	// ReadDir lists the files and directories in the root directory.
	ReadDir() ([]os.FileInfo, error)
	// StatFile returns information about a single file or directory.
	StatFile(name string) (os.FileInfo, error)
	// Stat returns information about the volume as a whole.
	Stat() (VolumeStat, error)
}

// WritingDriver is the interface for drivers supporting write operations.
type WritingDriver interface {
	// WriteFile replaces the contents of a file with `data`, creating the file
	// if it doesn't exist.
	WriteFile(name string, data []byte) error
	CreateFile(name string) error
	CreateDirectory(name string) error
	DeleteFile(name string) error
	// DeleteDirectory removes a directory without checking if it's empty.
	DeleteDirectory(name string) error
}

// Driver is the interface for drivers implementing all driver capabilities.
type Driver interface {
	ReadingDriver
	WritingDriver
}

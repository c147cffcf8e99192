// Package disks provides the geometries of standard floppy disks that can be
// formatted as FAT12 volumes.
package disks

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dargueta/fatkit/errors"
	"github.com/gocarina/gocsv"
)

////////////////////////////////////////////////////////////////////////////////
// Geometry

// MediaDescriptor is the media descriptor byte stored in the boot sector and
// the first FAT entry. It's written in hexadecimal in the geometry table.
type MediaDescriptor uint8

// UnmarshalCSV implements [gocsv.TypeUnmarshaller].
func (m *MediaDescriptor) UnmarshalCSV(value string) error {
	parsed, err := strconv.ParseUint(strings.TrimPrefix(value, "0x"), 16, 8)
	if err != nil {
		return fmt.Errorf("invalid media descriptor %q: %w", value, err)
	}
	*m = MediaDescriptor(parsed)
	return nil
}

// MarshalCSV implements [gocsv.TypeMarshaller].
func (m MediaDescriptor) MarshalCSV() (string, error) {
	return fmt.Sprintf("%02X", uint8(m)), nil
}

type DiskGeometry struct {
	Slug               string `csv:"slug"`
	Name               string `csv:"name"`
	FormFactor         string `csv:"form_factor"`
	FirstYearAvailable uint   `csv:"first_year_available"`
	TotalSectors       uint   `csv:"total_sectors"`
	// SectorsPerCluster is the cluster size DOS used when formatting this disk.
	SectorsPerCluster uint            `csv:"sectors_per_cluster"`
	RootEntryCount    uint            `csv:"root_entry_count"`
	Media             MediaDescriptor `csv:"media"`
	SectorsPerTrack   uint            `csv:"sectors_per_track"`
	// Heads gives the number of heads in the device, i.e. 1 for single-sided
	// disks and 2 for double-sided ones.
	Heads uint   `csv:"heads"`
	Notes string `csv:"notes"`
}

// BytesPerSector is the size of a sector on every disk in the table.
const BytesPerSector = 512

// TotalSizeBytes gives the size of the storage device. This is the minimum size
// of the image file.
func (g *DiskGeometry) TotalSizeBytes() int64 {
	return int64(g.TotalSectors) * BytesPerSector
}

// Tracks gives the number of tracks per head.
func (g *DiskGeometry) Tracks() uint {
	return g.TotalSectors / (g.SectorsPerTrack * g.Heads)
}

////////////////////////////////////////////////////////////////////////////////

// https://en.wikipedia.org/wiki/List_of_floppy_disk_formats
//
//go:embed disk-geometries.csv
var diskGeometriesRawCSV string
var diskGeometries map[string]DiskGeometry

// GetPredefinedDiskGeometry returns the geometry with the given slug, e.g.
// "fd1440" for a 1.44 MiB 3.5in floppy.
func GetPredefinedDiskGeometry(slug string) (DiskGeometry, error) {
	geometry, ok := diskGeometries[slug]
	if ok {
		return geometry, nil
	}

	return DiskGeometry{}, errors.ErrNotFound.WithMessage(
		fmt.Sprintf("no predefined disk geometry exists with slug %q", slug))
}

// ListPredefinedDiskGeometries returns every predefined geometry, sorted by
// size and then by slug.
func ListPredefinedDiskGeometries() []DiskGeometry {
	geometries := make([]DiskGeometry, 0, len(diskGeometries))
	for _, geometry := range diskGeometries {
		geometries = append(geometries, geometry)
	}

	sort.Slice(geometries, func(i, j int) bool {
		if geometries[i].TotalSectors != geometries[j].TotalSectors {
			return geometries[i].TotalSectors < geometries[j].TotalSectors
		}
		return geometries[i].Slug < geometries[j].Slug
	})
	return geometries
}

// parseGeometries decodes a pipe-delimited geometry table.
func parseGeometries(rawCSV string) (map[string]DiskGeometry, error) {
	csvReader := csv.NewReader(strings.NewReader(rawCSV))
	csvReader.Comma = '|'

	var rows []DiskGeometry
	err := gocsv.UnmarshalCSV(csvReader, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to decode disk geometries: %w", err)
	}

	geometries := make(map[string]DiskGeometry, len(rows))
	for i, row := range rows {
		_, exists := geometries[row.Slug]
		if exists {
			return nil, fmt.Errorf(
				"duplicate definition for disk %q found on row %d", row.Slug, i+1)
		}
		if row.SectorsPerTrack == 0 || row.Heads == 0 {
			return nil, fmt.Errorf(
				"disk %q on row %d has no sectors per track or heads", row.Slug, i+1)
		}
		geometries[row.Slug] = row
	}
	return geometries, nil
}

func init() {
	var err error
	diskGeometries, err = parseGeometries(diskGeometriesRawCSV)
	if err != nil {
		panic(err)
	}
}

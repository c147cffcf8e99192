package fat12

import (
	"encoding/binary"
	"os"
	"time"

	c "github.com/dargueta/fatkit/file_systems/common"
)

const (
	// AttrReadOnly is an attribute flag marking a directory entry as read-only.
	AttrReadOnly = 0x01

	// AttrHidden is an attribute flag marking a directory entry as "hidden",
	// meaning it wouldn't show up in normal directory listings.
	AttrHidden = 0x02

	// AttrSystem is an attribute flag marking a directory entry as essential to
	// the operating system.
	AttrSystem = 0x04

	// AttrVolumeLabel is an attribute flag that marks a directory entry as
	// holding the volume label instead of a file. It must be in the root
	// directory, and there must be only one.
	AttrVolumeLabel = 0x08

	// AttrDirectory is an attribute flag marking a directory entry as being a
	// directory.
	AttrDirectory = 0x10

	// AttrArchived is an attribute flag used by some systems to mark a
	// directory entry as modified since the last backup.
	AttrArchived = 0x20

	// AttrLongFileName is the combination of flags used by VFAT long file name
	// entries. They're never created by this driver and are skipped like volume
	// labels.
	AttrLongFileName = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeLabel
)

// DirentSize is the size of a single raw directory entry, in bytes.
const DirentSize = 32

// Byte offsets of fields in a raw directory entry.
const (
	direntNameOffset          = 0
	direntAttributesOffset    = 11
	direntNTReservedOffset    = 12
	direntCreatedTenthsOffset = 13
	direntCreatedTimeOffset   = 14
	direntCreatedDateOffset   = 16
	direntAccessedDateOffset  = 18
	direntClusterHighOffset   = 20
	direntModifiedTimeOffset  = 22
	direntModifiedDateOffset  = 24
	direntClusterLowOffset    = 26
	direntSizeOffset          = 28
)

// Dirent is a directory entry of the root directory, with timestamps converted
// to [time.Time]. It implements [os.FileInfo].
type Dirent struct {
	// ShortName is the on-disk 8.3 name, space-padded. The first byte doubles
	// as the entry's lifecycle marker.
	ShortName      [11]byte
	AttributeFlags uint8
	NTReserved     uint8
	CreatedAt      time.Time
	LastAccessed   time.Time
	LastModified   time.Time
	FirstCluster   c.ClusterID
	FileSize       uint32
}

// DecodeDirent deserializes a directory entry from the first [DirentSize]
// bytes of `data`.
func DecodeDirent(data []byte) Dirent {
	dirent := Dirent{
		AttributeFlags: data[direntAttributesOffset],
		NTReserved:     data[direntNTReservedOffset],
		CreatedAt: TimestampFromParts(
			binary.LittleEndian.Uint16(data[direntCreatedDateOffset:]),
			binary.LittleEndian.Uint16(data[direntCreatedTimeOffset:]),
			data[direntCreatedTenthsOffset],
		),
		LastAccessed: DateFromInt(
			binary.LittleEndian.Uint16(data[direntAccessedDateOffset:])),
		LastModified: TimestampFromParts(
			binary.LittleEndian.Uint16(data[direntModifiedDateOffset:]),
			binary.LittleEndian.Uint16(data[direntModifiedTimeOffset:]),
			0,
		),
		FirstCluster: c.ClusterID(
			binary.LittleEndian.Uint16(data[direntClusterLowOffset:])),
		FileSize: binary.LittleEndian.Uint32(data[direntSizeOffset:]),
	}
	copy(dirent.ShortName[:], data[direntNameOffset:direntNameOffset+11])
	return dirent
}

// Encode serializes the directory entry into the first [DirentSize] bytes of
// `data`.
func (d *Dirent) Encode(data []byte) {
	copy(data[direntNameOffset:], d.ShortName[:])
	data[direntAttributesOffset] = d.AttributeFlags
	data[direntNTReservedOffset] = d.NTReserved

	createdDate, createdTime, createdTenths := TimestampToParts(d.CreatedAt)
	data[direntCreatedTenthsOffset] = createdTenths
	binary.LittleEndian.PutUint16(data[direntCreatedTimeOffset:], createdTime)
	binary.LittleEndian.PutUint16(data[direntCreatedDateOffset:], createdDate)

	accessedDate, _, _ := TimestampToParts(d.LastAccessed)
	binary.LittleEndian.PutUint16(data[direntAccessedDateOffset:], accessedDate)

	// Always zero on FAT12.
	binary.LittleEndian.PutUint16(data[direntClusterHighOffset:], 0)

	modifiedDate, modifiedTime, _ := TimestampToParts(d.LastModified)
	binary.LittleEndian.PutUint16(data[direntModifiedTimeOffset:], modifiedTime)
	binary.LittleEndian.PutUint16(data[direntModifiedDateOffset:], modifiedDate)

	binary.LittleEndian.PutUint16(data[direntClusterLowOffset:], uint16(d.FirstCluster))
	binary.LittleEndian.PutUint32(data[direntSizeOffset:], d.FileSize)
}

// IsEndOfDirectory returns true if this entry has never been used. No entries
// after it are considered part of the directory.
func (d *Dirent) IsEndOfDirectory() bool {
	return d.ShortName[0] == endOfDirectoryMarker
}

// IsDeleted returns true if this entry's slot can be reused.
func (d *Dirent) IsDeleted() bool {
	return d.ShortName[0] == deletedMarker
}

// IsVolumeLabel returns true if this entry holds the volume label or is part
// of a long file name rather than describing a file.
func (d *Dirent) IsVolumeLabel() bool {
	return d.AttributeFlags&AttrVolumeLabel != 0
}

// isLive returns true if the entry describes an existing file or directory.
func (d *Dirent) isLive() bool {
	return !d.IsEndOfDirectory() && !d.IsDeleted() && !d.IsVolumeLabel()
}

// Dirent implementation of os.FileInfo ----------------------------------------

// Name returns the displayed name of the directory entry, e.g. "README.TXT".
func (d Dirent) Name() string { return FormatName(d.ShortName) }

// Size is the size of the file in bytes. It's always 0 for directories.
func (d Dirent) Size() int64 { return int64(d.FileSize) }

// Mode returns the mode flags of this directory entry.
func (d Dirent) Mode() os.FileMode { return AttrFlagsToFileMode(d.AttributeFlags) }

func (d Dirent) ModTime() time.Time { return d.LastModified }

func (d Dirent) IsDir() bool { return d.AttributeFlags&AttrDirectory != 0 }

func (d Dirent) Sys() interface{} { return d }

// -----------------------------------------------------------------------------

// AttrFlagsToFileMode converts FAT attribute flags into [os.FileMode] flags.
func AttrFlagsToFileMode(flags uint8) os.FileMode {
	var mode os.FileMode

	// FAT has no way to mark files as executable or not, so the executable bit
	// is always set.
	if (flags & AttrReadOnly) != 0 {
		mode = 0o555
	} else {
		mode = 0o777
	}

	if (flags & AttrDirectory) != 0 {
		mode |= os.ModeDir
	}
	return mode
}

////////////////////////////////////////////////////////////////////////////////
// Timestamps

// fatEpoch is the earliest timestamp representable in a directory entry,
// 1980-01-01 00:00:00. All timestamps are treated as UTC.
var fatEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// fatEndOfTime is the first timestamp too late to represent in a directory
// entry, 2108-01-01 00:00:00.
var fatEndOfTime = time.Date(2108, time.January, 1, 0, 0, 0, 0, time.UTC)

// DateFromInt converts the FAT on-disk representation of a date into a
// [time.Time]. A value of 0 means "not set" and gives the zero time.
func DateFromInt(value uint16) time.Time {
	if value == 0 {
		return time.Time{}
	}

	day := int(value & 0x001f)
	month := time.Month((value >> 5) & 0x000f)
	year := int(1980 + (value >> 9))
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TimestampFromParts converts a FAT timestamp into a [time.Time]. `tenths` is
// the creation timestamp's count of 10ms units, 0-199; pass 0 for timestamps
// that don't have it.
func TimestampFromParts(datePart uint16, timePart uint16, tenths uint8) time.Time {
	date := DateFromInt(datePart)
	if date.IsZero() {
		return date
	}

	hours := int(timePart >> 11)
	minutes := int((timePart >> 5) & 0x003f)
	seconds := int(timePart&0x001f)*2 + int(tenths)/100
	nanoseconds := (int(tenths) % 100) * int(10*time.Millisecond)

	return time.Date(
		date.Year(), date.Month(), date.Day(), hours, minutes, seconds, nanoseconds, time.UTC)
}

// TimestampToParts is the inverse of [TimestampFromParts]. Timestamps outside
// the representable range, including the zero time, are encoded as 0.
func TimestampToParts(t time.Time) (datePart uint16, timePart uint16, tenths uint8) {
	t = t.UTC()
	if t.Before(fatEpoch) || !t.Before(fatEndOfTime) {
		return 0, 0, 0
	}

	datePart = uint16(t.Year()-1980)<<9 | uint16(t.Month())<<5 | uint16(t.Day())
	timePart = uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)
	tenths = uint8((t.Second()%2)*100 + t.Nanosecond()/int(10*time.Millisecond))
	return datePart, timePart, tenths
}

// Package compression packs floppy disk images for storage.
//
// A freshly formatted FAT12 floppy is almost entirely null bytes: a 1.44 MiB
// disk has one boot sector, a few sectors of FAT, and 2,847 sectors of zeroed
// data region. Images are compressed by run-length encoding the raw bytes
// first, then gzipping the result. The RLE pass turns the empty data region
// into a few thousand bytes of identical groups, which gzip then reduces to
// almost nothing.
//
// The run-length encoding is the one used by the Microsoft BMP file format,
// also known as RLE8. If a byte B occurs N times where N >= 2, B is written
// twice, followed by a third (unsigned) byte indicating how many additional
// times B occurred. For example:
//
//	WXXXXXXXXXXXXXXXYZZ
//	W XX 13 Y ZZ 0
//
// One group holds a run of up to 257 bytes. Longer runs are split, so a run of
// 300 "X" is stored as `XX 255 XX 41`. A byte occurring exactly twice costs
// three bytes, since the pair must always be followed by a count.
package compression

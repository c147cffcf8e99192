package fat12

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dargueta/fatkit/errors"
)

const (
	// deletedMarker in the first byte of a directory entry's name marks the
	// entry as deleted.
	deletedMarker = 0xE5
	// escapedDeletedMarker is stored in place of a leading 0xE5 byte in a
	// live entry's name.
	escapedDeletedMarker = 0x05
	// endOfDirectoryMarker in the first byte of a directory entry's name marks
	// the entry and all entries after it as never used.
	endOfDirectoryMarker = 0x00
)

// invalidNameCharacters can't appear anywhere in an 8.3 name.
const invalidNameCharacters = "\"*+,/:;<=>?[\\]|"

// NormalizeName converts a file name to its on-disk 8.3 form: the stem and
// extension are split at the first ".", truncated to eight and three
// characters respectively, space-padded, and uppercased. A single leading "/"
// is ignored, since all files live in the root directory.
//
// Errors:
//
//   - [errors.EINVAL]: the stem is empty, or the name contains characters not
//     allowed in 8.3 names.
func NormalizeName(name string) ([11]byte, error) {
	var rawName [11]byte

	trimmed := strings.TrimPrefix(name, "/")
	stem, extension, _ := strings.Cut(trimmed, ".")
	if stem == "" {
		return rawName, errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("file name %q has an empty stem", name))
	}

	for i := 0; i < len(trimmed); i++ {
		char := trimmed[i]
		if char < 0x20 || strings.IndexByte(invalidNameCharacters, char) >= 0 {
			return rawName, errors.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("file name %q has invalid character %#02x", name, char))
		}
	}

	if len(stem) > 8 {
		stem = stem[:8]
	}
	if len(extension) > 3 {
		extension = extension[:3]
	}

	copy(rawName[:], "           ")
	copy(rawName[:8], upperASCII(stem))
	copy(rawName[8:], upperASCII(extension))
	if rawName[0] == deletedMarker {
		rawName[0] = escapedDeletedMarker
	}
	return rawName, nil
}

// upperASCII uppercases ASCII letters only. Other bytes are left as-is so the
// length never changes.
func upperASCII(s string) string {
	result := []byte(s)
	for i, char := range result {
		if char >= 'a' && char <= 'z' {
			result[i] = char - 'a' + 'A'
		}
	}
	return string(result)
}

// FormatName converts an on-disk 8.3 name to its displayed form, e.g.
// "README  TXT" becomes "README.TXT".
func FormatName(rawName [11]byte) string {
	stem := bytes.TrimRight(rawName[:8], " ")
	extension := bytes.TrimRight(rawName[8:], " ")

	if len(stem) > 0 && stem[0] == escapedDeletedMarker {
		stem = append([]byte{deletedMarker}, stem[1:]...)
	}

	if len(extension) > 0 {
		return string(stem) + "." + string(extension)
	}
	return string(stem)
}

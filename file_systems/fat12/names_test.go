package fat12_test

import (
	"testing"

	"github.com/dargueta/fatkit/errors"
	"github.com/dargueta/fatkit/file_systems/fat12"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawName(s string) [11]byte {
	var name [11]byte
	copy(name[:], s)
	return name
}

func TestNormalizeName(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"readme.txt", "README  TXT"},
		{"README.TXT", "README  TXT"},
		{"ReadMe.Txt", "README  TXT"},
		{"/readme.txt", "README  TXT"},
		{"noext", "NOEXT      "},
		{"trailing.", "TRAILING   "},
		{"averylongname.text", "AVERYLONTEX"},
		{"a.b", "A       B  "},
		{"my-file.c~", "MY-FILE C~ "},
	}

	for _, test := range testCases {
		t.Run(test.input, func(t *testing.T) {
			normalized, err := fat12.NormalizeName(test.input)
			require.NoError(t, err)
			assert.Equal(t, test.expected, string(normalized[:]))
		})
	}
}

func TestNormalizeName__Invalid(t *testing.T) {
	testCases := []string{
		"",
		"/",
		".hidden",
		"bad*name",
		"what?.txt",
		"a:b",
		"tab\tname",
		"sub/file.txt",
	}

	for _, input := range testCases {
		t.Run(input, func(t *testing.T) {
			_, err := fat12.NormalizeName(input)
			assert.ErrorIs(t, err, errors.ErrInvalidArgument)
		})
	}
}

func TestNormalizeName__EscapesDeletedMarker(t *testing.T) {
	normalized, err := fat12.NormalizeName("\xE5abc.txt")
	require.NoError(t, err)
	assert.EqualValues(t, 0x05, normalized[0])
	assert.Equal(t, "\xE5ABC.TXT", fat12.FormatName(normalized))
}

func TestFormatName(t *testing.T) {
	assert.Equal(t, "README.TXT", fat12.FormatName(rawName("README  TXT")))
	assert.Equal(t, "NOEXT", fat12.FormatName(rawName("NOEXT      ")))
	assert.Equal(t, "AVERYLON.TEX", fat12.FormatName(rawName("AVERYLONTEX")))
}

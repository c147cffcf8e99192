package errors_test

import (
	goerrors "errors"
	"testing"

	"github.com/dargueta/fatkit/errors"
	"github.com/stretchr/testify/assert"
)

func TestDriverErrorWithMessage(t *testing.T) {
	newErr := errors.ErrNoDevice.WithMessage("asdfqwerty")
	assert.Equal(
		t, "No such device: asdfqwerty", newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, errors.ErrNoDevice)
	assert.Equal(t, errors.ENODEV, newErr.Errno())
}

func TestDriverErrorWrap(t *testing.T) {
	originalErr := goerrors.New("original error")
	newErr := errors.ErrExists.Wrap(originalErr)
	expectedMessage := "File exists: original error"

	assert.EqualValues(t, expectedMessage, newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, originalErr, "original error not set as parent")
	assert.ErrorIs(t, newErr, errors.ErrExists, "driver error not set as parent")
}

func TestDriverErrorIs__MatchesOnErrnoOnly(t *testing.T) {
	err := errors.NewWithMessage(errors.ENOSPC, "root directory is full")
	assert.ErrorIs(t, err, errors.ErrNoSpaceOnDevice)
	assert.NotErrorIs(t, err, errors.ErrNotFound)
}

func TestNotMountedIsBadState(t *testing.T) {
	assert.ErrorIs(t, errors.ErrNotMounted, errors.ErrFileDescriptorBadState)
	assert.Equal(
		t,
		"File descriptor in bad state: volume is not mounted",
		errors.ErrNotMounted.Error())
}

func TestCastToDriverError(t *testing.T) {
	assert.Nil(t, errors.CastToDriverError(nil))

	plain := goerrors.New("disk fell off")
	cast := errors.CastToDriverError(plain)
	assert.Equal(t, errors.EIO, cast.Errno())
	assert.ErrorIs(t, cast, plain)

	original := errors.ErrIsADirectory.WithMessage("FOO")
	assert.Equal(t, original, errors.CastToDriverError(original))
}

func TestStrErrorUnknownCode(t *testing.T) {
	assert.Equal(t, "error 9999 not recognized.", errors.StrError(errors.Errno(9999)))
}

func TestSentinelMessages(t *testing.T) {
	assert.Equal(t, "No such file or directory", errors.ErrNotFound.Error())
	assert.Equal(t, "Structure needs cleaning", errors.ErrFileSystemCorrupted.Error())
	assert.Equal(
		t,
		"Wrong medium type: only 512-byte sectors",
		errors.ErrInvalidFileSystem.WithMessage("only 512-byte sectors").Error())

	for code := errors.EOK; code <= errors.EMEDIUMTYPE; code++ {
		assert.NotContains(t, errors.StrError(code), "not recognized", "errno %d", code)
	}
}

// This is a compatibility shim for POSIX-defined errno codes across platforms.
// The syscall package doesn't define all the values we need on all systems,
// particularly things like EUCLEAN and EMEDIUMTYPE.

package errors

import (
	"fmt"
)

type Errno int

const (
	EOK Errno = iota
	EPERM
	ENOENT
	EIO
	EBADF
	EBUSY
	EEXIST
	ENODEV
	ENOTDIR
	EISDIR
	EINVAL
	EFBIG
	ENOSPC
	EROFS
	ERANGE
	ENAMETOOLONG
	ENOSYS
	ENOTEMPTY
	ELOOP
	EBADFD
	ENOTSUP
	EALREADY
	EUCLEAN
	EMEDIUMTYPE
)

var ErrNotPermitted = New(EPERM)
var ErrNotFound = New(ENOENT)
var ErrIOFailed = New(EIO)
var ErrBusy = New(EBUSY)
var ErrExists = New(EEXIST)
var ErrNoDevice = New(ENODEV)
var ErrNotADirectory = New(ENOTDIR)
var ErrIsADirectory = New(EISDIR)
var ErrInvalidArgument = New(EINVAL)
var ErrFileTooLarge = New(EFBIG)
var ErrNoSpaceOnDevice = New(ENOSPC)
var ErrReadOnlyFileSystem = New(EROFS)
var ErrResultOutOfRange = New(ERANGE)
var ErrNameTooLong = New(ENAMETOOLONG)
var ErrNotImplemented = New(ENOSYS)
var ErrDirectoryNotEmpty = New(ENOTEMPTY)
var ErrLinkCycleDetected = New(ELOOP)
var ErrFileDescriptorBadState = New(EBADFD)
var ErrNotSupported = New(ENOTSUP)
var ErrAlreadyInProgress = New(EALREADY)
var ErrFileSystemCorrupted = New(EUCLEAN)
var ErrInvalidFileSystem = New(EMEDIUMTYPE)

// ErrNotMounted is returned by every volume operation attempted before the
// volume was successfully mounted.
var ErrNotMounted = NewWithMessage(EBADFD, "volume is not mounted")

var errorMessagesByCode = map[Errno]string{
	EOK:          "Success",
	EPERM:        "Operation not permitted",
	ENOENT:       "No such file or directory",
	EIO:          "Input/output error",
	EBADF:        "Bad file descriptor",
	EBUSY:        "Device or resource busy",
	EEXIST:       "File exists",
	ENODEV:       "No such device",
	ENOTDIR:      "Not a directory",
	EISDIR:       "Is a directory",
	EINVAL:       "Invalid argument",
	EFBIG:        "File too large",
	ENOSPC:       "No space left on device",
	EROFS:        "Read-only file system",
	ERANGE:       "Numerical result out of range",
	ENAMETOOLONG: "File name too long",
	ENOSYS:       "Function not implemented",
	ENOTEMPTY:    "Directory not empty",
	ELOOP:        "Too many levels of symbolic links",
	EBADFD:       "File descriptor in bad state",
	ENOTSUP:      "Operation not supported",
	EALREADY:     "Operation already in progress",
	EUCLEAN:      "Structure needs cleaning",
	EMEDIUMTYPE:  "Wrong medium type",
}

func StrError(code Errno) string {
	message, ok := errorMessagesByCode[code]
	if ok {
		return message
	}
	return fmt.Sprintf("error %d not recognized.", int(code))
}

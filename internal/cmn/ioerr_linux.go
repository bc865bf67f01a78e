package cmn

import (
	"errors"
	"io"
	"syscall"
)

// IsSevereIOError reports whether err signals a genuine storage-layer
// fault (disk failure, missing/readonly mountpoint, stale handle) rather
// than an ordinary short read or malformed payload. Adapted from the
// base repo's cmn.IsIOError (cmn/err_utils_linux.go), which the base
// repo uses to decide whether to run its mountpath health-check (FSHC);
// this module has no FSHC, but the region codec (internal/region) uses
// the same classification to log a severe I/O fault at a higher level
// than an ordinary "chunk skipped" warning.
func IsSevereIOError(err error) bool {
	if err == nil {
		return false
	}

	ioErrs := []error{
		io.ErrShortWrite,

		syscall.EIO,     // I/O error
		syscall.ENOTDIR, // mountpath is missing
		syscall.EBUSY,   // device or resource is busy
		syscall.ENXIO,   // no such device
		syscall.EBADF,   // bad file number
		syscall.ENODEV,  // no such device
		syscall.EUCLEAN, // (mkdir) structure needs cleaning = broken filesystem
		syscall.EROFS,   // readonly filesystem
		syscall.EDQUOT,  // quota exceeded
		syscall.ESTALE,  // stale file handle
		syscall.ENOSPC,  // no space left
	}
	for _, ioErr := range ioErrs {
		if errors.Is(err, ioErr) {
			return true
		}
	}
	return false
}

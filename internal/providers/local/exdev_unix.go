//go:build !windows

package local

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// isCrossDevice reports whether err wraps EXDEV, the errno Rename returns
// when source and destination live on different filesystems/devices.
// golang.org/x/sys/unix.EXDEV is used in place of syscall.EXDEV so this
// stays on the same errno source the rest of the corpus reaches for on
// non-Windows builds.
func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, unix.EXDEV)
	}
	return errors.Is(err, unix.EXDEV)
}

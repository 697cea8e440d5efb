//go:build windows

package local

import (
	"errors"
	"os"
	"syscall"
)

// isCrossDevice reports whether err wraps EXDEV. golang.org/x/sys/unix
// doesn't build on Windows, so this build falls back to the stdlib
// syscall.EXDEV errno.
func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return errors.Is(err, syscall.EXDEV)
}

//go:build linux

package olog

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// openLogFile opens path with create/append/read-write semantics and
// data-sync-on-write. O_NOATIME is attempted first and dropped on EPERM
// (it is refused for files the caller does not own).
func openLogFile(path string) (*os.File, error) {
	flags := unix.O_CREAT | unix.O_APPEND | unix.O_RDWR | unix.O_DSYNC
	fd, err := unix.Open(path, flags|unix.O_NOATIME, 0o666)
	if err == unix.EPERM {
		fd, err = unix.Open(path, flags, 0o666)
	}
	if err != nil {
		return nil, fmt.Errorf("olog: can't open file %s: %w", path, err)
	}
	return os.NewFile(uintptr(fd), path), nil
}

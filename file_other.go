//go:build !linux

package olog

import (
	"fmt"
	"os"
)

// openLogFile opens path with create/append/read-write semantics. O_SYNC is
// the closest portable stand-in for data-sync-on-write here.
func openLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR|os.O_SYNC, 0o666)
	if err != nil {
		return nil, fmt.Errorf("olog: can't open file %s: %w", path, err)
	}
	return f, nil
}

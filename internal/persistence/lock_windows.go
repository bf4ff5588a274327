//go:build windows

package persistence

import (
	"errors"
	"os"
)

// errAlreadyLocked mirrors lock_unix.go's sentinel; Windows locking is not
// yet implemented, matching the teacher's own stub for
// services/trace/lock's Windows side.
var errAlreadyLocked = errors.New("persistence: file already locked")

type windowsFileLocker struct{}

func newPlatformLocker() fileLocker {
	return &windowsFileLocker{}
}

// Lock is a no-op stub on Windows today.
//
// TODO: implement via golang.org/x/sys/windows.LockFileEx, as the teacher's
// services/trace/lock/locker_windows.go notes for its own equivalent stub.
func (windowsFileLocker) Lock(f *os.File) error {
	return nil
}

func (windowsFileLocker) Unlock(f *os.File) error {
	return nil
}

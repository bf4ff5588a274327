package persistence

import (
	"fmt"
	"os"

	"github.com/kgraph-ai/kgraph/internal/kgerrors"
)

// fileLocker is the platform seam for advisory file locking, split by build
// tag into lock_unix.go and lock_windows.go, mirroring the teacher's
// services/trace/lock package.
type fileLocker interface {
	Lock(f *os.File) error
	Unlock(f *os.File) error
}

// StoreLock represents an acquired advisory lock on one level's sentinel
// file. It is not related to the in-process Store mutex (spec §5): it only
// protects against two separate processes pointed at the same data
// directory stepping on each other's atomic renames.
type StoreLock struct {
	file   *os.File
	locker fileLocker
}

// AcquireStoreLock creates (or opens) "<path>.lock" and takes a
// non-blocking exclusive advisory lock on it. It returns
// kgerrors.ErrStoreLocked if another process already holds the lock.
func AcquireStoreLock(path string) (*StoreLock, error) {
	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", lockPath, err)
	}

	locker := newPlatformLocker()
	if err := locker.Lock(f); err != nil {
		f.Close()
		if err == errAlreadyLocked {
			return nil, fmt.Errorf("%s: %w", lockPath, kgerrors.ErrStoreLocked)
		}
		return nil, fmt.Errorf("locking %s: %w", lockPath, err)
	}

	return &StoreLock{file: f, locker: locker}, nil
}

// Release unlocks and closes the sentinel file. Safe to call once; callers
// typically defer it for the lifetime of the process.
func (l *StoreLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := l.locker.Unlock(l.file)
	closeErr := l.file.Close()
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}

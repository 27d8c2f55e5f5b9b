package core

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// RunLockFileName is the lock file held in the base path while a report
// run writes its outputs.
const RunLockFileName = ".kar.lock"

// LockRun acquires an exclusive lock on the run lock file of basePath,
// blocking until any other run has finished. The returned function releases
// the lock.
func LockRun(basePath string) (unlock func() error, err error) {
	return lockFile(filepath.Join(basePath, RunLockFileName))
}

// lockFile acquires an exclusive file lock (LOCK_EX) on the given file path.
func lockFile(path string) (unlock func() error, err error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquiring file lock: %w", err)
	}

	return func() error {
		defer f.Close()
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}

//go:build windows

package service

import "golang.org/x/sys/windows"

// flockShared acquires a shared file lock on Windows using LockFileEx.
// No LOCKFILE_EXCLUSIVE_LOCK flag means a shared lock, matching Unix
// flock(LOCK_SH) behavior.
func flockShared(fd uintptr) error {
	var ol windows.Overlapped
	return windows.LockFileEx(windows.Handle(fd), 0, 0, 1, 0, &ol)
}

// flockUnlock releases the file lock on Windows using UnlockFileEx.
func flockUnlock(fd uintptr) error {
	var ol windows.Overlapped
	return windows.UnlockFileEx(windows.Handle(fd), 0, 1, 0, &ol)
}

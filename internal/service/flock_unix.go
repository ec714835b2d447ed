//go:build !windows

package service

import "syscall"

// flockShared acquires a shared file lock (Unix implementation using flock).
func flockShared(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_SH)
}

// flockUnlock releases the file lock (Unix implementation using flock).
func flockUnlock(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_UN)
}

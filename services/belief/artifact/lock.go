// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// FileLock is an advisory flock(2) lock that serializes writers of one
// artifact.
//
// Thread Safety:
//
//	Not safe for concurrent use. Each writer takes its own instance.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates an unacquired lock at path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking.
//
// Errors:
//
//	ErrLockHeld if another holder has it, ErrLockAcquireFailed otherwise.
func (l *FileLock) Acquire() error {
	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("%w: creating lock directory: %v", ErrLockAcquireFailed, err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("%w: opening lock file: %v", ErrLockAcquireFailed, err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return ErrLockHeld
		}
		return fmt.Errorf("%w: flock: %v", ErrLockAcquireFailed, err)
	}

	// Holder info is for operators only.
	_ = file.Truncate(0)
	_, _ = fmt.Fprintf(file, "pid=%d\ntime=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))

	l.file = file
	return nil
}

// Release unlocks and closes the lock file. Safe to call on an unacquired
// lock. The file itself is left in place so that a concurrent Acquire
// never locks an unlinked inode.
func (l *FileLock) Release() error {
	if l.file == nil {
		return nil
	}
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}

// HolderPID returns the pid recorded by the current holder, or 0.
func (l *FileLock) HolderPID() int {
	content, err := os.ReadFile(l.path)
	if err != nil {
		return 0
	}
	var pid int
	if _, err := fmt.Sscanf(string(content), "pid=%d", &pid); err != nil {
		return 0
	}
	return pid
}

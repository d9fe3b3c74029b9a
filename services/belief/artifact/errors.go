// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package artifact persists belief graphs.
//
// An artifact is one opaque blob holding a complete graph snapshot plus a
// manifest describing it. Builds publish artifacts once; serving processes
// load them wholesale at start-up. Any failure to load (missing blob,
// checksum mismatch, unsupported format) is fatal to the consumer.
//
// # Blob Layout
//
//	[4-byte magic "BLFG"][2-byte format version][4-byte CRC32][gob snapshot]
//
// # Stores
//
//   - FileStore: one directory per artifact, replaced atomically
//   - BadgerStore: blob and manifest committed in one transaction
//   - GCSStore: objects in a Cloud Storage bucket
package artifact

import (
	"errors"
	"fmt"
)

// Sentinel errors for artifact storage.
var (
	// ErrArtifactNotFound is returned when no artifact exists under a name.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrArtifactCorrupted is returned when a blob or manifest cannot be
	// decoded.
	ErrArtifactCorrupted = errors.New("artifact is corrupted")

	// ErrVersionMismatch is returned when an artifact was written with an
	// unsupported format version.
	ErrVersionMismatch = errors.New("artifact format version mismatch")

	// ErrChecksumMismatch is returned when a blob does not match the
	// checksum recorded in its manifest.
	ErrChecksumMismatch = errors.New("artifact checksum mismatch")

	// ErrAtomicSwapFailed is returned when the new artifact directory could
	// not replace the old one.
	ErrAtomicSwapFailed = errors.New("atomic artifact swap failed")

	// ErrLockHeld is returned when another build holds the artifact lock.
	ErrLockHeld = errors.New("another build is writing this artifact")

	// ErrLockAcquireFailed is returned when the lock file cannot be locked.
	ErrLockAcquireFailed = errors.New("failed to acquire artifact lock")

	// ErrUnknownStore is returned for an unrecognized store kind.
	ErrUnknownStore = errors.New("unknown artifact store")

	// ErrInvalidName is returned for an empty or path-like artifact name.
	ErrInvalidName = errors.New("invalid artifact name")
)

// StorageError wraps a store failure with the operation that failed.
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("artifact %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

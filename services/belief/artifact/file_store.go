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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// File names inside an artifact directory.
const (
	BlobFileName     = "graph.blfg"
	ManifestFileName = "manifest.json"
)

// FileStore keeps each artifact in its own directory under a root:
//
//	<root>/
//	├── <name>/
//	│   ├── graph.blfg      # encoded snapshot
//	│   └── manifest.json   # checksum and stats
//	└── .<name>.lock        # writer lock
//
// Save writes a temp directory and renames it over the old one, so a
// reader sees either the previous artifact or the new one.
//
// Thread Safety:
//
//	Safe for concurrent use. Writers of one name are serialized by a flock.
type FileStore struct {
	root   string
	logger *slog.Logger
}

// Compile-time interface verification.
var _ Store = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir. The directory is created on
// first save.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{root: dir, logger: logger}
}

// Root returns the store's root directory.
func (s *FileStore) Root() string {
	return s.root
}

// ArtifactPath returns the directory holding the artifact name.
func (s *FileStore) ArtifactPath(name string) string {
	return filepath.Join(s.root, name)
}

// LockPath returns the writer lock path for name.
func (s *FileStore) LockPath(name string) string {
	return filepath.Join(s.root, "."+name+".lock")
}

// Save atomically replaces the artifact name.
//
// Description:
//
//  1. Take the writer lock (ErrLockHeld if another build holds it)
//  2. Write blob and manifest to .<name>.tmp.<nanos>
//  3. Move the existing artifact aside, rename temp into place
//  4. Remove the old artifact on success, restore it on failure
func (s *FileStore) Save(ctx context.Context, name string, blob []byte, m *Manifest) error {
	if err := validateName(name); err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("manifest must not be nil")
	}
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return &StorageError{Op: "create_root", Err: err}
	}

	lock := NewFileLock(s.LockPath(name))
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, ErrLockHeld) {
			if pid := lock.HolderPID(); pid != 0 {
				return fmt.Errorf("%w: held by pid %d", err, pid)
			}
		}
		return err
	}
	defer lock.Release()

	tempDir := filepath.Join(s.root, fmt.Sprintf(".%s.tmp.%d", name, time.Now().UnixNano()))
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(tempDir)
		}
	}()

	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return &StorageError{Op: "create_temp_dir", Err: err}
	}
	if err := writeFileSync(filepath.Join(tempDir, BlobFileName), blob); err != nil {
		return &StorageError{Op: "write_blob", Err: err}
	}
	data, err := marshalManifest(m)
	if err != nil {
		return err
	}
	if err := writeFileSync(filepath.Join(tempDir, ManifestFileName), data); err != nil {
		return &StorageError{Op: "write_manifest", Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save cancelled before swap: %w", err)
	}

	target := s.ArtifactPath(name)
	backup := filepath.Join(s.root, fmt.Sprintf(".%s.backup.%d", name, time.Now().UnixNano()))
	hadPrevious := false
	if _, err := os.Stat(target); err == nil {
		if err := os.Rename(target, backup); err != nil {
			return fmt.Errorf("%w: backup existing: %v", ErrAtomicSwapFailed, err)
		}
		hadPrevious = true
	}

	if err := os.Rename(tempDir, target); err != nil {
		if hadPrevious {
			if rerr := os.Rename(backup, target); rerr != nil {
				s.logger.Error("restoring previous artifact failed",
					slog.String("name", name),
					slog.String("backup", backup),
					slog.String("error", rerr.Error()),
				)
			}
		}
		return fmt.Errorf("%w: rename: %v", ErrAtomicSwapFailed, err)
	}
	committed = true

	if hadPrevious {
		if err := os.RemoveAll(backup); err != nil {
			s.logger.Warn("removing previous artifact failed",
				slog.String("backup", backup),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Debug("artifact saved",
		slog.String("path", target),
		slog.Int64("size_bytes", m.SizeBytes),
	)
	return nil
}

// Load reads the artifact name.
func (s *FileStore) Load(ctx context.Context, name string) ([]byte, *Manifest, error) {
	if err := validateName(name); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	dir := s.ArtifactPath(name)
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, dir)
	}
	if err != nil {
		return nil, nil, &StorageError{Op: "read_manifest", Err: err}
	}
	m, err := unmarshalManifest(data)
	if err != nil {
		return nil, nil, err
	}

	blob, err := os.ReadFile(filepath.Join(dir, BlobFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: blob missing in %s", ErrArtifactCorrupted, dir)
	}
	if err != nil {
		return nil, nil, &StorageError{Op: "read_blob", Err: err}
	}
	return blob, m, nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

// writeFileSync writes data to path and fsyncs it.
func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

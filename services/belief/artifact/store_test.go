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
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	badgerstore "github.com/AleutianAI/beliefgraph/services/belief/storage/badger"
)

// storeContract exercises behavior every Store must share.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	_, _, err := store.Load(ctx, "catalog")
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	g := testGraph(t)
	m, err := Publish(ctx, store, "catalog", g, []string{"a.tbl", "b.tbl"})
	require.NoError(t, err)
	assert.Equal(t, "catalog", m.Name)
	assert.Equal(t, []string{"a.tbl", "b.tbl"}, m.Sources)

	loaded, lm, err := Open(ctx, store, "catalog", nil)
	require.NoError(t, err)
	assert.Equal(t, m.Checksum, lm.Checksum)
	assert.Equal(t, g.Stats(), loaded.Stats())
	assert.Equal(t, g.Values(), loaded.Values())
	for _, v := range g.Values() {
		assert.Equal(t, g.ConnectedSlots(v), loaded.ConnectedSlots(v), v)
		assert.Len(t, loaded.NodesByValue(v), len(g.NodesByValue(v)), v)
	}

	// Republishing replaces the artifact.
	m2, err := Publish(ctx, store, "catalog", g, []string{"c.tbl"})
	require.NoError(t, err)
	_, lm2, err := Open(ctx, store, "catalog", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"c.tbl"}, lm2.Sources)
	assert.Equal(t, m2.WrittenAtMilli, lm2.WrittenAtMilli)

	_, err = Publish(ctx, store, "../escape", g, nil)
	assert.ErrorIs(t, err, ErrInvalidName)
	_, _, err = Open(ctx, store, "", nil)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestFileStore(t *testing.T) {
	store := NewFileStore(t.TempDir(), nil)
	defer store.Close()
	storeContract(t, store)
}

func TestBadgerStore(t *testing.T) {
	db, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	store := NewBadgerStore(db, nil)
	storeContract(t, store)
	require.NoError(t, store.Close(), "borrowed database stays open")

	_, _, err = store.Load(context.Background(), "catalog")
	assert.NoError(t, err)
}

func TestOpenBadgerStore_Persistent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	ctx := context.Background()

	store, err := OpenBadgerStore(badgerstore.DefaultConfig(dir), nil)
	require.NoError(t, err)
	_, err = Publish(ctx, store, "catalog", testGraph(t), nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	cfg := badgerstore.DefaultConfig(dir)
	cfg.ReadOnly = true
	ro, err := OpenBadgerStore(cfg, nil)
	require.NoError(t, err)
	defer ro.Close()

	g, _, err := Open(ctx, ro, "catalog", nil)
	require.NoError(t, err)
	assert.True(t, g.IsAmbiguous("apple"))
}

func TestFileStore_Layout(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root, nil)

	_, err := Publish(context.Background(), store, "catalog", testGraph(t), nil)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, "catalog", BlobFileName))
	assert.FileExists(t, filepath.Join(root, "catalog", ManifestFileName))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp.", "temp directory left behind")
		assert.NotContains(t, e.Name(), ".backup.", "backup directory left behind")
	}
}

func TestFileStore_CorruptedBlob(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root, nil)
	ctx := context.Background()

	_, err := Publish(ctx, store, "catalog", testGraph(t), nil)
	require.NoError(t, err)

	blobPath := filepath.Join(root, "catalog", BlobFileName)
	blob, err := os.ReadFile(blobPath)
	require.NoError(t, err)
	blob[len(blob)-1] ^= 0xff
	require.NoError(t, os.WriteFile(blobPath, blob, 0644))

	_, _, err = Open(ctx, store, "catalog", nil)
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	require.NoError(t, os.Remove(blobPath))
	_, _, err = Open(ctx, store, "catalog", nil)
	assert.ErrorIs(t, err, ErrArtifactCorrupted)

	require.NoError(t, os.WriteFile(filepath.Join(root, "catalog", ManifestFileName), []byte("{"), 0644))
	_, _, err = Open(ctx, store, "catalog", nil)
	assert.ErrorIs(t, err, ErrArtifactCorrupted)
}

func TestFileStore_SaveWhileLocked(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root, nil)

	lock := NewFileLock(store.LockPath("catalog"))
	require.NoError(t, lock.Acquire())
	defer lock.Release()

	_, err := Publish(context.Background(), store, "catalog", testGraph(t), nil)
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.Contains(t, err.Error(), "held by pid "+strconv.Itoa(os.Getpid()))

	_, statErr := os.Stat(store.ArtifactPath("catalog"))
	assert.True(t, os.IsNotExist(statErr), "no artifact written while locked")
}

func TestFileStore_SaveCancelled(t *testing.T) {
	store := NewFileStore(t.TempDir(), nil)
	blob, g := testBlob(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Save(ctx, "catalog", blob, NewManifest("catalog", blob, g, nil))
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(store.ArtifactPath("catalog"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", ".catalog.lock")

	first := NewFileLock(path)
	second := NewFileLock(path)

	require.NoError(t, first.Acquire())
	require.NoError(t, first.Acquire(), "re-acquire by holder is a no-op")
	assert.Equal(t, os.Getpid(), first.HolderPID())

	assert.ErrorIs(t, second.Acquire(), ErrLockHeld)

	require.NoError(t, first.Release())
	require.NoError(t, first.Release())

	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStore(ctx, StoreConfig{Kind: StoreFile, Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = OpenStore(ctx, StoreConfig{Kind: StoreBadger, BadgerPath: filepath.Join(t.TempDir(), "db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &BadgerStore{}, s)
	require.NoError(t, s.Close())

	_, err = OpenStore(ctx, StoreConfig{Kind: StoreFile}, nil)
	assert.Error(t, err)

	_, err = OpenStore(ctx, StoreConfig{Kind: StoreGCS}, nil)
	assert.Error(t, err, "bucket is required")

	_, err = OpenStore(ctx, StoreConfig{Kind: "s3"}, nil)
	assert.ErrorIs(t, err, ErrUnknownStore)
}

func TestGCSStore_ObjectName(t *testing.T) {
	s := &GCSStore{opts: GCSOptions{Bucket: "b", Prefix: "belief/prod"}}
	assert.Equal(t, "belief/prod/catalog/graph.blfg", s.objectName("catalog", BlobFileName))

	s = &GCSStore{opts: GCSOptions{Bucket: "b"}}
	assert.Equal(t, "catalog/manifest.json", s.objectName("catalog", ManifestFileName))
}

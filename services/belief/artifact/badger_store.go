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

	"github.com/dgraph-io/badger/v4"

	badgerstore "github.com/AleutianAI/beliefgraph/services/belief/storage/badger"
)

// badgerKeyPrefix namespaces artifact keys inside a shared database.
const badgerKeyPrefix = "belief/artifact/"

// BadgerStore keeps artifacts in BadgerDB. The blob and its manifest are
// committed in one transaction.
//
// Thread Safety:
//
//	Safe for concurrent use.
type BadgerStore struct {
	db     *badgerstore.DB
	owned  bool
	logger *slog.Logger
}

// Compile-time interface verification.
var _ Store = (*BadgerStore)(nil)

// NewBadgerStore wraps an open database. Close leaves db open.
func NewBadgerStore(db *badgerstore.DB, logger *slog.Logger) *BadgerStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerStore{db: db, logger: logger}
}

// OpenBadgerStore opens a database per cfg. Close closes it.
func OpenBadgerStore(cfg badgerstore.Config, logger *slog.Logger) (*BadgerStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	db, err := badgerstore.Open(cfg)
	if err != nil {
		return nil, &StorageError{Op: "open_badger", Err: err}
	}
	s := NewBadgerStore(db, logger)
	s.owned = true
	return s, nil
}

func blobKey(name string) []byte {
	return []byte(badgerKeyPrefix + name + "/blob")
}

func manifestKey(name string) []byte {
	return []byte(badgerKeyPrefix + name + "/manifest")
}

// Save stores blob and manifest under name.
func (s *BadgerStore) Save(ctx context.Context, name string, blob []byte, m *Manifest) error {
	if err := validateName(name); err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("manifest must not be nil")
	}
	data, err := marshalManifest(m)
	if err != nil {
		return err
	}

	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Set(blobKey(name), blob); err != nil {
			return err
		}
		return txn.Set(manifestKey(name), data)
	})
	if err != nil {
		return &StorageError{Op: "badger_save", Err: err}
	}

	s.logger.Debug("artifact saved to badger",
		slog.String("name", name),
		slog.Int64("size_bytes", m.SizeBytes),
	)
	return nil
}

// Load reads the artifact name.
func (s *BadgerStore) Load(ctx context.Context, name string) ([]byte, *Manifest, error) {
	if err := validateName(name); err != nil {
		return nil, nil, err
	}

	var blob, data []byte
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(manifestKey(name))
		if err != nil {
			return err
		}
		if data, err = item.ValueCopy(nil); err != nil {
			return err
		}
		item, err = txn.Get(blobKey(name))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
	}
	if err != nil {
		return nil, nil, &StorageError{Op: "badger_load", Err: err}
	}

	m, err := unmarshalManifest(data)
	if err != nil {
		return nil, nil, err
	}
	return blob, m, nil
}

// Close closes the database if the store opened it.
func (s *BadgerStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

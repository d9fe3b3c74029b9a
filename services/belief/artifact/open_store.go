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
	"fmt"
	"log/slog"

	badgerstore "github.com/AleutianAI/beliefgraph/services/belief/storage/badger"
)

// Store kinds accepted by OpenStore.
const (
	StoreFile   = "file"
	StoreBadger = "badger"
	StoreGCS    = "gcs"
)

// StoreConfig selects and configures a store.
type StoreConfig struct {
	// Kind is one of StoreFile, StoreBadger, StoreGCS.
	Kind string

	// Dir is the FileStore root.
	Dir string

	// BadgerPath is the BadgerStore database directory.
	BadgerPath string

	// ReadOnly opens the badger database read-only. Serving processes
	// set it so several of them can share one database.
	ReadOnly bool

	// GCS configures the GCSStore.
	GCS GCSOptions
}

// OpenStore opens the store described by cfg.
//
// Errors:
//
//	ErrUnknownStore for an unrecognized kind, or the store's open error.
func OpenStore(ctx context.Context, cfg StoreConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Kind {
	case StoreFile, "":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file store requires a directory")
		}
		return NewFileStore(cfg.Dir, logger), nil
	case StoreBadger:
		bcfg := badgerstore.DefaultConfig(cfg.BadgerPath)
		bcfg.ReadOnly = cfg.ReadOnly
		return OpenBadgerStore(bcfg, logger)
	case StoreGCS:
		return NewGCSStore(ctx, cfg.GCS, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, cfg.Kind)
	}
}

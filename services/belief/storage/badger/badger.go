// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger opens BadgerDB instances for artifact storage.
//
// Artifacts are written by one build process and read by many serving
// processes, so the package supports a read-only mode in addition to the
// usual read-write and in-memory modes.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config configures a BadgerDB instance.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps all data in memory. Used by tests.
	InMemory bool

	// ReadOnly opens an existing database without write access. Several
	// processes may open the same directory read-only.
	ReadOnly bool

	// SyncWrites fsyncs every commit.
	// Default: true
	SyncWrites bool

	// Logger receives BadgerDB's internal log output. Nil silences it.
	Logger *slog.Logger

	// GCInterval is how often value log GC runs. Zero disables GC.
	// Default: 10 minutes
	GCInterval time.Duration

	// GCDiscardRatio is the discardable fraction that triggers a rewrite.
	// Default: 0.5
	GCDiscardRatio float64
}

// DefaultConfig returns the configuration for a persistent database.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns the configuration for an in-memory database.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// slogAdapter routes BadgerDB log lines to slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Errorf(format string, args ...interface{}) {
	a.logger.Error(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (a slogAdapter) Warningf(format string, args ...interface{}) {
	a.logger.Warn(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (a slogAdapter) Infof(format string, args ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (a slogAdapter) Debugf(format string, args ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

// options translates cfg into badger options.
func (cfg Config) options() (badger.Options, error) {
	if cfg.InMemory {
		if cfg.ReadOnly {
			return badger.Options{}, errors.New("in-memory database cannot be read-only")
		}
		return badger.DefaultOptions("").WithInMemory(true).WithLogger(nil), nil
	}
	if cfg.Path == "" {
		return badger.Options{}, errors.New("path is required for persistent database")
	}

	if cfg.ReadOnly {
		if _, err := os.Stat(cfg.Path); err != nil {
			return badger.Options{}, fmt.Errorf("read-only database %s: %w", cfg.Path, err)
		}
	} else if err := os.MkdirAll(cfg.Path, 0750); err != nil {
		return badger.Options{}, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithReadOnly(cfg.ReadOnly).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(slogAdapter{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	return opts, nil
}

// DB wraps a BadgerDB handle with transaction helpers and background GC.
//
// Thread Safety:
//
//	Safe for concurrent use.
type DB struct {
	*badger.DB

	cfg       Config
	stopGC    context.CancelFunc
	gcDone    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Open opens a database per cfg and starts value log GC when configured.
func Open(cfg Config) (*DB, error) {
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	db := &DB{DB: bdb, cfg: cfg}
	if cfg.GCInterval > 0 && !cfg.InMemory && !cfg.ReadOnly {
		ctx, cancel := context.WithCancel(context.Background())
		db.stopGC = cancel
		db.gcDone = make(chan struct{})
		go db.runGC(ctx)
	}
	return db, nil
}

// OpenInMemory opens an in-memory database.
func OpenInMemory() (*DB, error) {
	return Open(InMemoryConfig())
}

// runGC rewrites the value log every GCInterval until ctx is done.
func (d *DB) runGC(ctx context.Context) {
	defer close(d.gcDone)

	ticker := time.NewTicker(d.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := d.DB.RunValueLogGC(d.cfg.GCDiscardRatio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && d.cfg.Logger != nil {
				d.cfg.Logger.Warn("badger value log GC failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Close stops GC and closes the database. Safe to call more than once.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		if d.stopGC != nil {
			d.stopGC()
			<-d.gcDone
		}
		d.closeErr = d.DB.Close()
	})
	return d.closeErr
}

// Path returns the database directory, or "" in memory.
func (d *DB) Path() string {
	if d.cfg.InMemory {
		return ""
	}
	return d.cfg.Path
}

// ReadOnly returns true if the database was opened read-only.
func (d *DB) ReadOnly() bool {
	return d.cfg.ReadOnly
}

// WithTxn runs fn in a read-write transaction and commits it when fn
// succeeds.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	if d.cfg.ReadOnly {
		return badger.ErrReadOnlyTxn
	}

	txn := d.DB.NewTransaction(true)
	defer txn.Discard()

	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

// WithReadTxn runs fn in a read-only transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	txn := d.DB.NewTransaction(false)
	defer txn.Discard()

	return fn(txn)
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the default quiet period before a reload.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a Holder when a file store replaces its artifact.
//
// Description:
//
//	FileStore.Save renames a finished directory over <root>/<name>, which
//	shows up as create/rename events on <name> in the root directory.
//	Events are debounced so one save triggers one reload.
type Watcher struct {
	root     string
	name     string
	holder   *Holder
	debounce time.Duration
	logger   *slog.Logger

	ready chan struct{}

	// reloaded, if set, receives the outcome of every reload attempt.
	reloaded func(changed bool, err error)
}

// NewWatcher creates a watcher of <root>/<name>.
func NewWatcher(root, name string, holder *Holder, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		root:     root,
		name:     name,
		holder:   holder,
		debounce: debounce,
		logger:   logger,
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the watch is established.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is done. Returns an error only if the watch
// cannot be established.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.root); err != nil {
		return err
	}
	close(w.ready)
	w.logger.Info("watching belief graph artifact",
		slog.String("path", filepath.Join(w.root, w.name)),
		slog.Duration("debounce", w.debounce),
	)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("artifact watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	changed, err := w.holder.Load(ctx)
	switch {
	case err != nil:
		w.logger.Error("artifact reload failed, keeping current graph",
			slog.String("error", err.Error()),
		)
	case changed:
		w.logger.Info("artifact reloaded")
	default:
		w.logger.Debug("artifact unchanged")
	}
	if w.reloaded != nil {
		w.reloaded(changed, err)
	}
}

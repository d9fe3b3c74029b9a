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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"
)

// Options configures a Server.
type Options struct {
	// Port is the TCP listen port.
	Port int

	// Debug enables gin debug mode.
	Debug bool

	// ServiceName names spans produced by the tracing middleware.
	ServiceName string

	// RateLimit is the allowed requests per second. Zero disables limiting.
	RateLimit float64

	// Burst is the rate limiter burst.
	Burst int

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// WatchDir, if set, is a file store root watched for artifact
	// replacement.
	WatchDir string

	// WatchDebounce is the quiet period before a reload.
	WatchDebounce time.Duration

	// MetricsHandler, if set, is served at /metrics.
	MetricsHandler http.Handler

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server serves a Holder over HTTP.
type Server struct {
	holder *Holder
	opts   Options
	engine *gin.Engine
	logger *slog.Logger
}

// New builds the router for holder. Nothing listens until Run.
func New(holder *Holder, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "beliefgraph"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(opts.ServiceName))
	router.Use(RequestLogger(logger))
	router.Use(RateLimit(opts.RateLimit, opts.Burst))

	if opts.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	v1 := router.Group("/v1")
	RegisterRoutes(v1, NewHandlers(holder, logger))

	return &Server{
		holder: holder,
		opts:   opts,
		engine: router,
		logger: logger,
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts down gracefully.
//
// Description:
//
//	Loads the artifact first if nothing is loaded yet; a failed initial
//	load is returned without listening. When WatchDir is set a Watcher
//	runs alongside the HTTP server.
func (s *Server) Run(ctx context.Context) error {
	if s.holder.Current() == nil {
		if _, err := s.holder.Load(ctx); err != nil {
			return fmt.Errorf("initial load: %w", err)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("belief graph server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down belief graph server")
		return srv.Shutdown(shutdownCtx)
	})

	if s.opts.WatchDir != "" {
		w := NewWatcher(s.opts.WatchDir, s.holder.name, s.holder, s.opts.WatchDebounce, s.logger)
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	return g.Wait()
}

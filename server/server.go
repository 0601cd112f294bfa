// Package server multiplexes inbound requests to build-output files,
// on-demand compiled pages, and API handlers, wrapping every request in
// one correlated trace tree.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mements/serve/pkg/artifact"
	"github.com/Mements/serve/pkg/importmap"
)

// Config assembles a serving instance. Index, Compiler, routes, and
// imports are owned by the caller and injected here; nothing is stored in
// package-level state, so multiple instances can coexist in one process.
type Config struct {
	Addr string

	// DistDir is the build-output root checked first for exact-path
	// file requests; AssetsDir is checked second.
	DistDir   string
	AssetsDir string

	// DevMode recompiles pages on every request and exposes handler
	// error details in responses.
	DevMode bool

	Logger   *slog.Logger
	Index    artifact.Index
	Compiler artifact.Compiler

	// KeepIndex skips the start-time index reset. Set it for an index
	// shared with other processes, where existing records (for example
	// those published by a precompile run) must survive this process
	// starting.
	KeepIndex bool

	Imports    []importmap.Descriptor
	ImportBase string

	Routes []Route
	API    map[string]http.Handler

	// Injector overrides the default head injector.
	Injector Injector

	ShutdownTimeout time.Duration
}

// Server is one serving instance.
type Server struct {
	addr            string
	distDir         string
	assetsDir       string
	devMode         bool
	logger          *slog.Logger
	artifacts       *artifact.Cache
	imports         map[string]string
	routes          map[string]Route
	api             map[string]http.Handler
	injector        Injector
	shutdownTimeout time.Duration
	httpServer      *http.Server
}

// New builds a Server from cfg. A process-local artifact index is reset
// here, at process start, so stale records from a previous run never
// survive; KeepIndex preserves records in a shared index instead. The
// import map is resolved once and reused for every page response.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	index := cfg.Index
	if index == nil {
		index = artifact.NewMemoryIndex()
	}
	if !cfg.KeepIndex {
		if err := index.Reset(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to reset artifact index: %w", err)
		}
	}

	if len(cfg.Routes) > 0 && cfg.Compiler == nil {
		return nil, fmt.Errorf("page routes declared without a compiler")
	}

	routes := make(map[string]Route, len(cfg.Routes))
	for _, route := range cfg.Routes {
		if _, dup := routes[route.Path]; dup {
			return nil, fmt.Errorf("duplicate route %q", route.Path)
		}
		routes[route.Path] = route
	}

	injector := cfg.Injector
	if injector == nil {
		injector = HeadInjector{}
	}

	resolver := importmap.Resolver{BaseURL: cfg.ImportBase}

	s := &Server{
		addr:      cfg.Addr,
		distDir:   cfg.DistDir,
		assetsDir: cfg.AssetsDir,
		devMode:   cfg.DevMode,
		logger:    logger,
		artifacts: artifact.NewCache(index, cfg.Compiler,
			artifact.WithDevMode(cfg.DevMode),
			artifact.WithLogger(logger)),
		imports:         resolver.Resolve(cfg.Imports, cfg.DevMode),
		routes:          routes,
		api:             cfg.API,
		injector:        injector,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if s.shutdownTimeout == 0 {
		s.shutdownTimeout = 30 * time.Second
	}

	return s, nil
}

// ImportMap returns the import map resolved at construction.
func (s *Server) ImportMap() map[string]string {
	return s.imports
}

// Run starts the HTTP listener and blocks until the context is cancelled,
// a termination signal arrives, or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.addr, "dev", s.devMode)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
	case sig := <-shutdownCh:
		s.logger.Info("received signal, shutting down", "signal", sig)
	case err := <-errCh:
		return err
	}

	return s.shutdown()
}

func (s *Server) shutdown() error {
	s.logger.Info("initiating graceful shutdown", "timeout", s.shutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown timed out, forcing close")
		return s.httpServer.Close()
	}
	s.logger.Info("graceful shutdown completed")
	return nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"io"
	"log/slog"

	"github.com/specialistvlad/profilegrid/internal/metric"
	"github.com/specialistvlad/profilegrid/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	backend  metric.Backend
	config   *Config
}

// Option customises an App, mostly for tests.
type Option func(*App)

// WithModules replaces the builder modules compiled into the binary.
func WithModules(modules ...registry.Module) Option {
	return func(a *App) { a.registry = registry.New(modules...) }
}

// WithBackend replaces the in-memory metric backend.
func WithBackend(b metric.Backend) Option {
	return func(a *App) { a.backend = b }
}

// NewApp is the constructor for the main application. The result is written
// to outW unless the config names an output file; logs go to logW.
func NewApp(outW, logW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:   outW,
		logger: logger,
		config: cfg,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = registry.New(coreModules...)
	}
	logger.Debug("Builder modules registered.", "types", a.registry.Types())
	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

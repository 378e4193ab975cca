// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package engine

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/specialistvlad/profilegrid/internal/batch"
	"github.com/specialistvlad/profilegrid/internal/ctxlog"
	"github.com/specialistvlad/profilegrid/internal/metric"
	"github.com/specialistvlad/profilegrid/internal/result"
	"github.com/specialistvlad/profilegrid/internal/rule"
)

// Engine runs rules against batches.
type Engine struct {
	backend     metric.Backend
	concurrency int
	clock       clock.Clock
	variables   map[string]any
	newRunID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency bounds how many domains of one rule are evaluated at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = n }
}

// WithClock replaces the wall clock used for timings.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithVariables overrides rule variables, key by key, for every rule.
func WithVariables(vars map[string]any) Option {
	return func(e *Engine) { e.variables = maps.Clone(vars) }
}

// WithRunID replaces the run ID generator.
func WithRunID(fn func() string) Option {
	return func(e *Engine) { e.newRunID = fn }
}

// New creates an engine that computes metrics with backend.
func New(backend metric.Backend, opts ...Option) *Engine {
	e := &Engine{
		backend:     backend,
		concurrency: 1,
		clock:       clock.WallClock,
		newRunID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run evaluates every rule and returns the merged result. It never returns
// an error: rule and domain failures are recorded in the result.
func (e *Engine) Run(ctx context.Context, rules []*rule.Rule, batches []batch.Batch) *result.Result {
	runID := e.newRunID()
	logger := ctxlog.FromContext(ctx).With("run_id", runID)
	ctx = ctxlog.WithLogger(ctx, logger)

	start := e.clock.Now()
	res := result.New(runID, start, batch.IDs(batches))
	for _, r := range rules {
		res.Cite(r.Config())
	}
	logger.Info("Profiler run started.", "rules", len(rules), "batches", len(batches))

	for i, r := range rules {
		if err := ctx.Err(); err != nil {
			logger.Info("Run cancelled, remaining rules not started.", "not_started", len(rules)-i, "error", err)
			break
		}
		ev := r.Evaluate(ctx, rule.Input{
			Batches:     batches,
			Backend:     e.backend,
			Variables:   e.variables,
			Concurrency: e.concurrency,
			Clock:       e.clock,
		})
		res.Merge(ev)
		if ev.State == rule.Failed && !ev.Cancelled {
			logger.Warn("Rule failed, continuing with the next one.", "rule", r.Name(), "error", ev.Err)
		}
	}

	res.Finish(e.clock.Now().Sub(start), ctx.Err() != nil)
	logger.Info("Profiler run finished.",
		"status", res.Status,
		"configurations", len(res.Configurations),
		"conflicts", len(res.Conflicts),
		"duration", time.Duration(res.Duration))
	return res
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package metric defines the boundary to the external metric backend. The
// engine only orchestrates calls; computing statistics is the backend's job.
package metric

import (
	"context"

	"github.com/specialistvlad/profilegrid/internal/batch"
)

// Request names a metric and the keyword arguments it is computed with.
type Request struct {
	Metric       string         `json:"metric_name"`
	DomainKwargs map[string]any `json:"domain_kwargs"`
	ValueKwargs  map[string]any `json:"value_kwargs,omitempty"`
}

// Backend computes metrics over a batch. Implementations own their timeout
// and retry policy; the engine surfaces failures without retrying.
type Backend interface {
	Compute(ctx context.Context, b batch.Batch, req Request) (value any, details map[string]any, err error)
}

// BackendFunc adapts a plain function to the Backend interface.
type BackendFunc func(ctx context.Context, b batch.Batch, req Request) (any, map[string]any, error)

// Compute implements Backend.
func (f BackendFunc) Compute(ctx context.Context, b batch.Batch, req Request) (any, map[string]any, error) {
	return f(ctx, b, req)
}

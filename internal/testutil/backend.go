// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package testutil

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/specialistvlad/profilegrid/internal/batch"
	"github.com/specialistvlad/profilegrid/internal/domain"
	"github.com/specialistvlad/profilegrid/internal/metric"
)

// ErrInjected is returned by FakeBackend for columns marked as failing.
var ErrInjected = errors.New("injected backend failure")

// Call is one request observed by FakeBackend.
type Call struct {
	BatchID string
	Request metric.Request
}

// FakeBackend is a scripted metric.Backend. Values are looked up by
// (metric, column) first and then by metric alone; unknown metrics yield 0.
type FakeBackend struct {
	mu      sync.Mutex
	values  map[string]any
	failing []string
	calls   []Call
}

// NewFakeBackend creates an empty fake backend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{values: map[string]any{}}
}

// Set scripts the value for metricName. An empty column applies to every
// domain without a more specific entry.
func (f *FakeBackend) Set(metricName, column string, value any) *FakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[metricName+"/"+column] = value
	return f
}

// FailFor makes every request on the given columns fail with ErrInjected.
func (f *FakeBackend) FailFor(columns ...string) *FakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = append(f.failing, columns...)
	return f
}

// Compute implements metric.Backend.
func (f *FakeBackend) Compute(ctx context.Context, b batch.Batch, req metric.Request) (any, map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{BatchID: b.ID(), Request: req})
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	column, _ := req.DomainKwargs[domain.KeyColumn].(string)
	if slices.Contains(f.failing, column) {
		return nil, nil, ErrInjected
	}
	if v, ok := f.values[req.Metric+"/"+column]; ok {
		return v, nil, nil
	}
	if v, ok := f.values[req.Metric+"/"]; ok {
		return v, nil, nil
	}
	return 0, nil, nil
}

// Calls returns the requests observed so far.
func (f *FakeBackend) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package memdata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/specialistvlad/profilegrid/internal/batch"
	"github.com/specialistvlad/profilegrid/internal/domain"
	"github.com/specialistvlad/profilegrid/internal/metric"
)

// Supported metric names.
const (
	ColumnMin            = "column.min"
	ColumnMax            = "column.max"
	ColumnMean           = "column.mean"
	ColumnSum            = "column.sum"
	ColumnCount          = "column.count"
	ColumnNullCount      = "column.null_count"
	ColumnDistinctValues = "column.distinct_values"
	ColumnQuantiles      = "column.quantiles"
	TableRowCount        = "table.row_count"
	TableColumns         = "table.columns"
)

// QuantilesKwarg is the value kwarg listing the requested quantiles.
const QuantilesKwarg = "quantiles"

type metricFunc func(b *Batch, req metric.Request) (any, error)

// Backend computes the common column and table metrics over memdata batches.
type Backend struct {
	metrics map[string]metricFunc
}

// NewBackend creates a backend with every supported metric.
func NewBackend() *Backend {
	return &Backend{metrics: map[string]metricFunc{
		ColumnMin:            numericReduce(func(xs []float64) float64 { return slices.Min(xs) }),
		ColumnMax:            numericReduce(func(xs []float64) float64 { return slices.Max(xs) }),
		ColumnMean:           numericReduce(mean),
		ColumnSum:            numericReduce(sum),
		ColumnCount:          count(false),
		ColumnNullCount:      count(true),
		ColumnDistinctValues: distinctValues,
		ColumnQuantiles:      quantiles,
		TableRowCount:        func(b *Batch, _ metric.Request) (any, error) { return b.RowCount(), nil },
		TableColumns:         tableColumns,
	}}
}

// Metrics lists the supported metric names, sorted.
func (be *Backend) Metrics() []string {
	names := make([]string, 0, len(be.metrics))
	for n := range be.metrics {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Compute implements metric.Backend.
func (be *Backend) Compute(ctx context.Context, b batch.Batch, req metric.Request) (any, map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	mb, ok := b.(*Batch)
	if !ok {
		return nil, nil, fmt.Errorf("batch %q is not an in-memory batch (%T)", b.ID(), b)
	}
	fn, ok := be.metrics[req.Metric]
	if !ok {
		return nil, nil, fmt.Errorf("unsupported metric %q", req.Metric)
	}
	v, err := fn(mb, req)
	if err != nil {
		return nil, nil, err
	}
	return v, map[string]any{"batch_id": mb.ID(), "row_count": mb.RowCount()}, nil
}

func columnValues(b *Batch, req metric.Request) ([]any, error) {
	col, ok := req.DomainKwargs[domain.KeyColumn].(string)
	if !ok || col == "" {
		return nil, fmt.Errorf("metric %q needs a %q domain kwarg", req.Metric, domain.KeyColumn)
	}
	return b.Values(col)
}

func numericValues(b *Batch, req metric.Request) ([]float64, error) {
	values, err := columnValues(b, req)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("metric %q: non-numeric value %v (%T)", req.Metric, v, v)
		}
		out = append(out, f)
	}
	return out, nil
}

func numericReduce(reduce func([]float64) float64) metricFunc {
	return func(b *Batch, req metric.Request) (any, error) {
		xs, err := numericValues(b, req)
		if err != nil {
			return nil, err
		}
		if len(xs) == 0 {
			return nil, nil
		}
		return reduce(xs), nil
	}
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func mean(xs []float64) float64 { return sum(xs) / float64(len(xs)) }

func count(nulls bool) metricFunc {
	return func(b *Batch, req metric.Request) (any, error) {
		values, err := columnValues(b, req)
		if err != nil {
			return nil, err
		}
		n := 0
		for _, v := range values {
			if (v == nil) == nulls {
				n++
			}
		}
		return n, nil
	}
}

func distinctValues(b *Batch, req metric.Request) (any, error) {
	values, err := columnValues(b, req)
	if err != nil {
		return nil, err
	}
	seen := map[string]any{}
	for _, v := range values {
		if v == nil {
			continue
		}
		seen[fmt.Sprint(v)] = v
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out, nil
}

// quantiles uses linear interpolation between closest ranks.
func quantiles(b *Batch, req metric.Request) (any, error) {
	qs, err := quantileKwarg(req)
	if err != nil {
		return nil, err
	}
	xs, err := numericValues(b, req)
	if err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return nil, nil
	}
	slices.Sort(xs)

	out := make([]any, 0, len(qs))
	for _, q := range qs {
		pos := q * float64(len(xs)-1)
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		frac := pos - float64(lo)
		out = append(out, xs[lo]+(xs[hi]-xs[lo])*frac)
	}
	return out, nil
}

func quantileKwarg(req metric.Request) ([]float64, error) {
	raw, ok := req.ValueKwargs[QuantilesKwarg]
	if !ok {
		return []float64{0.25, 0.5, 0.75}, nil
	}
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []float64:
		for _, f := range v {
			items = append(items, f)
		}
	default:
		return nil, fmt.Errorf("value kwarg %q must be a list of numbers, got %T", QuantilesKwarg, raw)
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		f, ok := toFloat(item)
		if !ok || f < 0 || f > 1 {
			return nil, fmt.Errorf("value kwarg %q: %v is not a number between 0 and 1", QuantilesKwarg, item)
		}
		out = append(out, f)
	}
	return out, nil
}

func tableColumns(b *Batch, _ metric.Request) (any, error) {
	names := make([]any, 0, len(b.columns))
	for _, c := range b.columns {
		names = append(names, c.Name)
	}
	return names, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

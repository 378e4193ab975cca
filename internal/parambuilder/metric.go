// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package parambuilder

import (
	"context"
	"fmt"
	"math"

	"github.com/specialistvlad/profilegrid/internal/batch"
	"github.com/specialistvlad/profilegrid/internal/builder"
	"github.com/specialistvlad/profilegrid/internal/ctxlog"
	"github.com/specialistvlad/profilegrid/internal/errdefs"
	"github.com/specialistvlad/profilegrid/internal/expr"
	"github.com/specialistvlad/profilegrid/internal/metric"
	"github.com/specialistvlad/profilegrid/internal/paramstore"
)

// Type tags of the metric builders.
const (
	TypeMetricSingleBatch = "metric_single_batch"
	TypeMetricMultiBatch  = "metric_multi_batch"
)

// Metric builder options.
const (
	OptMetricName         = "metric_name"
	OptMetricDomainKwargs = "metric_domain_kwargs"
	OptMetricValueKwargs  = "metric_value_kwargs"
	OptBatchIndex         = "batch_index"
	OptReduce             = "reduce"
)

// Reductions for metric_multi_batch.
const (
	ReduceNone = "none"
	ReduceMin  = "min"
	ReduceMax  = "max"
	ReduceMean = "mean"
	ReduceSum  = "sum"
)

// Detail keys written next to every metric value.
const (
	DetailMetricConfiguration = "metric_configuration"
	DetailNumBatches          = "num_batches"
	DetailBatchIDs            = "batch_ids"
	DetailBackend             = "backend"
)

// defaultDomainKwargs addresses the current domain's kwargs.
const defaultDomainKwargs = "$domain.domain_kwargs"

// MetricBuilder asks the metric backend for one metric, on a single batch
// or on every batch.
type MetricBuilder struct {
	base

	metricName   string
	domainKwargs *expr.Template
	valueKwargs  *expr.Template
	multiBatch   bool
	batchIndex   int
	reduce       string
}

// NewSingleBatch creates a metric_single_batch builder.
func NewSingleBatch(name string, opts builder.Options) (builder.ParameterBuilder, error) {
	if err := opts.Check(OptMetricName, OptMetricDomainKwargs, OptMetricValueKwargs, OptDependsOn, OptBatchIndex); err != nil {
		return nil, err
	}
	b, err := newMetricBuilder(name, TypeMetricSingleBatch, opts)
	if err != nil {
		return nil, err
	}
	if b.batchIndex, err = opts.Int(OptBatchIndex, -1); err != nil {
		return nil, err
	}
	return b, nil
}

// NewMultiBatch creates a metric_multi_batch builder.
func NewMultiBatch(name string, opts builder.Options) (builder.ParameterBuilder, error) {
	if err := opts.Check(OptMetricName, OptMetricDomainKwargs, OptMetricValueKwargs, OptDependsOn, OptReduce); err != nil {
		return nil, err
	}
	b, err := newMetricBuilder(name, TypeMetricMultiBatch, opts)
	if err != nil {
		return nil, err
	}
	b.multiBatch = true
	if b.reduce, err = opts.String(OptReduce, ReduceNone); err != nil {
		return nil, err
	}
	switch b.reduce {
	case ReduceNone, ReduceMin, ReduceMax, ReduceMean, ReduceSum:
	default:
		return nil, fmt.Errorf("option %q must be one of none, min, max, mean or sum, got %q", OptReduce, b.reduce)
	}
	return b, nil
}

func newMetricBuilder(name, typ string, opts builder.Options) (*MetricBuilder, error) {
	metricName, err := opts.String(OptMetricName, "")
	if err != nil {
		return nil, err
	}
	if metricName == "" {
		return nil, fmt.Errorf("option %q is required", OptMetricName)
	}
	domainKwargs, err := opts.Template(OptMetricDomainKwargs, defaultDomainKwargs)
	if err != nil {
		return nil, err
	}
	valueKwargs, err := opts.Template(OptMetricValueKwargs, nil)
	if err != nil {
		return nil, err
	}
	b := &MetricBuilder{
		metricName:   metricName,
		domainKwargs: domainKwargs,
		valueKwargs:  valueKwargs,
	}
	if b.base, err = newBase(name, typ, opts, domainKwargs, valueKwargs); err != nil {
		return nil, err
	}
	return b, nil
}

// Spec implements builder.ParameterBuilder.
func (b *MetricBuilder) Spec() builder.Spec {
	opts := builder.Options{
		OptMetricName:         b.metricName,
		OptMetricDomainKwargs: b.domainKwargs,
	}
	if b.valueKwargs != nil {
		opts[OptMetricValueKwargs] = b.valueKwargs
	}
	if b.multiBatch {
		opts[OptReduce] = b.reduce
	} else {
		opts[OptBatchIndex] = b.batchIndex
	}
	return b.base.spec(opts)
}

// Build implements builder.ParameterBuilder.
func (b *MetricBuilder) Build(ctx context.Context, in builder.ParameterInput) (paramstore.Node, error) {
	logger := ctxlog.FromContext(ctx).With("parameter", b.name, "metric", b.metricName)

	req, err := b.request(in.Scope)
	if err != nil {
		return paramstore.Node{}, err
	}

	batches, err := b.selectBatches(in.Batches)
	if err != nil {
		return paramstore.Node{}, err
	}

	values := make([]any, 0, len(batches))
	var backendDetails []any
	for _, bt := range batches {
		if err := ctx.Err(); err != nil {
			return paramstore.Node{}, err
		}
		logger.Debug("Computing metric.", "batch", bt.ID(), "domain", in.Domain.String())
		v, details, err := in.Backend.Compute(ctx, bt, req)
		if err != nil {
			return paramstore.Node{}, &errdefs.MetricComputationError{Metric: b.metricName, Domain: in.Domain.ID(), Err: err}
		}
		values = append(values, v)
		if details != nil {
			backendDetails = append(backendDetails, details)
		}
	}

	nodeDetails := map[string]any{
		DetailMetricConfiguration: map[string]any{
			"metric_name":   req.Metric,
			"domain_kwargs": req.DomainKwargs,
			"value_kwargs":  req.ValueKwargs,
		},
		DetailNumBatches: len(batches),
		DetailBatchIDs:   batch.IDs(batches),
	}
	if len(backendDetails) > 0 {
		nodeDetails[DetailBackend] = backendDetails
	}

	if !b.multiBatch {
		return paramstore.Node{Value: values[0], Details: nodeDetails}, nil
	}
	value, err := reduceValues(b.reduce, values)
	if err != nil {
		return paramstore.Node{}, &errdefs.MetricComputationError{Metric: b.metricName, Domain: in.Domain.ID(), Err: err}
	}
	return paramstore.Node{Value: value, Details: nodeDetails}, nil
}

func (b *MetricBuilder) request(scope expr.Scope) (metric.Request, error) {
	req := metric.Request{Metric: b.metricName}

	dk, err := b.domainKwargs.Resolve(scope)
	if err != nil {
		return req, err
	}
	m, ok := dk.(map[string]any)
	if !ok {
		return req, &errdefs.TemplateResolutionError{
			Template: b.domainKwargs.Source(),
			Err:      fmt.Errorf("%s must resolve to a map, got %T", OptMetricDomainKwargs, dk),
		}
	}
	req.DomainKwargs = m

	if b.valueKwargs != nil {
		vk, err := b.valueKwargs.Resolve(scope)
		if err != nil {
			return req, err
		}
		m, ok := vk.(map[string]any)
		if !ok && vk != nil {
			return req, &errdefs.TemplateResolutionError{
				Template: b.valueKwargs.Source(),
				Err:      fmt.Errorf("%s must resolve to a map, got %T", OptMetricValueKwargs, vk),
			}
		}
		req.ValueKwargs = m
	}
	return req, nil
}

func (b *MetricBuilder) selectBatches(batches []batch.Batch) ([]batch.Batch, error) {
	if len(batches) == 0 {
		return nil, fmt.Errorf("parameter %q: no batches to compute %q on", b.name, b.metricName)
	}
	if b.multiBatch {
		return batches, nil
	}
	i := b.batchIndex
	if i < 0 {
		i += len(batches)
	}
	if i < 0 || i >= len(batches) {
		return nil, fmt.Errorf("parameter %q: %s %d out of range for %d batch(es)", b.name, OptBatchIndex, b.batchIndex, len(batches))
	}
	return []batch.Batch{batches[i]}, nil
}

func reduceValues(mode string, values []any) (any, error) {
	if mode == ReduceNone {
		return values, nil
	}

	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("cannot reduce non-numeric value %v (%T) with %q", v, v, mode)
		}
		nums = append(nums, f)
	}
	if len(nums) == 0 {
		return nil, nil
	}

	switch mode {
	case ReduceMin:
		out := math.Inf(1)
		for _, n := range nums {
			out = math.Min(out, n)
		}
		return out, nil
	case ReduceMax:
		out := math.Inf(-1)
		for _, n := range nums {
			out = math.Max(out, n)
		}
		return out, nil
	case ReduceSum, ReduceMean:
		var sum float64
		for _, n := range nums {
			sum += n
		}
		if mode == ReduceMean {
			return sum / float64(len(nums)), nil
		}
		return sum, nil
	}
	return nil, fmt.Errorf("unknown reduction %q", mode)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

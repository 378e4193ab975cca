package engine

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/specialistvlad/profilegrid/internal/batch"
	"github.com/specialistvlad/profilegrid/internal/builder"
	"github.com/specialistvlad/profilegrid/internal/configbuilder"
	"github.com/specialistvlad/profilegrid/internal/configuration"
	"github.com/specialistvlad/profilegrid/internal/domainbuilder"
	"github.com/specialistvlad/profilegrid/internal/memdata"
	"github.com/specialistvlad/profilegrid/internal/metric"
	"github.com/specialistvlad/profilegrid/internal/parambuilder"
	"github.com/specialistvlad/profilegrid/internal/registry"
	"github.com/specialistvlad/profilegrid/internal/result"
	"github.com/specialistvlad/profilegrid/internal/rule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reg = registry.New(domainbuilder.Module{}, parambuilder.Module{}, configbuilder.Module{})

func amountBatch() []batch.Batch {
	return []batch.Batch{memdata.NewBatch("orders-2025-01", []batch.Column{{Name: "amount", Type: batch.Numeric}}, nil)}
}

// fixedBackend answers column.min with 1 and column.max with 100, and
// advances clk by a second per call when clk is set.
func fixedBackend(clk *testclock.Clock) metric.Backend {
	return metric.BackendFunc(func(_ context.Context, _ batch.Batch, req metric.Request) (any, map[string]any, error) {
		if clk != nil {
			clk.Advance(time.Second)
		}
		if req.Metric == "column.min" {
			return 1, nil, nil
		}
		return 100, nil, nil
	})
}

func rangeRule(t *testing.T, name string, domainOpts builder.Options) *rule.Rule {
	t.Helper()
	r, err := rule.New(rule.Config{
		Name:          name,
		DomainBuilder: builder.Spec{Type: "column", Options: domainOpts},
		ParameterBuilders: []builder.Spec{
			{Type: parambuilder.TypeMetricSingleBatch, Name: "min", Options: builder.Options{parambuilder.OptMetricName: "column.min"}},
			{Type: parambuilder.TypeMetricSingleBatch, Name: "max", Options: builder.Options{parambuilder.OptMetricName: "column.max"}},
		},
		ConfigurationBuilders: []builder.Spec{{Type: configbuilder.TypeDefault, Options: builder.Options{
			configbuilder.OptType: "range_check",
			configbuilder.OptFields: map[string]any{
				"field": "$domain.column",
				"min":   "$parameter.min.value",
				"max":   "$parameter.max.value",
			},
		}}},
	}, reg)
	require.NoError(t, err)
	return r
}

func TestRun_RangeCheck(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := testclock.NewClock(start)
	e := New(fixedBackend(clk), WithClock(clk), WithRunID(func() string { return "run-42" }))

	res := e.Run(context.Background(), []*rule.Rule{rangeRule(t, "ranges", nil)}, amountBatch())

	assert.Equal(t, result.StatusSucceeded, res.Status)
	assert.Equal(t, []*configuration.Configuration{{
		Type:   "range_check",
		Fields: map[string]any{"field": "amount", "min": 1, "max": 100},
	}}, res.Configurations)

	assert.Equal(t, "run-42", res.RunID)
	assert.Equal(t, start, res.StartedAt)
	assert.Equal(t, result.Duration(2*time.Second), res.Duration)
	assert.Equal(t, []string{"orders-2025-01"}, res.Citation.BatchIDs)
	assert.Equal(t, []string{"ranges"}, res.Citation.Rules)
	require.Len(t, res.Citation.ProfilerConfig, 1)
	assert.Equal(t, "ranges", res.Citation.ProfilerConfig[0].Name)
	assert.Equal(t, "column", res.Citation.ProfilerConfig[0].DomainBuilder.Type)

	rep, ok := res.Rule("ranges")
	require.True(t, ok)
	assert.Equal(t, rule.Done, rep.State)
	assert.Equal(t, result.Duration(0), rep.DomainBuilderDuration)
	assert.Equal(t, result.Duration(2*time.Second), rep.Duration)

	metrics := res.MetricsByDomain[`ranges/column{"column":"amount"}`]
	assert.Equal(t, 1, metrics["min"].Value)
	assert.Equal(t, 100, metrics["max"].Value)
}

func TestRun_FailedRuleDoesNotStopRun(t *testing.T) {
	rules := []*rule.Rule{
		rangeRule(t, "broken", builder.Options{domainbuilder.OptIncludeColumnNames: []any{"missing"}}),
		rangeRule(t, "ranges", nil),
	}

	res := New(fixedBackend(nil)).Run(context.Background(), rules, amountBatch())

	assert.Equal(t, result.StatusPartiallyFailed, res.Status)
	assert.Len(t, res.Configurations, 1)
	require.Len(t, res.Rules, 2)
	assert.Equal(t, rule.Failed, res.Rules[0].State)
	assert.Contains(t, res.Rules[0].Error, "missing")
	assert.Equal(t, rule.Done, res.Rules[1].State)
	assert.NotEmpty(t, res.RunID)
}

func TestRun_DeduplicatesAcrossRules(t *testing.T) {
	rules := []*rule.Rule{rangeRule(t, "first", nil), rangeRule(t, "second", nil)}

	res := New(fixedBackend(nil)).Run(context.Background(), rules, amountBatch())

	assert.Len(t, res.Configurations, 1)
	assert.Len(t, res.Citation.Origins, 2)
	assert.Empty(t, res.Conflicts)
}

func TestRun_Cancellation(t *testing.T) {
	// --- Arrange ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	backend := metric.BackendFunc(func(context.Context, batch.Batch, metric.Request) (any, map[string]any, error) {
		calls++
		cancel()
		return calls, nil, nil
	})
	rules := []*rule.Rule{rangeRule(t, "first", nil), rangeRule(t, "second", nil)}

	// --- Act ---
	res := New(backend).Run(ctx, rules, amountBatch())

	// --- Assert ---
	assert.Equal(t, result.StatusCancelled, res.Status)
	require.Len(t, res.Rules, 1, "rules after cancellation are not started")
	assert.Equal(t, "first", res.Rules[0].Name)
	assert.Empty(t, res.Rules[0].FailedDomains)
	assert.Equal(t, []string{"first"}, res.Citation.Rules)
	require.Len(t, res.Citation.ProfilerConfig, 2, "every rule given to the run is cited")
	assert.Equal(t, "second", res.Citation.ProfilerConfig[1].Name)

	// The domain in flight finished and its configuration is kept.
	require.Len(t, res.Configurations, 1)
	assert.Equal(t, map[string]any{"field": "amount", "min": 1, "max": 2}, res.Configurations[0].Fields)
	assert.Equal(t, 2, calls)
}

func TestRun_CancellationKeepsCompletedDomains(t *testing.T) {
	// --- Arrange ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	backend := metric.BackendFunc(func(_ context.Context, _ batch.Batch, req metric.Request) (any, map[string]any, error) {
		if req.DomainKwargs["column"] == "b" {
			cancel()
		}
		if req.Metric == "column.min" {
			return 1, nil, nil
		}
		return 100, nil, nil
	})
	cols := []batch.Column{{Name: "a", Type: batch.Numeric}, {Name: "b", Type: batch.Numeric}, {Name: "c", Type: batch.Numeric}}
	batches := []batch.Batch{memdata.NewBatch("b1", cols, nil)}

	// --- Act ---
	res := New(backend, WithConcurrency(1)).Run(ctx, []*rule.Rule{rangeRule(t, "ranges", nil)}, batches)

	// --- Assert ---
	assert.Equal(t, result.StatusCancelled, res.Status)
	require.Len(t, res.Configurations, 2)
	assert.Equal(t, "a", res.Configurations[0].Fields["field"])
	assert.Equal(t, "b", res.Configurations[1].Fields["field"])

	rep, ok := res.Rule("ranges")
	require.True(t, ok)
	assert.True(t, rep.Cancelled)
	assert.Empty(t, rep.FailedDomains)
	assert.Equal(t, []string{`ranges/column{"column":"c"}`}, rep.NotRunDomains)
	assert.Contains(t, res.MetricsByDomain, `ranges/column{"column":"a"}`)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(fixedBackend(nil)).Run(ctx, []*rule.Rule{rangeRule(t, "first", nil)}, amountBatch())

	assert.Equal(t, result.StatusCancelled, res.Status)
	assert.Empty(t, res.Rules)
	assert.Empty(t, res.Configurations)
}

func TestRun_VariableOverrides(t *testing.T) {
	r, err := rule.New(rule.Config{
		Name:          "limits",
		Variables:     map[string]any{"limit": 10},
		DomainBuilder: builder.Spec{Type: "table"},
		ConfigurationBuilders: []builder.Spec{{Type: configbuilder.TypeDefault, Options: builder.Options{
			configbuilder.OptType:   "row_limit",
			configbuilder.OptFields: map[string]any{"limit": "$variables.limit"},
		}}},
	}, reg)
	require.NoError(t, err)

	res := New(nil, WithVariables(map[string]any{"limit": 25}), WithConcurrency(4)).Run(context.Background(), []*rule.Rule{r}, amountBatch())

	require.Len(t, res.Configurations, 1)
	assert.Equal(t, 25, res.Configurations[0].Fields["limit"])
}

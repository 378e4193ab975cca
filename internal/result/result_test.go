package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/profilegrid/internal/builder"
	"github.com/specialistvlad/profilegrid/internal/configuration"
	"github.com/specialistvlad/profilegrid/internal/domain"
	"github.com/specialistvlad/profilegrid/internal/expr"
	"github.com/specialistvlad/profilegrid/internal/paramstore"
	"github.com/specialistvlad/profilegrid/internal/rule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func evaluation(name string, outcomes ...rule.DomainOutcome) *rule.Evaluation {
	for i := range outcomes {
		outcomes[i].Domain = outcomes[i].Domain.WithRuleName(name)
	}
	return &rule.Evaluation{
		Rule:                  name,
		State:                 rule.Done,
		Domains:               outcomes,
		DomainBuilderDuration: 2 * time.Millisecond,
		Duration:              5 * time.Millisecond,
	}
}

func rangeCheck(field string, lo, hi int, meta map[string]any) *configuration.Configuration {
	return configuration.New("range_check", map[string]any{"field": field, "min": lo, "max": hi}, meta)
}

func TestMerge_DeduplicatesIgnoringMeta(t *testing.T) {
	r := New("run-1", time.Unix(0, 0), []string{"b1"})

	r.Merge(evaluation("first", rule.DomainOutcome{
		Domain:         domain.Column("amount", nil),
		Configurations: []*configuration.Configuration{rangeCheck("amount", 1, 100, map[string]any{"note": "a"})},
	}))
	r.Merge(evaluation("second", rule.DomainOutcome{
		Domain: domain.Column("amount", nil),
		Configurations: []*configuration.Configuration{
			rangeCheck("amount", 1, 100, map[string]any{"note": "b"}),
			rangeCheck("amount", 0, 100, nil),
		},
	}))
	r.Finish(time.Second, false)

	require.Len(t, r.Configurations, 2)
	assert.Equal(t, map[string]any{"note": "a"}, r.Configurations[0].Meta, "first meta wins")
	require.Len(t, r.Conflicts, 1)
	assert.Equal(t, Conflict{
		Configuration: 0,
		Rule:          "second",
		Domain:        `second/column{"column":"amount"}`,
		Reason:        "duplicate configuration with different meta; first meta kept",
	}, r.Conflicts[0])

	want := []Origin{
		{Configuration: 0, Rule: "first", Domain: `first/column{"column":"amount"}`},
		{Configuration: 0, Rule: "second", Domain: `second/column{"column":"amount"}`},
		{Configuration: 1, Rule: "second", Domain: `second/column{"column":"amount"}`},
	}
	if diff := cmp.Diff(want, r.Citation.Origins); diff != "" {
		t.Errorf("origins mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"first", "second"}, r.Citation.Rules)
	assert.Equal(t, StatusSucceeded, r.Status)
	assert.False(t, r.HasFailures())
}

func TestMerge_RecordsFailuresAndMetrics(t *testing.T) {
	r := New("run-2", time.Unix(0, 0), []string{"b1", "b2"})
	r.Merge(evaluation("ranges",
		rule.DomainOutcome{
			Domain:         domain.Column("x", nil),
			Parameters:     map[string]paramstore.Node{"min": {Value: 1}},
			Configurations: []*configuration.Configuration{rangeCheck("x", 1, 2, nil)},
		},
		rule.DomainOutcome{
			Domain: domain.Column("z", nil),
			Err:    errors.New("backend unavailable"),
		},
		rule.DomainOutcome{Domain: domain.Column("y", nil), Skipped: 1},
	))
	r.Finish(time.Second, false)

	assert.Equal(t, StatusPartiallyFailed, r.Status)
	assert.True(t, r.HasFailures())
	rep, ok := r.Rule("ranges")
	require.True(t, ok)
	assert.Equal(t, 3, rep.Domains)
	assert.Equal(t, 1, rep.Configurations)
	assert.Equal(t, 1, rep.SkippedConfigurations)
	assert.Equal(t, []DomainFailure{{Domain: `ranges/column{"column":"z"}`, Error: "backend unavailable"}}, rep.FailedDomains)
	assert.Equal(t, map[string]paramstore.Node{"min": {Value: 1}}, r.MetricsByDomain[`ranges/column{"column":"x"}`])
	assert.NotContains(t, r.MetricsByDomain, `ranges/column{"column":"z"}`)

	_, ok = r.Rule("missing")
	assert.False(t, ok)
}

func TestFinish_Status(t *testing.T) {
	failed := &rule.Evaluation{Rule: "broken", State: rule.Failed, Err: errors.New("no domains")}
	cancelled := &rule.Evaluation{Rule: "stopped", State: rule.Failed, Cancelled: true}

	testCases := []struct {
		name      string
		evs       []*rule.Evaluation
		cancelled bool
		want      Status
	}{
		{"no rules", nil, false, StatusSucceeded},
		{"all failed", []*rule.Evaluation{failed}, false, StatusFailed},
		{"some failed", []*rule.Evaluation{failed, evaluation("ok")}, false, StatusPartiallyFailed},
		{"rule cancelled", []*rule.Evaluation{evaluation("ok"), cancelled}, false, StatusCancelled},
		{"run cancelled", []*rule.Evaluation{evaluation("ok")}, true, StatusCancelled},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := New("run", time.Unix(0, 0), nil)
			for _, ev := range tc.evs {
				r.Merge(ev)
			}
			r.Finish(0, tc.cancelled)
			assert.Equal(t, tc.want, r.Status)
		})
	}
}

func TestMerge_Concurrent(t *testing.T) {
	r := New("run", time.Unix(0, 0), nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Merge(evaluation("same", rule.DomainOutcome{
				Domain:         domain.Column("amount", nil),
				Configurations: []*configuration.Configuration{rangeCheck("amount", 1, 100, nil)},
			}))
		}()
	}
	wg.Wait()
	r.Finish(0, false)

	assert.Len(t, r.Configurations, 1)
	assert.Len(t, r.Rules, 20)
	assert.Len(t, r.Citation.Origins, 20)
	assert.Empty(t, r.Conflicts)
}

func TestWriter(t *testing.T) {
	r := New("run-3", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), []string{"b1"})
	r.Cite(rule.Config{
		Name:          "ranges",
		DomainBuilder: builder.Spec{Type: "column", Options: builder.Options{"include_column_names": expr.MustCompile([]any{"amount"})}},
		ParameterBuilders: []builder.Spec{
			{Type: "expression", Name: "spread", Options: builder.Options{"expression": expr.MustCompile("$parameter.max.value")}},
		},
	})
	r.Merge(evaluation("ranges", rule.DomainOutcome{
		Domain:         domain.Column("amount", nil),
		Configurations: []*configuration.Configuration{rangeCheck("amount", 1, 100, nil)},
	}))
	r.Finish(1500*time.Millisecond, false)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewWriter(FormatJSON).Write(&buf, r))

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "run-3", decoded["run_id"])
		assert.Equal(t, "succeeded", decoded["status"])
		assert.Equal(t, "1.5s", decoded["duration"])
		cfgs := decoded["configurations"].([]any)
		require.Len(t, cfgs, 1)
		assert.Equal(t, map[string]any{"field": "amount", "min": float64(1), "max": float64(100)}, cfgs[0].(map[string]any)["fields"])
		rules := decoded["rules"].([]any)
		assert.Equal(t, "done", rules[0].(map[string]any)["state"])

		citation := decoded["citation"].(map[string]any)
		profilerConfig := citation["profiler_config"].([]any)
		require.Len(t, profilerConfig, 1)
		ranges := profilerConfig[0].(map[string]any)
		assert.Equal(t, "ranges", ranges["name"])
		assert.Equal(t, map[string]any{
			"type":    "column",
			"options": map[string]any{"include_column_names": []any{"amount"}},
		}, ranges["domain_builder"])
		assert.Equal(t, []any{map[string]any{
			"type":    "expression",
			"name":    "spread",
			"options": map[string]any{"expression": "$parameter.max.value"},
		}}, ranges["parameter_builders"])
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewWriter(FormatYAML).Write(&buf, r))

		var decoded map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "succeeded", decoded["status"])
		citation := decoded["citation"].(map[string]any)
		assert.Equal(t, []any{"b1"}, citation["batch_ids"])
		profilerConfig := citation["profiler_config"].([]any)
		require.Len(t, profilerConfig, 1)
		domainBuilder := profilerConfig[0].(map[string]any)["domain_builder"].(map[string]any)
		assert.Equal(t, map[string]any{"include_column_names": []any{"amount"}}, domainBuilder["options"])
		assert.Contains(t, buf.String(), "state: done")
	})

	t.Run("formats", func(t *testing.T) {
		f, err := ParseFormat("yml")
		require.NoError(t, err)
		assert.Equal(t, FormatYAML, f)
		_, err = ParseFormat("xml")
		assert.Error(t, err)
		assert.Error(t, NewWriter("xml").Write(&bytes.Buffer{}, r))
	})
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package result accumulates rule evaluations into the single record a
// profiler run produces.
//
// Merge is the only mutation point and is safe to call from several
// goroutines. Everything else on Result is read after the run finishes.
package result

import (
	"slices"
	"sync"
	"time"

	"github.com/specialistvlad/profilegrid/internal/configuration"
	"github.com/specialistvlad/profilegrid/internal/paramstore"
	"github.com/specialistvlad/profilegrid/internal/rule"
)

// Status summarises how a run ended.
type Status string

const (
	// StatusSucceeded means every rule finished and no domain failed.
	StatusSucceeded Status = "succeeded"
	// StatusPartiallyFailed means at least one rule or domain failed.
	StatusPartiallyFailed Status = "partially_failed"
	// StatusFailed means every rule failed.
	StatusFailed Status = "failed"
	// StatusCancelled means the run stopped early.
	StatusCancelled Status = "cancelled"
)

// Duration renders as a Go duration string in JSON and YAML.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// DomainFailure names a failed domain and its cause.
type DomainFailure struct {
	Domain string `json:"domain" yaml:"domain"`
	Error  string `json:"error" yaml:"error"`
}

// RuleReport is the per-rule section of a Result.
type RuleReport struct {
	Name                  string          `json:"name" yaml:"name"`
	State                 rule.State      `json:"state" yaml:"state"`
	Error                 string          `json:"error,omitempty" yaml:"error,omitempty"`
	Cancelled             bool            `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	Domains               int             `json:"domains" yaml:"domains"`
	FailedDomains         []DomainFailure `json:"failed_domains,omitempty" yaml:"failed_domains,omitempty"`
	NotRunDomains         []string        `json:"not_run_domains,omitempty" yaml:"not_run_domains,omitempty"`
	Configurations        int             `json:"configurations" yaml:"configurations"`
	SkippedConfigurations int             `json:"skipped_configurations" yaml:"skipped_configurations"`
	DomainBuilderDuration Duration        `json:"domain_builder_duration" yaml:"domain_builder_duration"`
	Duration              Duration        `json:"duration" yaml:"duration"`
}

// Origin records which rule and domain emitted a configuration.
type Origin struct {
	Configuration int    `json:"configuration" yaml:"configuration"`
	Rule          string `json:"rule" yaml:"rule"`
	Domain        string `json:"domain" yaml:"domain"`
}

// Citation is the provenance of a run.
type Citation struct {
	RunID    string   `json:"run_id" yaml:"run_id"`
	BatchIDs []string `json:"batch_ids" yaml:"batch_ids"`
	Rules    []string `json:"rules" yaml:"rules"`
	Origins  []Origin `json:"origins,omitempty" yaml:"origins,omitempty"`

	// ProfilerConfig holds the definitions of the rules the run was given.
	ProfilerConfig []rule.Config `json:"profiler_config" yaml:"profiler_config"`
}

// Conflict records a duplicate configuration whose meta differed from the
// one already kept.
type Conflict struct {
	Configuration int    `json:"configuration" yaml:"configuration"`
	Rule          string `json:"rule" yaml:"rule"`
	Domain        string `json:"domain" yaml:"domain"`
	Reason        string `json:"reason" yaml:"reason"`
}

// Result is the outcome of one profiler run.
type Result struct {
	mu sync.Mutex
	// index maps configuration keys to positions in Configurations.
	index map[string]int

	RunID           string                                `json:"run_id" yaml:"run_id"`
	StartedAt       time.Time                             `json:"started_at" yaml:"started_at"`
	Duration        Duration                              `json:"duration" yaml:"duration"`
	Status          Status                                `json:"status" yaml:"status"`
	Configurations  []*configuration.Configuration        `json:"configurations" yaml:"configurations"`
	MetricsByDomain map[string]map[string]paramstore.Node `json:"metrics_by_domain" yaml:"metrics_by_domain"`
	Rules           []RuleReport                          `json:"rules" yaml:"rules"`
	Citation        Citation                              `json:"citation" yaml:"citation"`
	Conflicts       []Conflict                            `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
}

// New starts an empty result for a run over the given batches.
func New(runID string, startedAt time.Time, batchIDs []string) *Result {
	return &Result{
		index:           map[string]int{},
		RunID:           runID,
		StartedAt:       startedAt,
		Configurations:  []*configuration.Configuration{},
		MetricsByDomain: map[string]map[string]paramstore.Node{},
		Citation: Citation{
			RunID:    runID,
			BatchIDs: slices.Clone(batchIDs),
			Rules:    []string{},

			ProfilerConfig: []rule.Config{},
		},
	}
}

// Cite records the definitions of the rules taking part in the run.
func (r *Result) Cite(configs ...rule.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Citation.ProfilerConfig = append(r.Citation.ProfilerConfig, configs...)
}

// Merge folds one rule evaluation into the result. Configurations equal on
// type and fields are kept once; the first one's meta wins and a differing
// meta is recorded as a conflict.
func (r *Result) Merge(ev *rule.Evaluation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := RuleReport{
		Name:                  ev.Rule,
		State:                 ev.State,
		Cancelled:             ev.Cancelled,
		Domains:               len(ev.Domains),
		SkippedConfigurations: ev.Skipped(),
		DomainBuilderDuration: Duration(ev.DomainBuilderDuration),
		Duration:              Duration(ev.Duration),
	}
	if ev.Err != nil {
		report.Error = ev.Err.Error()
	}

	for _, o := range ev.Domains {
		id := o.Domain.ID()
		if len(o.Parameters) > 0 {
			r.MetricsByDomain[id] = o.Parameters
		}
		switch {
		case o.Failed():
			report.FailedDomains = append(report.FailedDomains, DomainFailure{Domain: id, Error: o.Err.Error()})
		case o.NotRun:
			report.NotRunDomains = append(report.NotRunDomains, id)
		}
	}

	for _, e := range ev.Configurations() {
		report.Configurations++
		r.add(ev.Rule, e.Domain.ID(), e.Configuration)
	}

	r.Rules = append(r.Rules, report)
	r.Citation.Rules = append(r.Citation.Rules, ev.Rule)
}

func (r *Result) add(ruleName, domainID string, cfg *configuration.Configuration) {
	key := cfg.Key()
	pos, seen := r.index[key]
	if !seen {
		pos = len(r.Configurations)
		r.index[key] = pos
		r.Configurations = append(r.Configurations, cfg)
	} else if !metaEqual(r.Configurations[pos].Meta, cfg.Meta) {
		r.Conflicts = append(r.Conflicts, Conflict{
			Configuration: pos,
			Rule:          ruleName,
			Domain:        domainID,
			Reason:        "duplicate configuration with different meta; first meta kept",
		})
	}
	r.Citation.Origins = append(r.Citation.Origins, Origin{Configuration: pos, Rule: ruleName, Domain: domainID})
}

func metaEqual(a, b map[string]any) bool {
	return configuration.New("", a, nil).Key() == configuration.New("", b, nil).Key()
}

// Finish stamps the run duration and derives the overall status.
func (r *Result) Finish(d time.Duration, cancelled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Duration = Duration(d)
	r.Status = r.status(cancelled)
}

func (r *Result) status(cancelled bool) Status {
	failedRules, failedDomains := 0, 0
	for _, rep := range r.Rules {
		if rep.Cancelled {
			cancelled = true
		}
		if rep.State == rule.Failed {
			failedRules++
		}
		failedDomains += len(rep.FailedDomains)
	}
	switch {
	case cancelled:
		return StatusCancelled
	case len(r.Rules) > 0 && failedRules == len(r.Rules):
		return StatusFailed
	case failedRules > 0 || failedDomains > 0:
		return StatusPartiallyFailed
	default:
		return StatusSucceeded
	}
}

// HasFailures reports whether any rule or domain failed, or the run was
// cancelled.
func (r *Result) HasFailures() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Status != StatusSucceeded
}

// Rule returns the report of the named rule.
func (r *Result) Rule(name string) (RuleReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.Rules {
		if rep.Name == name {
			return rep, true
		}
	}
	return RuleReport{}, false
}

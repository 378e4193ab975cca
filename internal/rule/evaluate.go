// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package rule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/juju/clock"
	"github.com/specialistvlad/profilegrid/internal/batch"
	"github.com/specialistvlad/profilegrid/internal/builder"
	"github.com/specialistvlad/profilegrid/internal/configuration"
	"github.com/specialistvlad/profilegrid/internal/ctxlog"
	"github.com/specialistvlad/profilegrid/internal/domain"
	"github.com/specialistvlad/profilegrid/internal/fqpn"
	"github.com/specialistvlad/profilegrid/internal/metric"
	"github.com/specialistvlad/profilegrid/internal/paramstore"
	"golang.org/x/sync/errgroup"
)

// Input carries what one evaluation needs besides the rule itself.
type Input struct {
	Batches []batch.Batch
	Backend metric.Backend
	// Variables override the rule's declared variables key by key.
	Variables map[string]any
	// Concurrency bounds how many domains are evaluated at once. Values
	// below one mean sequential evaluation.
	Concurrency int
	// Clock measures durations. Defaults to the wall clock.
	Clock clock.Clock
}

// DomainOutcome is the result of evaluating one domain.
type DomainOutcome struct {
	Domain         domain.Domain
	Parameters     map[string]paramstore.Node
	Configurations []*configuration.Configuration
	// Skipped counts configuration builders that declined the domain.
	Skipped int
	// Err is set when the domain failed; its configurations are discarded.
	Err error
	// NotRun is set when cancellation stopped the domain before it started.
	NotRun bool
}

// Failed reports whether the domain failed.
func (o *DomainOutcome) Failed() bool { return o.Err != nil }

// Evaluation is the record of one rule evaluation.
type Evaluation struct {
	Rule      string
	State     State
	Err       error
	Cancelled bool
	Domains   []DomainOutcome

	DomainBuilderDuration time.Duration
	Duration              time.Duration
}

// Emitted pairs a configuration with the domain that produced it.
type Emitted struct {
	Domain        domain.Domain
	Configuration *configuration.Configuration
}

// Configurations returns every emitted configuration in domain order.
func (e *Evaluation) Configurations() []Emitted {
	var out []Emitted
	for _, o := range e.Domains {
		for _, c := range o.Configurations {
			out = append(out, Emitted{Domain: o.Domain, Configuration: c})
		}
	}
	return out
}

// Failures returns the outcomes of the domains that failed.
func (e *Evaluation) Failures() []DomainOutcome {
	var out []DomainOutcome
	for _, o := range e.Domains {
		if o.Failed() {
			out = append(out, o)
		}
	}
	return out
}

// Skipped returns the number of configuration builders that declined a domain.
func (e *Evaluation) Skipped() int {
	n := 0
	for _, o := range e.Domains {
		n += o.Skipped
	}
	return n
}

func (e *Evaluation) transition(logger *slog.Logger, to State) {
	logger.Debug("Rule state changed.", "from", e.State, "to", to)
	e.State = to
}

// Evaluate runs the rule over the batches. It never returns an error: every
// failure is recorded on the Evaluation, either on the failing domain or, when
// the rule as a whole cannot proceed, as Err with State Failed.
func (r *Rule) Evaluate(ctx context.Context, in Input) *Evaluation {
	clk := in.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	logger := ctxlog.FromContext(ctx).With("rule", r.name)
	ctx = ctxlog.WithLogger(ctx, logger)

	ev := &Evaluation{Rule: r.name, State: NotStarted}
	start := clk.Now()
	defer func() { ev.Duration = clk.Now().Sub(start) }()

	fail := func(err error) *Evaluation {
		ev.transition(logger, Failed)
		ev.Err = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			ev.Cancelled = true
			logger.Info("Rule cancelled.", "configurations", len(ev.Configurations()), "error", err)
			return ev
		}
		logger.Error("Rule failed.", "state", ev.State, "error", err)
		return ev
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	logger.Debug("Building domains.", "builder", r.domainBuilder.Type(), "batches", len(in.Batches))
	domains, err := r.domainBuilder.Build(ctx, in.Batches)
	ev.DomainBuilderDuration = clk.Now().Sub(start)
	if err != nil {
		return fail(err)
	}
	seen := make(map[string]struct{}, len(domains))
	for i, d := range domains {
		if _, dup := seen[d.Key()]; dup {
			return fail(fmt.Errorf("domain builder %q emitted duplicate domain %s", r.domainBuilder.Type(), d))
		}
		seen[d.Key()] = struct{}{}
		domains[i] = d.WithRuleName(r.name)
	}
	ev.Domains = make([]DomainOutcome, len(domains))
	for i, d := range domains {
		ev.Domains[i].Domain = d
	}
	ev.transition(logger, DomainsBuilt)
	logger.Debug("Domains built.", "count", len(domains), "duration", ev.DomainBuilderDuration)

	vars := r.Variables()
	maps.Copy(vars, in.Variables)
	store := paramstore.New(vars)

	// A domain that has started runs to completion even when ctx is
	// cancelled; cancellation takes effect at the next domain boundary.
	domainCtx := context.WithoutCancel(ctx)
	if err := r.forEachDomain(ctx, ev, in.Concurrency, func(o *DomainOutcome) {
		r.resolveParameters(domainCtx, store, in, o)
		if o.Failed() {
			return
		}
		r.emitConfigurations(domainCtx, store, o)
	}); err != nil {
		return fail(err)
	}
	ev.transition(logger, ParametersResolved)
	ev.transition(logger, ConfigurationsEmitted)
	ev.transition(logger, Done)
	logger.Debug("Rule done.",
		"domains", len(ev.Domains),
		"failed_domains", len(ev.Failures()),
		"configurations", len(ev.Configurations()),
		"skipped", ev.Skipped())
	return ev
}

// forEachDomain runs fn for every domain outcome with bounded parallelism.
// Each call only touches its own outcome and its own store partition.
// Cancellation is checked at every domain boundary: domains that have not
// started are marked NotRun, finished ones keep their outcome.
func (r *Rule) forEachDomain(ctx context.Context, ev *Evaluation, concurrency int, fn func(o *DomainOutcome)) error {
	if concurrency < 1 {
		concurrency = 1
	}
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i := range ev.Domains {
		o := &ev.Domains[i]
		if ctx.Err() != nil {
			o.NotRun = true
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				o.NotRun = true
				return nil
			}
			fn(o)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range ev.Domains {
		if o.NotRun {
			return ctx.Err()
		}
	}
	return nil
}

func (r *Rule) resolveParameters(ctx context.Context, store *paramstore.Store, in Input, o *DomainOutcome) {
	logger := ctxlog.FromContext(ctx).With("domain", o.Domain.String())
	scope := store.Scope(o.Domain)
	defer func() { o.Parameters = store.Snapshot(o.Domain) }()

	for _, pb := range r.plan {
		logger.Debug("Running parameter builder.", "parameter", pb.Name(), "type", pb.Type())
		node, err := pb.Build(ctx, builder.ParameterInput{
			Domain:  o.Domain,
			Scope:   scope,
			Batches: in.Batches,
			Backend: in.Backend,
		})
		if err == nil {
			err = store.Put(o.Domain, fqpn.Parameter(pb.Name()), node.Value, node.Details)
		}
		if err != nil {
			o.Err = fmt.Errorf("parameter builder %q: %w", pb.Name(), err)
			logger.Warn("Domain failed.", "parameter", pb.Name(), "error", err)
			return
		}
	}
}

func (r *Rule) emitConfigurations(ctx context.Context, store *paramstore.Store, o *DomainOutcome) {
	logger := ctxlog.FromContext(ctx).With("domain", o.Domain.String())
	scope := store.Scope(o.Domain)

	var emitted []*configuration.Configuration
	for i, cb := range r.configBuilders {
		cfg, err := cb.Build(ctx, o.Domain, scope)
		if err != nil {
			o.Err = fmt.Errorf("configuration builder[%d] %q: %w", i, cb.Type(), err)
			logger.Warn("Domain failed.", "configuration_builder", cb.Type(), "error", err)
			return
		}
		if cfg == nil {
			o.Skipped++
			continue
		}
		emitted = append(emitted, cfg)
	}
	o.Configurations = emitted
}

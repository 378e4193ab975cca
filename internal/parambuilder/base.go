// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package parambuilder implements the built-in parameter builders:
// metric_single_batch, metric_multi_batch and expression.
package parambuilder

import (
	"slices"

	"github.com/specialistvlad/profilegrid/internal/builder"
	"github.com/specialistvlad/profilegrid/internal/expr"
	"github.com/specialistvlad/profilegrid/internal/fqpn"
	"github.com/specialistvlad/profilegrid/internal/registry"
)

// OptDependsOn lists parameter builders that must run first.
const OptDependsOn = "depends_on"

// Module registers the built-in parameter builders.
type Module struct{}

// Register implements registry.Module.
func (Module) Register(r *registry.Registry) {
	r.RegisterParameterBuilder(TypeMetricSingleBatch, NewSingleBatch)
	r.RegisterParameterBuilder(TypeMetricMultiBatch, NewMultiBatch)
	r.RegisterParameterBuilder(TypeExpression, NewExpression)
}

// base carries what every parameter builder shares.
type base struct {
	name      string
	typ       string
	dependsOn []string
	refs      []fqpn.Name
}

func newBase(name, typ string, opts builder.Options, templates ...*expr.Template) (base, error) {
	deps, _, err := opts.StringSlice(OptDependsOn)
	if err != nil {
		return base{}, err
	}
	b := base{name: name, typ: typ, dependsOn: deps}
	for _, t := range templates {
		if t == nil {
			continue
		}
		for _, ref := range t.References() {
			if !slices.ContainsFunc(b.refs, ref.Equal) {
				b.refs = append(b.refs, ref)
			}
		}
	}
	return b, nil
}

// Name implements builder.ParameterBuilder.
func (b base) Name() string { return b.name }

// Type implements builder.ParameterBuilder.
func (b base) Type() string { return b.typ }

// DependsOn implements builder.ParameterBuilder.
func (b base) DependsOn() []string { return slices.Clone(b.dependsOn) }

// References implements builder.ParameterBuilder.
func (b base) References() []fqpn.Name { return slices.Clone(b.refs) }

// spec renders the effective options shared by every builder.
func (b base) spec(opts builder.Options) builder.Spec {
	if len(b.dependsOn) > 0 {
		deps := slices.Clone(b.dependsOn)
		slices.Sort(deps)
		opts[OptDependsOn] = deps
	}
	return builder.Spec{Type: b.typ, Name: b.name, Options: opts}
}

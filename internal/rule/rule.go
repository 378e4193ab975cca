// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package rule binds one domain builder, an ordered set of parameter
// builders and the configuration builders into a unit the orchestrator
// evaluates.
//
// Construction does all static validation: builder types, template syntax,
// parameter references and dependency cycles. A Rule that was constructed
// successfully can only fail at evaluation time because of data: missing
// domains, backend failures, or values that do not resolve.
package rule

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/specialistvlad/profilegrid/internal/builder"
	"github.com/specialistvlad/profilegrid/internal/dag"
	"github.com/specialistvlad/profilegrid/internal/errdefs"
	"github.com/specialistvlad/profilegrid/internal/fqpn"
	"github.com/specialistvlad/profilegrid/internal/registry"
)

// Config is the format-agnostic definition of a rule.
type Config struct {
	Name                  string         `json:"name" yaml:"name"`
	Variables             map[string]any `json:"variables,omitempty" yaml:"variables,omitempty"`
	DomainBuilder         builder.Spec   `json:"domain_builder" yaml:"domain_builder"`
	ParameterBuilders     []builder.Spec `json:"parameter_builders,omitempty" yaml:"parameter_builders,omitempty"`
	ConfigurationBuilders []builder.Spec `json:"configuration_builders,omitempty" yaml:"configuration_builders,omitempty"`
}

// Rule is immutable after construction and safe to evaluate concurrently.
type Rule struct {
	name           string
	config         Config
	variables      map[string]any
	domainBuilder  builder.DomainBuilder
	plan           []builder.ParameterBuilder
	configBuilders []builder.ConfigurationBuilder
	graph          *dag.Graph
}

// New validates cfg and builds the rule. Every failure is a
// *errdefs.ConfigurationError.
func New(cfg Config, reg *registry.Registry) (*Rule, error) {
	if cfg.Name == "" {
		return nil, errdefs.NewConfigurationError("", "rule", fmt.Errorf("rule needs a name"))
	}
	confErr := func(component string, err error) error {
		return errdefs.NewConfigurationError(cfg.Name, component, err)
	}

	r := &Rule{name: cfg.Name, config: cfg, variables: maps.Clone(cfg.Variables), graph: dag.New()}
	if r.variables == nil {
		r.variables = map[string]any{}
	}

	db, err := reg.NewDomainBuilder(cfg.DomainBuilder)
	if err != nil {
		return nil, confErr("domain_builder "+cfg.DomainBuilder.String(), err)
	}
	r.domainBuilder = db

	// Parameter builders in declaration order, validation re-declarations
	// appended after them.
	var params []builder.ParameterBuilder
	byName := map[string]int{}
	for _, spec := range cfg.ParameterBuilders {
		if _, dup := byName[spec.Name]; dup {
			return nil, confErr("parameter_builder "+spec.String(), fmt.Errorf("duplicate parameter builder name %q", spec.Name))
		}
		pb, err := reg.NewParameterBuilder(spec)
		if err != nil {
			return nil, confErr("parameter_builder "+spec.String(), err)
		}
		byName[spec.Name] = len(params)
		params = append(params, pb)
	}

	for i, spec := range cfg.ConfigurationBuilders {
		component := fmt.Sprintf("configuration_builder[%d] %s", i, spec.String())
		cb, err := reg.NewConfigurationBuilder(spec)
		if err != nil {
			return nil, confErr(component, err)
		}
		for _, vspec := range cb.ValidationParameterBuilders() {
			pb, err := reg.NewParameterBuilder(vspec)
			if err != nil {
				return nil, confErr(component, err)
			}
			if idx, exists := byName[vspec.Name]; exists {
				if params[idx].Spec().Canonical() != pb.Spec().Canonical() {
					return nil, confErr(component, fmt.Errorf(
						"validation parameter builder %q conflicts with the parameter builder of the same name", vspec.Name))
				}
				continue
			}
			byName[vspec.Name] = len(params)
			params = append(params, pb)
		}
		r.configBuilders = append(r.configBuilders, cb)
	}

	if err := r.wireDependencies(params, byName); err != nil {
		return nil, confErr("dependencies", err)
	}
	return r, nil
}

// wireDependencies records every dependency as a graph edge, rejects
// unknown references and cycles, and fixes the evaluation plan.
func (r *Rule) wireDependencies(params []builder.ParameterBuilder, byName map[string]int) error {
	for _, p := range params {
		r.graph.AddNode(parameterNode(p.Name()))
	}

	for _, p := range params {
		consumer := fmt.Sprintf("parameter builder %q", p.Name())
		deps := p.DependsOn()
		for _, ref := range p.References() {
			if name := ref.ParameterName(); name != "" && !slices.Contains(deps, name) {
				deps = append(deps, name)
			}
		}
		for _, dep := range deps {
			if _, ok := byName[dep]; !ok {
				return &errdefs.UnknownParameterError{Reference: fqpn.Parameter(dep).String(), Consumer: consumer}
			}
			if err := r.graph.AddEdge(parameterNode(dep), parameterNode(p.Name())); err != nil {
				return err
			}
		}
	}

	for i, cb := range r.configBuilders {
		node := configurationNode(i)
		r.graph.AddNode(node)
		consumer := fmt.Sprintf("configuration builder %q", cb.Type())
		deps := make([]string, 0)
		for _, spec := range cb.ValidationParameterBuilders() {
			deps = append(deps, spec.Name)
		}
		for _, ref := range cb.References() {
			if name := ref.ParameterName(); name != "" && !slices.Contains(deps, name) {
				deps = append(deps, name)
			}
		}
		for _, dep := range deps {
			if _, ok := byName[dep]; !ok {
				return &errdefs.UnknownParameterError{Reference: fqpn.Parameter(dep).String(), Consumer: consumer}
			}
			if err := r.graph.AddEdge(parameterNode(dep), node); err != nil {
				return err
			}
		}
	}

	order, err := r.graph.TopologicalOrder()
	if err != nil {
		return err
	}
	for _, id := range order {
		name, ok := parameterName(id)
		if !ok {
			continue
		}
		r.plan = append(r.plan, params[byName[name]])
	}
	return nil
}

const (
	parameterNodePrefix     = "parameter."
	configurationNodePrefix = "configuration_builder."
)

func parameterNode(name string) string { return parameterNodePrefix + name }

func configurationNode(i int) string { return fmt.Sprintf("%s%d", configurationNodePrefix, i) }

func parameterName(node string) (string, bool) {
	return strings.CutPrefix(node, parameterNodePrefix)
}

// Name returns the rule name.
func (r *Rule) Name() string { return r.name }

// Variables returns a copy of the declared variables.
func (r *Rule) Variables() map[string]any { return maps.Clone(r.variables) }

// Config returns the definition the rule was built from.
func (r *Rule) Config() Config { return r.config }

// Plan returns the parameter builder names in evaluation order.
func (r *Rule) Plan() []string {
	names := make([]string, 0, len(r.plan))
	for _, pb := range r.plan {
		names = append(names, pb.Name())
	}
	return names
}

// Dependencies returns the parameter builders the named one depends on.
func (r *Rule) Dependencies(parameter string) ([]string, error) {
	nodes, err := r.graph.Dependencies(parameterNode(parameter))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if name, ok := parameterName(n); ok {
			out = append(out, name)
		}
	}
	return out, nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package registry

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/specialistvlad/profilegrid/internal/builder"
	"github.com/specialistvlad/profilegrid/internal/errdefs"
)

// Stage names used in error messages.
const (
	StageDomain        = "domain"
	StageParameter     = "parameter"
	StageConfiguration = "configuration"
)

// Module is the interface that all builder modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the builder factories for a single application instance.
type Registry struct {
	domainBuilders        map[string]builder.DomainBuilderFactory
	parameterBuilders     map[string]builder.ParameterBuilderFactory
	configurationBuilders map[string]builder.ConfigurationBuilderFactory
}

// New creates a registry and registers the given modules.
func New(modules ...Module) *Registry {
	r := &Registry{
		domainBuilders:        make(map[string]builder.DomainBuilderFactory),
		parameterBuilders:     make(map[string]builder.ParameterBuilderFactory),
		configurationBuilders: make(map[string]builder.ConfigurationBuilderFactory),
	}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// RegisterDomainBuilder registers a domain builder factory for a type tag.
func (r *Registry) RegisterDomainBuilder(typ string, f builder.DomainBuilderFactory) {
	if _, exists := r.domainBuilders[typ]; exists {
		panic(fmt.Sprintf("domain builder with type '%s' already registered", typ))
	}
	slog.Debug("Registering domain builder.", "type", typ)
	r.domainBuilders[typ] = f
}

// RegisterParameterBuilder registers a parameter builder factory for a type tag.
func (r *Registry) RegisterParameterBuilder(typ string, f builder.ParameterBuilderFactory) {
	if _, exists := r.parameterBuilders[typ]; exists {
		panic(fmt.Sprintf("parameter builder with type '%s' already registered", typ))
	}
	slog.Debug("Registering parameter builder.", "type", typ)
	r.parameterBuilders[typ] = f
}

// RegisterConfigurationBuilder registers a configuration builder factory for a type tag.
func (r *Registry) RegisterConfigurationBuilder(typ string, f builder.ConfigurationBuilderFactory) {
	if _, exists := r.configurationBuilders[typ]; exists {
		panic(fmt.Sprintf("configuration builder with type '%s' already registered", typ))
	}
	slog.Debug("Registering configuration builder.", "type", typ)
	r.configurationBuilders[typ] = f
}

// NewDomainBuilder creates the domain builder described by spec.
func (r *Registry) NewDomainBuilder(spec builder.Spec) (builder.DomainBuilder, error) {
	f, ok := r.domainBuilders[spec.Type]
	if !ok {
		return nil, &errdefs.UnknownBuilderError{Stage: StageDomain, Type: spec.Type}
	}
	return f(spec.Options)
}

// NewParameterBuilder creates the parameter builder described by spec.
func (r *Registry) NewParameterBuilder(spec builder.Spec) (builder.ParameterBuilder, error) {
	f, ok := r.parameterBuilders[spec.Type]
	if !ok {
		return nil, &errdefs.UnknownBuilderError{Stage: StageParameter, Type: spec.Type}
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("parameter builder of type %q needs a name", spec.Type)
	}
	return f(spec.Name, spec.Options)
}

// NewConfigurationBuilder creates the configuration builder described by spec.
func (r *Registry) NewConfigurationBuilder(spec builder.Spec) (builder.ConfigurationBuilder, error) {
	f, ok := r.configurationBuilders[spec.Type]
	if !ok {
		return nil, &errdefs.UnknownBuilderError{Stage: StageConfiguration, Type: spec.Type}
	}
	return f(spec.Options)
}

// Types lists the registered type tags per stage, sorted.
func (r *Registry) Types() map[string][]string {
	return map[string][]string{
		StageDomain:        slices.Sorted(maps.Keys(r.domainBuilders)),
		StageParameter:     slices.Sorted(maps.Keys(r.parameterBuilders)),
		StageConfiguration: slices.Sorted(maps.Keys(r.configurationBuilders)),
	}
}

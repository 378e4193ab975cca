// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package builder

import (
	"context"

	"github.com/specialistvlad/profilegrid/internal/batch"
	"github.com/specialistvlad/profilegrid/internal/configuration"
	"github.com/specialistvlad/profilegrid/internal/domain"
	"github.com/specialistvlad/profilegrid/internal/expr"
	"github.com/specialistvlad/profilegrid/internal/fqpn"
	"github.com/specialistvlad/profilegrid/internal/metric"
	"github.com/specialistvlad/profilegrid/internal/paramstore"
)

// DomainBuilder yields the domains a rule is evaluated against.
type DomainBuilder interface {
	Type() string
	// Build returns domains in a stable order. An empty result is reported as
	// *errdefs.NoDomainsFoundError.
	Build(ctx context.Context, batches []batch.Batch) ([]domain.Domain, error)
}

// ParameterInput carries everything a parameter builder may read for one domain.
type ParameterInput struct {
	Domain  domain.Domain
	Scope   expr.Scope
	Batches []batch.Batch
	Backend metric.Backend
}

// ParameterBuilder computes one named parameter per domain.
type ParameterBuilder interface {
	Name() string
	Type() string
	// DependsOn lists the explicitly declared dependencies.
	DependsOn() []string
	// References lists every name read by the builder's templates.
	References() []fqpn.Name
	// Spec returns the effective declaration, defaults filled in. Two
	// builders with the same canonical Spec compute the same parameter.
	Spec() Spec
	Build(ctx context.Context, in ParameterInput) (paramstore.Node, error)
}

// ConfigurationBuilder emits at most one configuration per domain.
type ConfigurationBuilder interface {
	Type() string
	// References lists every name read by the builder's templates.
	References() []fqpn.Name
	// ValidationParameterBuilders lists the parameter builders the
	// configuration builder re-declares.
	ValidationParameterBuilders() []Spec
	// Build returns nil, nil when the builder decides to skip the domain.
	Build(ctx context.Context, d domain.Domain, scope expr.Scope) (*configuration.Configuration, error)
}

// DomainBuilderFactory creates a domain builder from its options.
type DomainBuilderFactory func(opts Options) (DomainBuilder, error)

// ParameterBuilderFactory creates a named parameter builder from its options.
type ParameterBuilderFactory func(name string, opts Options) (ParameterBuilder, error)

// ConfigurationBuilderFactory creates a configuration builder from its options.
type ConfigurationBuilderFactory func(opts Options) (ConfigurationBuilder, error)

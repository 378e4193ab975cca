// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package configbuilder implements the built-in configuration builder.
package configbuilder

import (
	"context"
	"fmt"
	"slices"

	"github.com/specialistvlad/profilegrid/internal/builder"
	"github.com/specialistvlad/profilegrid/internal/configuration"
	"github.com/specialistvlad/profilegrid/internal/ctxlog"
	"github.com/specialistvlad/profilegrid/internal/domain"
	"github.com/specialistvlad/profilegrid/internal/errdefs"
	"github.com/specialistvlad/profilegrid/internal/expr"
	"github.com/specialistvlad/profilegrid/internal/fqpn"
	"github.com/specialistvlad/profilegrid/internal/registry"
)

// TypeDefault tags the default configuration builder.
const TypeDefault = "default"

// Default builder options.
const (
	OptType                        = "type"
	OptFields                      = "fields"
	OptMeta                        = "meta"
	OptCondition                   = "condition"
	OptValidationParameterBuilders = "validation_parameter_builders"
)

// Module registers the built-in configuration builders.
type Module struct{}

// Register implements registry.Module.
func (Module) Register(r *registry.Registry) {
	r.RegisterConfigurationBuilder(TypeDefault, NewDefault)
}

// DefaultBuilder resolves a fields map (and optional meta) into one
// configuration per domain, unless its condition evaluates to false.
type DefaultBuilder struct {
	configType string
	fields     *expr.Template
	meta       *expr.Template
	condition  *expr.Template
	validation []builder.Spec
	refs       []fqpn.Name
}

// NewDefault creates a default configuration builder.
func NewDefault(opts builder.Options) (builder.ConfigurationBuilder, error) {
	if err := opts.Check(OptType, OptFields, OptMeta, OptCondition, OptValidationParameterBuilders); err != nil {
		return nil, err
	}
	b := &DefaultBuilder{}
	var err error
	if b.configType, err = opts.String(OptType, ""); err != nil {
		return nil, err
	}
	if b.configType == "" {
		return nil, fmt.Errorf("option %q is required", OptType)
	}
	if b.fields, err = opts.Template(OptFields, map[string]any{}); err != nil {
		return nil, err
	}
	if b.meta, err = opts.Template(OptMeta, nil); err != nil {
		return nil, err
	}
	if b.condition, err = opts.Expression(OptCondition); err != nil {
		return nil, err
	}
	if b.validation, err = opts.Specs(OptValidationParameterBuilders); err != nil {
		return nil, err
	}
	for _, t := range []*expr.Template{b.fields, b.meta, b.condition} {
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

// Type implements builder.ConfigurationBuilder.
func (b *DefaultBuilder) Type() string { return b.configType }

// References implements builder.ConfigurationBuilder.
func (b *DefaultBuilder) References() []fqpn.Name { return slices.Clone(b.refs) }

// ValidationParameterBuilders implements builder.ConfigurationBuilder.
func (b *DefaultBuilder) ValidationParameterBuilders() []builder.Spec {
	return slices.Clone(b.validation)
}

// Build implements builder.ConfigurationBuilder.
func (b *DefaultBuilder) Build(ctx context.Context, d domain.Domain, scope expr.Scope) (*configuration.Configuration, error) {
	logger := ctxlog.FromContext(ctx)

	if b.condition != nil {
		ok, err := b.condition.ResolveBool(scope)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Debug("Configuration skipped by condition.", "type", b.configType, "domain", d.String(), "condition", b.condition.Source())
			return nil, nil
		}
	}

	fields, err := resolveMap(b.fields, scope, OptFields)
	if err != nil {
		return nil, err
	}
	var meta map[string]any
	if b.meta != nil {
		if meta, err = resolveMap(b.meta, scope, OptMeta); err != nil {
			return nil, err
		}
	}
	return configuration.New(b.configType, fields, meta), nil
}

func resolveMap(t *expr.Template, scope expr.Scope, what string) (map[string]any, error) {
	v, err := t.Resolve(scope)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &errdefs.TemplateResolutionError{Template: t.Source(), Err: fmt.Errorf("%s must resolve to a map, got %T", what, v)}
	}
	return m, nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hclrules

import (
	"fmt"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/profilegrid/internal/builder"
	"github.com/specialistvlad/profilegrid/internal/configbuilder"
	"github.com/specialistvlad/profilegrid/internal/expr"
	"github.com/specialistvlad/profilegrid/internal/rule"
)

// translateRule converts a decoded rule block into a rule.Config. src is the
// content of the file the block came from.
func translateRule(rb *ruleBlock, src []byte) (rule.Config, error) {
	cfg := rule.Config{Name: rb.Name}

	vars, err := staticMap(rb.Variables, src)
	if err != nil {
		return cfg, fmt.Errorf("variables: %w", err)
	}
	cfg.Variables = vars

	if rb.DomainBuilder == nil {
		return cfg, fmt.Errorf("a domain_builder block is required")
	}
	opts, err := translateOptions(rb.DomainBuilder.Body, src)
	if err != nil {
		return cfg, fmt.Errorf("domain_builder %q: %w", rb.DomainBuilder.Type, err)
	}
	cfg.DomainBuilder = builder.Spec{Type: rb.DomainBuilder.Type, Options: opts}

	for _, pb := range rb.ParameterBuilders {
		spec, err := translateNamed(pb, src)
		if err != nil {
			return cfg, fmt.Errorf("parameter_builder %q %q: %w", pb.Type, pb.Name, err)
		}
		cfg.ParameterBuilders = append(cfg.ParameterBuilders, spec)
	}

	for i, cb := range rb.ConfigurationBuilders {
		opts, err := translateOptions(cb.Body, src)
		if err != nil {
			return cfg, fmt.Errorf("configuration_builder[%d] %q: %w", i, cb.Type, err)
		}
		if len(cb.Validation) > 0 {
			if opts.Has(configbuilder.OptValidationParameterBuilders) {
				return cfg, fmt.Errorf("configuration_builder[%d] %q: use either validation_parameter_builder blocks or the %s attribute",
					i, cb.Type, configbuilder.OptValidationParameterBuilders)
			}
			specs := make([]builder.Spec, 0, len(cb.Validation))
			for _, vb := range cb.Validation {
				spec, err := translateNamed(vb, src)
				if err != nil {
					return cfg, fmt.Errorf("configuration_builder[%d] validation_parameter_builder %q %q: %w", i, vb.Type, vb.Name, err)
				}
				specs = append(specs, spec)
			}
			opts[configbuilder.OptValidationParameterBuilders] = specs
		}
		cfg.ConfigurationBuilders = append(cfg.ConfigurationBuilders, builder.Spec{Type: cb.Type, Options: opts})
	}
	return cfg, nil
}

func translateNamed(b *namedBuilderBlock, src []byte) (builder.Spec, error) {
	opts, err := translateOptions(b.Body, src)
	if err != nil {
		return builder.Spec{}, err
	}
	return builder.Spec{Type: b.Type, Name: b.Name, Options: opts}, nil
}

// translateOptions compiles every attribute of body into a template. Nested
// blocks are not allowed in builder bodies.
func translateOptions(body hcl.Body, src []byte) (builder.Options, error) {
	attrs, diags := remainAttributes(body)
	if diags.HasErrors() {
		return nil, diags
	}
	opts := make(builder.Options, len(attrs))
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		t, err := expr.FromExpression(attrs[name].Expr, src)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		opts[name] = t
	}
	return opts, nil
}

// remainAttributes returns the attributes of a remain body. Blocks already
// decoded by gohcl are hidden in that body and skipped, any other block is
// reported as unsupported.
func remainAttributes(body hcl.Body) (hcl.Attributes, hcl.Diagnostics) {
	syn, ok := body.(*hclsyntax.Body)
	if !ok {
		return body.JustAttributes()
	}
	schema := &hcl.BodySchema{}
	for name := range syn.Attributes {
		schema.Attributes = append(schema.Attributes, hcl.AttributeSchema{Name: name})
	}
	content, diags := body.Content(schema)
	return content.Attributes, diags
}

// staticMap evaluates an optional attribute that must be a map without
// references.
func staticMap(e hcl.Expression, src []byte) (map[string]any, error) {
	if e == nil {
		return nil, nil
	}
	t, err := expr.FromExpression(e, src)
	if err != nil {
		return nil, err
	}
	v, static := t.Literal()
	if !static {
		return nil, fmt.Errorf("must not reference domain, variables or parameters")
	}
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("must be an object, got %T", v)
	}
	return m, nil
}

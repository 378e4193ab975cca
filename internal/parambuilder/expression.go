// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package parambuilder

import (
	"context"
	"fmt"

	"github.com/specialistvlad/profilegrid/internal/builder"
	"github.com/specialistvlad/profilegrid/internal/expr"
	"github.com/specialistvlad/profilegrid/internal/paramstore"
)

// TypeExpression tags the expression builder.
const TypeExpression = "expression"

// OptExpression holds the template to evaluate.
const OptExpression = "expression"

// ExpressionBuilder derives a parameter from values already in the store,
// without calling the metric backend.
type ExpressionBuilder struct {
	base
	expression *expr.Template
}

// NewExpression creates an expression builder.
func NewExpression(name string, opts builder.Options) (builder.ParameterBuilder, error) {
	if err := opts.Check(OptExpression, OptDependsOn); err != nil {
		return nil, err
	}
	if !opts.Has(OptExpression) {
		return nil, fmt.Errorf("option %q is required", OptExpression)
	}
	t, err := opts.Template(OptExpression, nil)
	if err != nil {
		return nil, err
	}
	b := &ExpressionBuilder{expression: t}
	if b.base, err = newBase(name, TypeExpression, opts, t); err != nil {
		return nil, err
	}
	return b, nil
}

// Spec implements builder.ParameterBuilder.
func (b *ExpressionBuilder) Spec() builder.Spec {
	return b.base.spec(builder.Options{OptExpression: b.expression})
}

// Build implements builder.ParameterBuilder.
func (b *ExpressionBuilder) Build(_ context.Context, in builder.ParameterInput) (paramstore.Node, error) {
	v, err := b.expression.Resolve(in.Scope)
	if err != nil {
		return paramstore.Node{}, err
	}
	return paramstore.Node{Value: v, Details: map[string]any{OptExpression: b.expression.Source()}}, nil
}

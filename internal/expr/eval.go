// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package expr

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/profilegrid/internal/errdefs"
	"github.com/specialistvlad/profilegrid/internal/fqpn"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Resolve evaluates the template against scope. A whole reference returns
// the stored value with its original type; string templates always return a
// string; other expressions return plain Go values (numbers as float64).
func (t *Template) Resolve(scope Scope) (any, error) {
	switch t.kind {
	case kindLiteral:
		return t.literal, nil

	case kindReference:
		v, err := scope.Lookup(t.ref)
		if err != nil {
			return nil, &errdefs.TemplateResolutionError{Template: t.source, Reference: t.ref.String(), Err: err}
		}
		return v, nil

	case kindObject:
		out := make(map[string]any, len(t.object))
		for k, child := range t.object {
			v, err := child.Resolve(scope)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil

	case kindList:
		out := make([]any, 0, len(t.list))
		for _, child := range t.list {
			v, err := child.Resolve(scope)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case kindExpression:
		return t.evaluate(scope)
	}
	return nil, fmt.Errorf("unknown template kind %d", t.kind)
}

// ResolveBool resolves the template and requires a boolean result.
func (t *Template) ResolveBool(scope Scope) (bool, error) {
	v, err := t.Resolve(scope)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, &errdefs.TemplateResolutionError{Template: t.source, Err: fmt.Errorf("expected a bool, got %T", v)}
	}
	return b, nil
}

func (t *Template) evaluate(scope Scope) (any, error) {
	// Resolve each reference up front so the error names the first one that
	// is missing, in source order.
	for _, ref := range t.refs {
		if _, err := scope.Lookup(ref); err != nil {
			return nil, &errdefs.TemplateResolutionError{Template: t.source, Reference: ref.String(), Err: err}
		}
	}

	evalCtx, err := buildEvalContext(scope, t.refs)
	if err != nil {
		return nil, &errdefs.TemplateResolutionError{Template: t.source, Err: err}
	}
	val, diags := t.expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, &errdefs.TemplateResolutionError{Template: t.source, Err: diags}
	}
	out, err := ctyToGo(val)
	if err != nil {
		return nil, &errdefs.TemplateResolutionError{Template: t.source, Err: err}
	}
	return out, nil
}

// buildEvalContext creates the HCL evaluation context for the scopes the
// template reads.
func buildEvalContext(scope Scope, refs []fqpn.Name) (*hcl.EvalContext, error) {
	vars := make(map[string]cty.Value)
	for _, ref := range refs {
		root := ref.Scope.String()
		if _, done := vars[root]; done {
			continue
		}
		obj, err := scope.Object(ref.Scope)
		if err != nil {
			return nil, err
		}
		val, err := goToCty(obj)
		if err != nil {
			return nil, fmt.Errorf("converting %s scope: %w", root, err)
		}
		vars[root] = val
	}
	return &hcl.EvalContext{Variables: vars, Functions: functions}, nil
}

// goToCty converts a plain Go value into a cty.Value by way of JSON, which
// yields object and tuple types that support attribute and index access.
func goToCty(v any) (cty.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return cty.NilVal, err
	}
	ty, err := ctyjson.ImpliedType(b)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(b, ty)
}

// ctyToGo converts a cty.Value to a plain Go value.
func ctyToGo(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	if ty.IsPrimitiveType() {
		switch ty {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			f, _ := val.AsBigFloat().Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, fmt.Errorf("unsupported primitive type: %s", ty.FriendlyName())
		}
	}
	if ty.IsObjectType() || ty.IsMapType() {
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			goVal, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = goVal
		}
		return out, nil
	}
	if ty.IsTupleType() || ty.IsListType() || ty.IsSetType() {
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			goVal, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out = append(out, goVal)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty.Type for conversion: %s", ty.FriendlyName())
}

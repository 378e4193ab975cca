// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package builder

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/specialistvlad/profilegrid/internal/expr"
)

// Options holds a builder's configuration. Values are plain Go values or
// compiled templates (as produced by the rule file loader).
type Options map[string]any

// Has reports whether key is set.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// Check fails on any key not listed in allowed.
func (o Options) Check(allowed ...string) error {
	var unknown []string
	for _, k := range slices.Sorted(maps.Keys(o)) {
		if !slices.Contains(allowed, k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unsupported option(s) %s", strings.Join(unknown, ", "))
	}
	return nil
}

// literal returns the static value at key, unwrapping compiled templates.
func (o Options) literal(key string) (any, bool, error) {
	v, ok := o[key]
	if !ok {
		return nil, false, nil
	}
	if t, isTmpl := v.(*expr.Template); isTmpl {
		lit, static := t.Literal()
		if !static {
			return nil, true, fmt.Errorf("option %q must be a static value, got %q", key, t.Source())
		}
		return lit, true, nil
	}
	return v, true, nil
}

// String returns a string option or def when unset.
func (o Options) String(key, def string) (string, error) {
	v, ok, err := o.literal(key)
	if err != nil || !ok || v == nil {
		return def, err
	}
	s, isStr := v.(string)
	if !isStr {
		return "", fmt.Errorf("option %q must be a string, got %T", key, v)
	}
	return s, nil
}

// StringSlice returns a list-of-strings option. present is false when unset.
func (o Options) StringSlice(key string) (values []string, present bool, err error) {
	v, ok, err := o.literal(key)
	if err != nil || !ok || v == nil {
		return nil, ok && v != nil, err
	}
	switch s := v.(type) {
	case []string:
		return slices.Clone(s), true, nil
	case []any:
		out := make([]string, 0, len(s))
		for i, item := range s {
			str, isStr := item.(string)
			if !isStr {
				return nil, true, fmt.Errorf("option %q[%d] must be a string, got %T", key, i, item)
			}
			out = append(out, str)
		}
		return out, true, nil
	case string:
		return []string{s}, true, nil
	default:
		return nil, true, fmt.Errorf("option %q must be a list of strings, got %T", key, v)
	}
}

// Int returns an integer option or def when unset.
func (o Options) Int(key string, def int) (int, error) {
	v, ok, err := o.literal(key)
	if err != nil || !ok || v == nil {
		return def, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("option %q must be a whole number, got %v", key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("option %q must be a number, got %T", key, v)
	}
}

// Bool returns a boolean option or def when unset.
func (o Options) Bool(key string, def bool) (bool, error) {
	v, ok, err := o.literal(key)
	if err != nil || !ok || v == nil {
		return def, err
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, fmt.Errorf("option %q must be a bool, got %T", key, v)
	}
	return b, nil
}

// Template compiles the option at key. When unset, def is compiled instead;
// a nil def yields a nil template.
func (o Options) Template(key string, def any) (*expr.Template, error) {
	v, ok := o[key]
	if !ok {
		if def == nil {
			return nil, nil
		}
		v = def
	}
	t, err := expr.Compile(v)
	if err != nil {
		return nil, fmt.Errorf("option %q: %w", key, err)
	}
	return t, nil
}

// Expression compiles the option at key as a native expression. Strings are
// parsed with expression syntax rather than template syntax.
func (o Options) Expression(key string) (*expr.Template, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch e := v.(type) {
	case *expr.Template:
		return e, nil
	case string:
		t, err := expr.CompileExpression(e)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", key, err)
		}
		return t, nil
	case bool:
		return expr.Literal(e), nil
	default:
		return nil, fmt.Errorf("option %q must be an expression, got %T", key, v)
	}
}

// Specs returns a list of nested builder specs. Entries may be Specs or maps
// with "type", "name" and the remaining keys as options.
func (o Options) Specs(key string) ([]Spec, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch s := v.(type) {
	case []Spec:
		return slices.Clone(s), nil
	case []any:
		out := make([]Spec, 0, len(s))
		for i, item := range s {
			spec, err := specFromAny(item)
			if err != nil {
				return nil, fmt.Errorf("option %q[%d]: %w", key, i, err)
			}
			out = append(out, spec)
		}
		return out, nil
	case []map[string]any:
		out := make([]Spec, 0, len(s))
		for i, item := range s {
			spec, err := specFromAny(item)
			if err != nil {
				return nil, fmt.Errorf("option %q[%d]: %w", key, i, err)
			}
			out = append(out, spec)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("option %q must be a list of builder specs, got %T", key, v)
	}
}

func specFromAny(v any) (Spec, error) {
	switch s := v.(type) {
	case Spec:
		return s, nil
	case map[string]any:
		opts := Options(maps.Clone(s))
		typ, err := opts.String("type", "")
		if err != nil {
			return Spec{}, err
		}
		if typ == "" {
			return Spec{}, fmt.Errorf("builder spec needs a type")
		}
		name, err := opts.String("name", "")
		if err != nil {
			return Spec{}, err
		}
		delete(opts, "type")
		delete(opts, "name")
		return Spec{Type: typ, Name: name, Options: opts}, nil
	default:
		return Spec{}, fmt.Errorf("expected a builder spec, got %T", v)
	}
}

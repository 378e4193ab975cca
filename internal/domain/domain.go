// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package domain defines the unit of a dataset a rule is evaluated against:
// a column, the table, or a set of columns.
package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Type tags the kind of a domain.
type Type string

const (
	TypeColumn      Type = "column"
	TypeTable       Type = "table"
	TypeMultiColumn Type = "multi_column"
)

// Common kwarg keys.
const (
	KeyColumn     = "column"
	KeyColumnList = "column_list"
	KeyTable      = "table"
)

// Domain identifies what a rule targets. Values are immutable once built: the
// constructor and every accessor copy the underlying maps.
type Domain struct {
	domainType Type
	kwargs     map[string]any
	details    map[string]any
	ruleName   string
}

// New creates a domain of the given type. The kwargs and details maps are copied.
func New(t Type, kwargs, details map[string]any) Domain {
	return Domain{
		domainType: t,
		kwargs:     cloneMap(kwargs),
		details:    cloneMap(details),
	}
}

// Column is shorthand for a single-column domain.
func Column(name string, details map[string]any) Domain {
	return New(TypeColumn, map[string]any{KeyColumn: name}, details)
}

// Type returns the domain's type tag.
func (d Domain) Type() Type { return d.domainType }

// Kwargs returns a copy of the addressing keys.
func (d Domain) Kwargs() map[string]any { return cloneMap(d.kwargs) }

// Kwarg returns a single addressing key.
func (d Domain) Kwarg(key string) (any, bool) {
	v, ok := d.kwargs[key]
	return v, ok
}

// Details returns a copy of the free-form metadata.
func (d Domain) Details() map[string]any { return cloneMap(d.details) }

// RuleName returns the name of the rule that produced the domain, if stamped.
func (d Domain) RuleName() string { return d.ruleName }

// WithRuleName returns a copy stamped with the given rule name.
func (d Domain) WithRuleName(name string) Domain {
	d.kwargs = cloneMap(d.kwargs)
	d.details = cloneMap(d.details)
	d.ruleName = name
	return d
}

// Key identifies the domain by (type, kwargs). Builders must not emit two
// domains with the same key.
func (d Domain) Key() string {
	return string(d.domainType) + canonicalKwargs(d.kwargs)
}

// ID identifies the domain across a whole run: the key qualified by the rule
// name when one is set.
func (d Domain) ID() string {
	if d.ruleName == "" {
		return d.Key()
	}
	return d.ruleName + "/" + d.Key()
}

// String is a short human-readable form for logs, e.g. column(amount).
func (d Domain) String() string {
	switch d.domainType {
	case TypeColumn:
		if c, ok := d.kwargs[KeyColumn]; ok {
			return fmt.Sprintf("column(%v)", c)
		}
	case TypeMultiColumn:
		if cols, ok := d.kwargs[KeyColumnList]; ok {
			return fmt.Sprintf("multi_column(%v)", cols)
		}
	}
	return d.Key()
}

// Equal compares type and kwargs; details and rule name are ignored.
func (d Domain) Equal(o Domain) bool {
	return d.Key() == o.Key()
}

func canonicalKwargs(kwargs map[string]any) string {
	if len(kwargs) == 0 {
		return "{}"
	}
	// encoding/json sorts map keys, which gives a stable rendering.
	b, err := json.Marshal(kwargs)
	if err == nil {
		return string(b)
	}
	keys := slices.Sorted(maps.Keys(kwargs))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, kwargs[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return maps.Clone(m)
}

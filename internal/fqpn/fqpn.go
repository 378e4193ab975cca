// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package fqpn implements fully-qualified parameter names: the typed keys used
// to address values in the parameter store.
//
// A name is a scope plus a structured path. Three scopes exist:
//
//	domain.<key>...             values synthesized from the current domain
//	variables.<key>...          values from the rule's variables map
//	parameter.<name>[.suffix]   values written by a parameter builder
//
// The parameter suffix is one of value, details, or metadata (an alias of
// details). Anything after value walks into the computed payload.
//
// Authoring surfaces are string based ("$parameter.min.value",
// `parameter.stats.value["p95"]`); internally names are only ever compared and
// hashed through Name, never concatenated.
package fqpn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Scope is the namespace a name belongs to.
type Scope int

const (
	// ScopeInvalid is the zero value and never valid.
	ScopeInvalid Scope = iota
	// ScopeDomain addresses values derived from the current domain.
	ScopeDomain
	// ScopeVariables addresses the rule's variables map.
	ScopeVariables
	// ScopeParameter addresses values written by parameter builders.
	ScopeParameter
)

// Reserved path segments.
const (
	// Prefix marks a whole-field reference in string templates.
	Prefix = "$"

	ValueKey        = "value"
	DetailsKey      = "details"
	MetadataKey     = "metadata"
	DomainKwargsKey = "domain_kwargs"
	DomainTypeKey   = "domain_type"
	DomainIDKey     = "id"
	RuleNameKey     = "rule_name"
)

var scopeNames = map[Scope]string{
	ScopeDomain:    "domain",
	ScopeVariables: "variables",
	ScopeParameter: "parameter",
}

func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Scope(%d)", int(s))
}

// ParseScope maps a root identifier to its Scope.
func ParseScope(root string) (Scope, bool) {
	for scope, name := range scopeNames {
		if name == root {
			return scope, true
		}
	}
	return ScopeInvalid, false
}

// Name is a fully-qualified parameter name.
type Name struct {
	Scope Scope
	Path  []string
}

// New builds a Name from a scope and path segments.
func New(scope Scope, path ...string) Name {
	return Name{Scope: scope, Path: append([]string(nil), path...)}
}

// Parameter builds a parameter-scope name, e.g. Parameter("min", "value").
func Parameter(name string, path ...string) Name {
	return New(ScopeParameter, append([]string{name}, path...)...)
}

// Variable builds a variables-scope name.
func Variable(key string, path ...string) Name {
	return New(ScopeVariables, append([]string{key}, path...)...)
}

// Domain builds a domain-scope name.
func Domain(path ...string) Name {
	return New(ScopeDomain, path...)
}

// Parse reads a name from its string form. A leading "$" is accepted and
// ignored. Index syntax is supported for keys that are not identifiers.
func Parse(s string) (Name, error) {
	src := strings.TrimPrefix(strings.TrimSpace(s), Prefix)
	if src == "" {
		return Name{}, fmt.Errorf("empty parameter name")
	}
	traversal, diags := hclsyntax.ParseTraversalAbs([]byte(src), "<fqpn>", hcl.InitialPos)
	if diags.HasErrors() {
		return Name{}, fmt.Errorf("invalid parameter name %q: %w", s, diags)
	}
	return FromTraversal(traversal)
}

// MustParse is Parse that panics on error. For tests and static tables.
func MustParse(s string) Name {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

// FromTraversal converts an absolute HCL traversal into a Name.
func FromTraversal(t hcl.Traversal) (Name, error) {
	if len(t) == 0 {
		return Name{}, fmt.Errorf("empty traversal")
	}
	root, ok := t[0].(hcl.TraverseRoot)
	if !ok {
		return Name{}, fmt.Errorf("traversal must start with a scope name")
	}
	scope, ok := ParseScope(root.Name)
	if !ok {
		return Name{}, fmt.Errorf("unknown scope %q: expected domain, variables, or parameter", root.Name)
	}

	path := make([]string, 0, len(t)-1)
	for _, step := range t[1:] {
		switch s := step.(type) {
		case hcl.TraverseAttr:
			path = append(path, s.Name)
		case hcl.TraverseIndex:
			seg, err := indexSegment(s.Key)
			if err != nil {
				return Name{}, err
			}
			path = append(path, seg)
		default:
			return Name{}, fmt.Errorf("unsupported traversal step %T in %s reference", step, root.Name)
		}
	}

	n := Name{Scope: scope, Path: path}
	if err := n.Validate(); err != nil {
		return Name{}, err
	}
	return n, nil
}

func indexSegment(key cty.Value) (string, error) {
	if !key.IsKnown() || key.IsNull() {
		return "", fmt.Errorf("index key must be a known value")
	}
	switch key.Type() {
	case cty.String:
		return key.AsString(), nil
	case cty.Number:
		bf := key.AsBigFloat()
		if !bf.IsInt() {
			return "", fmt.Errorf("index key must be a whole number")
		}
		i, _ := bf.Int64()
		return strconv.FormatInt(i, 10), nil
	default:
		return "", fmt.Errorf("index key must be a string or number, got %s", key.Type().FriendlyName())
	}
}

// Validate checks scope-specific path rules.
func (n Name) Validate() error {
	switch n.Scope {
	case ScopeDomain:
		return nil
	case ScopeVariables:
		if len(n.Path) == 0 {
			return fmt.Errorf("variables reference needs a key")
		}
		return nil
	case ScopeParameter:
		if len(n.Path) == 0 {
			return fmt.Errorf("parameter reference needs a builder name")
		}
		if len(n.Path) > 1 {
			switch n.Path[1] {
			case ValueKey, DetailsKey, MetadataKey:
			default:
				return fmt.Errorf("parameter reference %q: expected %q, %q or %q after the builder name, got %q",
					n.String(), ValueKey, DetailsKey, MetadataKey, n.Path[1])
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid scope")
	}
}

// ParameterName returns the builder name of a parameter-scope name.
func (n Name) ParameterName() string {
	if n.Scope != ScopeParameter || len(n.Path) == 0 {
		return ""
	}
	return n.Path[0]
}

// Root returns the name truncated to its storage key: parameter.<name> for
// parameters, the first path segment for other scopes.
func (n Name) Root() Name {
	if len(n.Path) == 0 {
		return Name{Scope: n.Scope}
	}
	return Name{Scope: n.Scope, Path: []string{n.Path[0]}}
}

// Equal reports whether two names address the same key.
func (n Name) Equal(o Name) bool {
	if n.Scope != o.Scope || len(n.Path) != len(o.Path) {
		return false
	}
	for i := range n.Path {
		if n.Path[i] != o.Path[i] {
			return false
		}
	}
	return true
}

// String renders the canonical dotted form, using index syntax for segments
// that are not identifiers.
func (n Name) String() string {
	var sb strings.Builder
	sb.WriteString(n.Scope.String())
	for _, seg := range n.Path {
		if hclsyntax.ValidIdentifier(seg) {
			sb.WriteByte('.')
			sb.WriteString(seg)
			continue
		}
		if _, err := strconv.Atoi(seg); err == nil {
			sb.WriteByte('[')
			sb.WriteString(seg)
			sb.WriteByte(']')
			continue
		}
		fmt.Fprintf(&sb, "[%q]", seg)
	}
	return sb.String()
}

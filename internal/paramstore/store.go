// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package paramstore

import (
	"fmt"
	"maps"
	"reflect"
	"strconv"
	"sync"

	"github.com/specialistvlad/profilegrid/internal/domain"
	"github.com/specialistvlad/profilegrid/internal/errdefs"
	"github.com/specialistvlad/profilegrid/internal/fqpn"
)

// Node is the value stored at a parameter name.
type Node struct {
	Value   any            `json:"value" yaml:"value"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// Object renders the node the way templates see parameter.<name>.
func (n Node) Object() map[string]any {
	details := n.Details
	if details == nil {
		details = map[string]any{}
	}
	return map[string]any{
		fqpn.ValueKey:    n.Value,
		fqpn.DetailsKey:  details,
		fqpn.MetadataKey: details,
	}
}

// Store holds parameter nodes per domain plus the rule-scoped variables.
//
// The maintained partitions map:
//   - partitions: domain ID -> *partition (one per domain that has written)
type Store struct {
	variables  map[string]any
	partitions sync.Map
}

type partition struct {
	mu    sync.Mutex
	nodes map[string]Node
	order []string
}

// New creates an empty store over the given variables. The map is copied.
func New(variables map[string]any) *Store {
	vars := map[string]any{}
	maps.Copy(vars, variables)
	return &Store{variables: vars}
}

// Variables returns a copy of the rule-scoped variables.
func (s *Store) Variables() map[string]any {
	return maps.Clone(s.variables)
}

func (s *Store) partition(d domain.Domain) *partition {
	p, _ := s.partitions.LoadOrStore(d.ID(), &partition{nodes: map[string]Node{}})
	return p.(*partition)
}

func (s *Store) lookupPartition(d domain.Domain) (*partition, bool) {
	p, ok := s.partitions.Load(d.ID())
	if !ok {
		return nil, false
	}
	return p.(*partition), true
}

// Put writes a parameter node for domain d. Only parameter.<name> can be
// written; domain and variables scopes are read-only.
func (s *Store) Put(d domain.Domain, name fqpn.Name, value any, details map[string]any) error {
	if name.Scope != fqpn.ScopeParameter {
		return &errdefs.InvalidScopeError{Name: name.String(), Scope: name.Scope.String()}
	}
	if len(name.Path) != 1 {
		return fmt.Errorf("cannot write %q: writes must target parameter.<name>", name.String())
	}

	key := name.ParameterName()
	p := s.partition(d)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.nodes[key]; exists {
		return &errdefs.DuplicateWriteError{Domain: d.ID(), Name: name.String()}
	}
	p.nodes[key] = Node{Value: value, Details: maps.Clone(details)}
	p.order = append(p.order, key)
	return nil
}

// Get returns the node addressed by the root of name. Domain and variables
// names are synthesized into a node whose Value is the addressed value.
func (s *Store) Get(d domain.Domain, name fqpn.Name) (Node, error) {
	switch name.Scope {
	case fqpn.ScopeParameter:
		node, ok := s.node(d, name.ParameterName())
		if !ok {
			return Node{}, &errdefs.UnresolvedParameterError{Domain: d.ID(), Name: name.Root().String()}
		}
		return node, nil
	case fqpn.ScopeDomain, fqpn.ScopeVariables:
		v, err := s.Lookup(d, name)
		if err != nil {
			return Node{}, err
		}
		return Node{Value: v}, nil
	default:
		return Node{}, &errdefs.InvalidScopeError{Name: name.String(), Scope: name.Scope.String()}
	}
}

func (s *Store) node(d domain.Domain, key string) (Node, bool) {
	p, ok := s.lookupPartition(d)
	if !ok {
		return Node{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	node, ok := p.nodes[key]
	return node, ok
}

// Lookup resolves the full path of name for domain d.
func (s *Store) Lookup(d domain.Domain, name fqpn.Name) (any, error) {
	switch name.Scope {
	case fqpn.ScopeParameter:
		return s.lookupParameter(d, name)
	case fqpn.ScopeDomain:
		v, ok := walk(domainObject(d), name.Path)
		if !ok {
			return nil, &errdefs.UnresolvedParameterError{Domain: d.ID(), Name: name.String()}
		}
		return v, nil
	case fqpn.ScopeVariables:
		v, ok := walk(s.variables, name.Path)
		if !ok {
			return nil, &errdefs.UndefinedVariableError{Name: name.String()}
		}
		return v, nil
	default:
		return nil, &errdefs.InvalidScopeError{Name: name.String(), Scope: name.Scope.String()}
	}
}

func (s *Store) lookupParameter(d domain.Domain, name fqpn.Name) (any, error) {
	node, ok := s.node(d, name.ParameterName())
	if !ok {
		return nil, &errdefs.UnresolvedParameterError{Domain: d.ID(), Name: name.String()}
	}
	if len(name.Path) == 1 {
		return node.Object(), nil
	}

	var base any
	switch name.Path[1] {
	case fqpn.ValueKey:
		base = node.Value
	default:
		base = node.Details
	}
	v, ok := walk(base, name.Path[2:])
	if !ok {
		return nil, &errdefs.UnresolvedParameterError{Domain: d.ID(), Name: name.String()}
	}
	return v, nil
}

// Snapshot returns a copy of every parameter written for domain d, keyed by
// parameter name.
func (s *Store) Snapshot(d domain.Domain) map[string]Node {
	out := map[string]Node{}
	p, ok := s.lookupPartition(d)
	if !ok {
		return out
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, key := range p.order {
		out[key] = p.nodes[key]
	}
	return out
}

// Scope binds the store to a single domain.
func (s *Store) Scope(d domain.Domain) *DomainScope {
	return &DomainScope{store: s, domain: d}
}

// DomainScope is a read view of the store for one domain.
type DomainScope struct {
	store  *Store
	domain domain.Domain
}

// Domain returns the domain the view is bound to.
func (v *DomainScope) Domain() domain.Domain { return v.domain }

// Lookup resolves name for the bound domain.
func (v *DomainScope) Lookup(name fqpn.Name) (any, error) {
	return v.store.Lookup(v.domain, name)
}

// Object returns the whole namespace of a scope for the bound domain, as used
// to build template evaluation contexts.
func (v *DomainScope) Object(scope fqpn.Scope) (any, error) {
	switch scope {
	case fqpn.ScopeDomain:
		return domainObject(v.domain), nil
	case fqpn.ScopeVariables:
		return v.store.Variables(), nil
	case fqpn.ScopeParameter:
		out := map[string]any{}
		for key, node := range v.store.Snapshot(v.domain) {
			out[key] = node.Object()
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown scope %s", scope)
	}
}

func domainObject(d domain.Domain) map[string]any {
	obj := d.Kwargs()
	obj[fqpn.DomainKwargsKey] = d.Kwargs()
	obj[fqpn.DomainTypeKey] = string(d.Type())
	obj[fqpn.DomainIDKey] = d.ID()
	obj[fqpn.RuleNameKey] = d.RuleName()
	obj[fqpn.DetailsKey] = d.Details()
	return obj
}

// walk descends into maps and slices following path.
func walk(v any, path []string) (any, bool) {
	cur := v
	for _, seg := range path {
		switch c := cur.(type) {
		case map[string]any:
			next, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = next
			continue
		case nil:
			return nil, false
		}

		rv := reflect.ValueOf(cur)
		switch rv.Kind() {
		case reflect.Map:
			if rv.Type().Key().Kind() != reflect.String {
				return nil, false
			}
			mv := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
			if !mv.IsValid() {
				return nil, false
			}
			cur = mv.Interface()
		case reflect.Slice, reflect.Array:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= rv.Len() {
				return nil, false
			}
			cur = rv.Index(i).Interface()
		default:
			return nil, false
		}
	}
	return cur, true
}

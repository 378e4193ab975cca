// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package expr compiles and resolves the templates used in builder
// configuration. Three authoring forms are understood:
//
//	"$parameter.min.value"             whole reference, resolves to the raw typed value
//	"between ${parameter.min.value}"   HCL string template, always yields a string
//	parameter.min.value * 2            native HCL expression (rule files, conditions)
//
// Maps and lists are compiled element-wise, so a fields map can mix literals
// and references freely.
package expr

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/profilegrid/internal/errdefs"
	"github.com/specialistvlad/profilegrid/internal/fqpn"
	"github.com/zclconf/go-cty/cty"
)

// Scope is the read side of the parameter store for one domain.
type Scope interface {
	// Lookup resolves a fully-qualified name.
	Lookup(name fqpn.Name) (any, error)
	// Object returns the whole namespace of a scope.
	Object(scope fqpn.Scope) (any, error)
}

type kind int

const (
	kindLiteral kind = iota
	kindReference
	kindExpression
	kindObject
	kindList
)

// Template is a compiled, immutable template. It is safe for concurrent use.
type Template struct {
	kind   kind
	source string

	literal any
	ref     fqpn.Name
	expr    hcl.Expression
	object  map[string]*Template
	list    []*Template

	refs []fqpn.Name
}

// Compile turns an authored value into a Template. Strings are parsed,
// maps and slices are compiled recursively, anything else is a literal.
// Passing a *Template returns it unchanged.
func Compile(v any) (*Template, error) {
	switch t := v.(type) {
	case *Template:
		return t, nil
	case string:
		return compileString(t)
	case map[string]any:
		return compileObject(t)
	case []any:
		return compileList(t)
	case nil:
		return &Template{kind: kindLiteral}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return compileList(items)
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]any, rv.Len())
			for it := rv.MapRange(); it.Next(); {
				m[it.Key().String()] = it.Value().Interface()
			}
			return compileObject(m)
		}
	}
	return &Template{kind: kindLiteral, literal: v, source: fmt.Sprint(v)}, nil
}

// MustCompile is Compile that panics on error. For tests and static tables.
func MustCompile(v any) *Template {
	t, err := Compile(v)
	if err != nil {
		panic(err)
	}
	return t
}

// Literal wraps a value that must never be parsed as a template.
func Literal(v any) *Template {
	return &Template{kind: kindLiteral, literal: v, source: fmt.Sprint(v)}
}

// CompileExpression parses src as a native HCL expression, as used by
// conditions. A leading "$" whole-reference form is accepted too.
func CompileExpression(src string) (*Template, error) {
	trimmed := strings.TrimSpace(src)
	if isWholeReference(trimmed) {
		return compileString(trimmed)
	}
	e, diags := hclsyntax.ParseExpression([]byte(trimmed), "<expression>", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, &errdefs.MalformedTemplateError{Template: src, Err: diags}
	}
	return compileExpr(e, src)
}

// FromExpression compiles an expression decoded from a rule file. src is the
// file content the expression ranges refer to. Object and tuple
// constructors are split so that each element keeps its own resolution mode.
func FromExpression(e hcl.Expression, src []byte) (*Template, error) {
	source := strings.TrimSpace(string(e.Range().SliceBytes(src)))

	if len(e.Variables()) == 0 {
		if err := checkFunctions(e, source); err != nil {
			return nil, err
		}
		val, diags := e.Value(&hcl.EvalContext{Functions: functions})
		if diags.HasErrors() {
			return nil, &errdefs.MalformedTemplateError{Template: source, Err: diags}
		}
		goVal, err := ctyToGo(val)
		if err != nil {
			return nil, &errdefs.MalformedTemplateError{Template: source, Err: err}
		}
		return Compile(goVal)
	}

	switch ex := e.(type) {
	case *hclsyntax.ObjectConsExpr:
		obj := make(map[string]*Template, len(ex.Items))
		for _, item := range ex.Items {
			key, diags := item.KeyExpr.Value(nil)
			if diags.HasErrors() || key.Type() != cty.String {
				return nil, &errdefs.MalformedTemplateError{Template: source, Err: fmt.Errorf("object keys must be static strings")}
			}
			child, err := FromExpression(item.ValueExpr, src)
			if err != nil {
				return nil, err
			}
			obj[key.AsString()] = child
		}
		return newObject(obj, source), nil
	case *hclsyntax.TupleConsExpr:
		list := make([]*Template, 0, len(ex.Exprs))
		for _, item := range ex.Exprs {
			child, err := FromExpression(item, src)
			if err != nil {
				return nil, err
			}
			list = append(list, child)
		}
		return newList(list, source), nil
	}
	return compileExpr(e, source)
}

func isWholeReference(s string) bool {
	return strings.HasPrefix(s, fqpn.Prefix) && !strings.HasPrefix(s, "${")
}

func compileString(s string) (*Template, error) {
	if isWholeReference(strings.TrimSpace(s)) {
		name, err := fqpn.Parse(s)
		if err != nil {
			return nil, &errdefs.MalformedTemplateError{Template: s, Err: err}
		}
		return &Template{kind: kindReference, source: s, ref: name, refs: []fqpn.Name{name}}, nil
	}
	if !strings.Contains(s, "${") && !strings.Contains(s, "%{") {
		return &Template{kind: kindLiteral, source: s, literal: s}, nil
	}

	e, diags := hclsyntax.ParseTemplate([]byte(s), "<template>", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, &errdefs.MalformedTemplateError{Template: s, Err: diags}
	}
	return compileExpr(e, s)
}

func compileExpr(e hcl.Expression, source string) (*Template, error) {
	// "${parameter.min.value}" and bare traversals keep the raw typed value.
	inner := e
	if wrap, ok := e.(*hclsyntax.TemplateWrapExpr); ok {
		inner = wrap.Wrapped
	}
	if trav, ok := inner.(*hclsyntax.ScopeTraversalExpr); ok {
		name, err := fqpn.FromTraversal(trav.Traversal)
		if err != nil {
			return nil, &errdefs.MalformedTemplateError{Template: source, Err: err}
		}
		return &Template{kind: kindReference, source: source, ref: name, refs: []fqpn.Name{name}}, nil
	}

	refs, err := references(e, source)
	if err != nil {
		return nil, err
	}
	if err := checkFunctions(e, source); err != nil {
		return nil, err
	}

	if len(refs) == 0 {
		val, diags := e.Value(&hcl.EvalContext{Functions: functions})
		if diags.HasErrors() {
			return nil, &errdefs.MalformedTemplateError{Template: source, Err: diags}
		}
		goVal, err := ctyToGo(val)
		if err != nil {
			return nil, &errdefs.MalformedTemplateError{Template: source, Err: err}
		}
		return &Template{kind: kindLiteral, source: source, literal: goVal}, nil
	}
	return &Template{kind: kindExpression, source: source, expr: e, refs: refs}, nil
}

// references extracts the referenced names in source order, without duplicates.
func references(e hcl.Expression, source string) ([]fqpn.Name, error) {
	var refs []fqpn.Name
	seen := map[string]struct{}{}
	for _, traversal := range e.Variables() {
		name, err := fqpn.FromTraversal(traversal)
		if err != nil {
			return nil, &errdefs.MalformedTemplateError{Template: source, Err: err}
		}
		key := name.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		refs = append(refs, name)
	}
	return refs, nil
}

func checkFunctions(e hcl.Expression, source string) error {
	syntaxExpr, ok := e.(hclsyntax.Expression)
	if !ok {
		return nil
	}
	called := map[string]struct{}{}
	walkForFunctions(syntaxExpr, called)
	for _, name := range slices.Sorted(maps.Keys(called)) {
		if _, known := functions[name]; !known {
			return &errdefs.MalformedTemplateError{Template: source, Err: fmt.Errorf("call to unknown function %q", name)}
		}
	}
	return nil
}

func compileObject(m map[string]any) (*Template, error) {
	obj := make(map[string]*Template, len(m))
	for k, v := range m {
		child, err := Compile(v)
		if err != nil {
			return nil, err
		}
		obj[k] = child
	}
	return newObject(obj, ""), nil
}

func compileList(items []any) (*Template, error) {
	list := make([]*Template, 0, len(items))
	for _, v := range items {
		child, err := Compile(v)
		if err != nil {
			return nil, err
		}
		list = append(list, child)
	}
	return newList(list, ""), nil
}

func newObject(obj map[string]*Template, source string) *Template {
	t := &Template{kind: kindObject, object: obj, source: source}
	for _, k := range slices.Sorted(maps.Keys(obj)) {
		t.refs = appendUnique(t.refs, obj[k].refs...)
	}
	if t.source == "" {
		t.source = t.render()
	}
	return t
}

func newList(list []*Template, source string) *Template {
	t := &Template{kind: kindList, list: list, source: source}
	for _, child := range list {
		t.refs = appendUnique(t.refs, child.refs...)
	}
	if t.source == "" {
		t.source = t.render()
	}
	return t
}

func appendUnique(dst []fqpn.Name, names ...fqpn.Name) []fqpn.Name {
	for _, n := range names {
		if !slices.ContainsFunc(dst, n.Equal) {
			dst = append(dst, n)
		}
	}
	return dst
}

func (t *Template) render() string {
	switch t.kind {
	case kindObject:
		parts := make([]string, 0, len(t.object))
		for _, k := range slices.Sorted(maps.Keys(t.object)) {
			parts = append(parts, fmt.Sprintf("%s = %s", k, t.object[k].source))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case kindList:
		parts := make([]string, 0, len(t.list))
		for _, child := range t.list {
			parts = append(parts, child.source)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return t.source
	}
}

// References returns every name the template reads, in source order.
func (t *Template) References() []fqpn.Name {
	return slices.Clone(t.refs)
}

// ParameterReferences returns the parameter builder names the template reads.
func (t *Template) ParameterReferences() []string {
	var names []string
	for _, ref := range t.refs {
		if n := ref.ParameterName(); n != "" && !slices.Contains(names, n) {
			names = append(names, n)
		}
	}
	return names
}

// Literal returns the template's value when it needs no resolution.
func (t *Template) Literal() (any, bool) {
	switch t.kind {
	case kindLiteral:
		return t.literal, true
	case kindObject:
		out := make(map[string]any, len(t.object))
		for k, child := range t.object {
			v, ok := child.Literal()
			if !ok {
				return nil, false
			}
			out[k] = v
		}
		return out, true
	case kindList:
		out := make([]any, 0, len(t.list))
		for _, child := range t.list {
			v, ok := child.Literal()
			if !ok {
				return nil, false
			}
			out = append(out, v)
		}
		return out, true
	default:
		return nil, false
	}
}

// Source returns the authored form of the template.
func (t *Template) Source() string { return t.source }

func (t *Template) String() string { return t.source }

// Canonical renders the template in a stable form for equality checks.
func (t *Template) Canonical() string {
	switch t.kind {
	case kindLiteral:
		b, err := json.Marshal(t.literal)
		if err != nil {
			return fmt.Sprint(t.literal)
		}
		return string(b)
	case kindReference:
		return "$" + t.ref.String()
	case kindObject:
		parts := make([]string, 0, len(t.object))
		for _, k := range slices.Sorted(maps.Keys(t.object)) {
			parts = append(parts, fmt.Sprintf("%q:%s", k, t.object[k].Canonical()))
		}
		return "{" + strings.Join(parts, ",") + "}"
	case kindList:
		parts := make([]string, 0, len(t.list))
		for _, child := range t.list {
			parts = append(parts, child.Canonical())
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return strings.TrimSpace(t.source)
	}
}

// MarshalYAML renders literals as themselves and everything else by source.
func (t *Template) MarshalYAML() (any, error) {
	if v, ok := t.Literal(); ok {
		return v, nil
	}
	return t.source, nil
}

// MarshalJSON renders literals as themselves and everything else by source.
func (t *Template) MarshalJSON() ([]byte, error) {
	if v, ok := t.Literal(); ok {
		return json.Marshal(v)
	}
	return json.Marshal(t.source)
}

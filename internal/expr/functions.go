// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package expr

import (
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// functions is the fixed set of functions available to templates.
var functions = map[string]function.Function{
	"abs":       stdlib.AbsoluteFunc,
	"ceil":      stdlib.CeilFunc,
	"coalesce":  stdlib.CoalesceFunc,
	"concat":    stdlib.ConcatFunc,
	"contains":  stdlib.ContainsFunc,
	"distinct":  stdlib.DistinctFunc,
	"flatten":   stdlib.FlattenFunc,
	"floor":     stdlib.FloorFunc,
	"format":    stdlib.FormatFunc,
	"join":      stdlib.JoinFunc,
	"keys":      stdlib.KeysFunc,
	"length":    stdlib.LengthFunc,
	"log":       stdlib.LogFunc,
	"lookup":    stdlib.LookupFunc,
	"lower":     stdlib.LowerFunc,
	"max":       stdlib.MaxFunc,
	"min":       stdlib.MinFunc,
	"pow":       stdlib.PowFunc,
	"reverse":   stdlib.ReverseListFunc,
	"signum":    stdlib.SignumFunc,
	"sort":      stdlib.SortFunc,
	"trimspace": stdlib.TrimSpaceFunc,
	"upper":     stdlib.UpperFunc,
	"values":    stdlib.ValuesFunc,
}

// walkForFunctions recursively walks the AST, looking only for function calls.
func walkForFunctions(expr hclsyntax.Expression, found map[string]struct{}) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		found[e.Name] = struct{}{}
		for _, arg := range e.Args {
			walkForFunctions(arg, found)
		}
	case *hclsyntax.BinaryOpExpr:
		walkForFunctions(e.LHS, found)
		walkForFunctions(e.RHS, found)
	case *hclsyntax.ConditionalExpr:
		walkForFunctions(e.Condition, found)
		walkForFunctions(e.TrueResult, found)
		walkForFunctions(e.FalseResult, found)
	case *hclsyntax.UnaryOpExpr:
		walkForFunctions(e.Val, found)
	case *hclsyntax.TemplateExpr:
		for _, part := range e.Parts {
			walkForFunctions(part, found)
		}
	case *hclsyntax.TemplateWrapExpr:
		walkForFunctions(e.Wrapped, found)
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			walkForFunctions(item, found)
		}
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			walkForFunctions(item.KeyExpr, found)
			walkForFunctions(item.ValueExpr, found)
		}
	case *hclsyntax.ForExpr:
		walkForFunctions(e.CollExpr, found)
		walkForFunctions(e.KeyExpr, found)
		walkForFunctions(e.ValExpr, found)
		walkForFunctions(e.CondExpr, found)
	case *hclsyntax.IndexExpr:
		walkForFunctions(e.Collection, found)
		walkForFunctions(e.Key, found)
	case *hclsyntax.SplatExpr:
		walkForFunctions(e.Source, found)
		walkForFunctions(e.Each, found)
	case *hclsyntax.ParenthesesExpr:
		walkForFunctions(e.Expression, found)
	}
}

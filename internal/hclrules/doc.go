// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package hclrules loads rule definitions from HCL files and translates them
// into the format-agnostic rule.Config.
//
// A rule file looks like this:
//
//	rule "ranges" {
//	  variables = { min_rows = 10 }
//
//	  domain_builder "column" {
//	    include_semantic_types = ["numeric"]
//	  }
//
//	  parameter_builder "metric_single_batch" "min" {
//	    metric_name = "column.min"
//	  }
//
//	  configuration_builder "default" {
//	    type      = "range_check"
//	    fields    = { field = domain.column, min = parameter.min.value }
//	    condition = parameter.min.value >= 0
//	  }
//	}
//
// Attribute values are kept as expressions. References to domain, variables
// and parameter are resolved per domain when the rule is evaluated; values
// without references are evaluated once at load time.
package hclrules

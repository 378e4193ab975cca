// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package errdefs holds the error taxonomy shared by every stage of the
// profiling pipeline.
//
// Errors are grouped by the smallest unit they are fatal to:
//
//   - Construction: ConfigurationError (wrapping CyclicDependencyError,
//     InvalidScopeError, MalformedTemplateError, UnknownBuilderError,
//     UnknownParameterError). Raised before any evaluation starts.
//   - Domain: UnresolvedParameterError, UndefinedVariableError,
//     TemplateResolutionError, MetricComputationError, DuplicateWriteError.
//     Contained at the domain boundary.
//   - Rule: NoDomainsFoundError. The orchestrator moves on to the next rule.
//
// All types support errors.As through the usual Unwrap chain.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration matches any ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports an invalid rule or builder definition.
type ConfigurationError struct {
	Rule      string
	Component string
	Err       error
}

func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration error")
	if e.Rule != "" {
		fmt.Fprintf(&sb, " in rule %q", e.Rule)
	}
	if e.Component != "" {
		fmt.Fprintf(&sb, " (%s)", e.Component)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConfiguration) true for every ConfigurationError.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// NewConfigurationError wraps err as a ConfigurationError.
func NewConfigurationError(rule, component string, err error) *ConfigurationError {
	return &ConfigurationError{Rule: rule, Component: component, Err: err}
}

// CyclicDependencyError is raised when parameter builders depend on each other
// in a loop.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency detected: %s", strings.Join(e.Cycle, " -> "))
}

// InvalidScopeError is raised when something tries to write into a read-only
// scope (domain or variables).
type InvalidScopeError struct {
	Name  string
	Scope string
}

func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("cannot write %q: scope %q is read-only", e.Name, e.Scope)
}

// MalformedTemplateError is raised when a template cannot be parsed.
type MalformedTemplateError struct {
	Template string
	Err      error
}

func (e *MalformedTemplateError) Error() string {
	return fmt.Sprintf("malformed template %q: %v", e.Template, e.Err)
}

func (e *MalformedTemplateError) Unwrap() error { return e.Err }

// UnknownBuilderError is raised when a builder type tag has no registered factory.
type UnknownBuilderError struct {
	Stage string
	Type  string
}

func (e *UnknownBuilderError) Error() string {
	return fmt.Sprintf("unknown %s builder type %q", e.Stage, e.Type)
}

// UnknownParameterError is raised when a consumer references a parameter that
// no builder in the rule produces.
type UnknownParameterError struct {
	Reference string
	Consumer  string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("%s references %q, which no parameter builder in the rule produces", e.Consumer, e.Reference)
}

// DuplicateWriteError is raised when a parameter is written twice for the same
// domain within one evaluation.
type DuplicateWriteError struct {
	Domain string
	Name   string
}

func (e *DuplicateWriteError) Error() string {
	return fmt.Sprintf("parameter %q already written for domain %s", e.Name, e.Domain)
}

// UnresolvedParameterError is raised when a parameter or domain path has no value.
type UnresolvedParameterError struct {
	Domain string
	Name   string
}

func (e *UnresolvedParameterError) Error() string {
	return fmt.Sprintf("unresolved parameter %q for domain %s", e.Name, e.Domain)
}

// UndefinedVariableError is raised when a variables.* reference has no value.
type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable %q", e.Name)
}

// TemplateResolutionError is raised when a template cannot be resolved.
// Reference names the first offending reference, if any.
type TemplateResolutionError struct {
	Template  string
	Reference string
	Err       error
}

func (e *TemplateResolutionError) Error() string {
	if e.Reference != "" {
		return fmt.Sprintf("cannot resolve %q in template %q: %v", e.Reference, e.Template, e.Err)
	}
	return fmt.Sprintf("cannot resolve template %q: %v", e.Template, e.Err)
}

func (e *TemplateResolutionError) Unwrap() error { return e.Err }

// MetricComputationError wraps a failure reported by the metric backend.
type MetricComputationError struct {
	Metric string
	Domain string
	Err    error
}

func (e *MetricComputationError) Error() string {
	return fmt.Sprintf("metric %q failed for domain %s: %v", e.Metric, e.Domain, e.Err)
}

func (e *MetricComputationError) Unwrap() error { return e.Err }

// NoDomainsFoundError is raised when a domain builder produces nothing.
type NoDomainsFoundError struct {
	Builder string
	Reason  string
}

func (e *NoDomainsFoundError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s domain builder found no domains", e.Builder)
	}
	return fmt.Sprintf("%s domain builder found no domains: %s", e.Builder, e.Reason)
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package builder defines the three stages of the profiling pipeline and the
// declarative Spec they are constructed from.
//
// # Stages
//
//   - **DomainBuilder:** discovers the domains a rule targets from the batch schema.
//   - **ParameterBuilder:** computes one named value per domain, usually by asking
//     the metric backend, and may read the outputs of earlier builders.
//   - **ConfigurationBuilder:** turns resolved parameters into zero or one
//     configuration per domain.
//
// # How Builders Are Created
//
// Rules describe builders as Specs: a type tag, an optional name, and an
// options map. The registry maps each type tag to a factory that validates the
// options and returns a ready builder. Templates in options are compiled once
// at construction, so a malformed template fails the rule before any
// evaluation starts.
//
// Builders hold no per-domain state. Everything domain specific flows through
// the arguments of Build, which is what lets a rule evaluate domains in
// parallel.
package builder

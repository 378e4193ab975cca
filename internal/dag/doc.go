// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package dag holds the dependency graph between the parameter builders of a
// rule. Edges are recorded once at rule construction; the graph is then used
// to reject cycles and to produce a deterministic evaluation order.
package dag

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package registry provides the central "glue" between rule definitions and
// builder implementations.
//
// The Registry maps the type tags used in rule definitions (e.g. "column",
// "metric_single_batch", "default") to the factories that create the
// matching builders. Builder packages expose a Module whose Register method
// adds their factories; registering the same tag twice is a programming error
// and panics.
package registry

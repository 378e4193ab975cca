// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package paramstore provides the domain-scoped parameter store shared by the
// builders of one rule evaluation.
//
// # Purpose
//
// Parameter builders write their results here and later builders (and the
// configuration builders) read them back through fully-qualified parameter
// names. The store is created fresh for every rule evaluation and discarded
// once the configuration builders have finished.
//
// # Scopes
//
//   - parameter.*: written by parameter builders, partitioned per domain.
//   - domain.*: read-only, synthesized from the domain itself.
//   - variables.*: read-only, the rule's variables map.
//
// # Concurrency Model
//
// Partitions live in a sync.Map keyed by domain ID, so domains evaluated in
// parallel never contend on the same lock. Each partition guards its own map
// with a mutex; in practice a partition is only ever touched by the goroutine
// evaluating that domain.
//
// Writes are write-once per (domain, name): a second write fails with a
// DuplicateWriteError instead of silently replacing the earlier value.
package paramstore

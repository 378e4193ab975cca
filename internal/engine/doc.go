// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package engine is the orchestrator. It evaluates rules in declaration order
// against a set of batches and merges every evaluation into one
// result.Result.
//
// Rules never share parameter stores. A rule that fails is recorded and the
// run moves on to the next one. Cancelling the context stops the run at the
// next domain boundary and marks the result as cancelled.
package engine

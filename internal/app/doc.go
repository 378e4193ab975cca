// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the profiling lifecycle: load rules, load
// batches, run the engine and write the result. It is decoupled from any
// specific entrypoint like a CLI.
package app

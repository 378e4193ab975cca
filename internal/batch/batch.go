// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package batch defines the abstract data batch handle consumed by the
// profiling pipeline. Loading and connecting to datasets is left to
// implementations of Batch.
package batch

import (
	"context"
	"fmt"
	"strings"
)

// SemanticType is the inferred kind of a column.
type SemanticType string

const (
	Numeric  SemanticType = "numeric"
	Text     SemanticType = "text"
	Datetime SemanticType = "datetime"
	Boolean  SemanticType = "boolean"
	Unknown  SemanticType = "unknown"
)

// ParseSemanticType normalizes a semantic type name.
func ParseSemanticType(s string) (SemanticType, error) {
	switch t := SemanticType(strings.ToLower(strings.TrimSpace(s))); t {
	case Numeric, Text, Datetime, Boolean, Unknown:
		return t, nil
	default:
		return "", fmt.Errorf("unknown semantic type %q: expected numeric, text, datetime, boolean, or unknown", s)
	}
}

// Column describes one column of a batch schema.
type Column struct {
	Name string
	Type SemanticType
}

// Batch is an opaque handle to one slice of a dataset.
type Batch interface {
	// ID identifies the batch in results and citations.
	ID() string
	// Columns introspects the batch schema in a stable order.
	Columns(ctx context.Context) ([]Column, error)
}

// IDs returns the identifiers of the given batches in order.
func IDs(batches []Batch) []string {
	ids := make([]string, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.ID())
	}
	return ids
}

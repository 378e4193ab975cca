// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package memdata provides an in-memory dataset and a metric backend over it.
// It backs the CLI and the tests; real deployments plug their own
// batch.Batch and metric.Backend implementations into the engine.
package memdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/specialistvlad/profilegrid/internal/batch"
)

// Batch is a row-oriented in-memory batch.
type Batch struct {
	id      string
	columns []batch.Column
	rows    []map[string]any
}

// NewBatch creates a batch with an explicit schema. Rows are not copied.
func NewBatch(id string, columns []batch.Column, rows []map[string]any) *Batch {
	return &Batch{id: id, columns: slices.Clone(columns), rows: rows}
}

// FromRecords creates a batch and infers its schema from the records.
// Columns are sorted by name since records carry no column order.
func FromRecords(id string, records []map[string]any) *Batch {
	seen := map[string]struct{}{}
	for _, r := range records {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	names := slices.Sorted(maps.Keys(seen))

	columns := make([]batch.Column, 0, len(names))
	for _, name := range names {
		columns = append(columns, batch.Column{Name: name, Type: inferType(records, name)})
	}
	return &Batch{id: id, columns: columns, rows: records}
}

// LoadJSON reads a JSON array of objects into a batch.
func LoadJSON(id string, r io.Reader) (*Batch, error) {
	var records []map[string]any
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding records for batch %q: %w", id, err)
	}
	return FromRecords(id, records), nil
}

// ID implements batch.Batch.
func (b *Batch) ID() string { return b.id }

// Columns implements batch.Batch.
func (b *Batch) Columns(ctx context.Context) ([]batch.Column, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(b.columns), nil
}

// RowCount returns the number of rows.
func (b *Batch) RowCount() int { return len(b.rows) }

// Values returns the values of one column, nil for rows that lack it.
func (b *Batch) Values(column string) ([]any, error) {
	if !slices.ContainsFunc(b.columns, func(c batch.Column) bool { return c.Name == column }) {
		return nil, fmt.Errorf("batch %q has no column %q", b.id, column)
	}
	out := make([]any, len(b.rows))
	for i, r := range b.rows {
		out[i] = r[column]
	}
	return out, nil
}

func inferType(records []map[string]any, column string) batch.SemanticType {
	var result batch.SemanticType
	for _, r := range records {
		v, ok := r[column]
		if !ok || v == nil {
			continue
		}
		t := typeOf(v)
		switch {
		case result == "":
			result = t
		case result != t:
			return batch.Text
		}
	}
	if result == "" {
		return batch.Unknown
	}
	return result
}

func typeOf(v any) batch.SemanticType {
	switch s := v.(type) {
	case bool:
		return batch.Boolean
	case time.Time:
		return batch.Datetime
	case string:
		if _, err := time.Parse(time.RFC3339, s); err == nil {
			return batch.Datetime
		}
		if _, err := time.Parse(time.DateOnly, s); err == nil {
			return batch.Datetime
		}
		return batch.Text
	}
	if _, ok := toFloat(v); ok {
		return batch.Numeric
	}
	return batch.Text
}

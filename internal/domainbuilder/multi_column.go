// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package domainbuilder

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/profilegrid/internal/batch"
	"github.com/specialistvlad/profilegrid/internal/builder"
	"github.com/specialistvlad/profilegrid/internal/domain"
	"github.com/specialistvlad/profilegrid/internal/errdefs"
)

// OptColumnList lists the columns of a multi-column domain.
const OptColumnList = "column_list"

// MultiColumnBuilder yields one domain spanning a fixed set of columns.
type MultiColumnBuilder struct {
	columns []string
}

// NewMultiColumnBuilder validates opts and returns a multi-column domain builder.
func NewMultiColumnBuilder(opts builder.Options) (builder.DomainBuilder, error) {
	if err := opts.Check(OptColumnList); err != nil {
		return nil, err
	}
	cols, _, err := opts.StringSlice(OptColumnList)
	if err != nil {
		return nil, err
	}
	if len(cols) < 2 {
		return nil, fmt.Errorf("option %q needs at least two columns", OptColumnList)
	}
	return &MultiColumnBuilder{columns: cols}, nil
}

// Type implements builder.DomainBuilder.
func (b *MultiColumnBuilder) Type() string { return string(domain.TypeMultiColumn) }

// Build implements builder.DomainBuilder.
func (b *MultiColumnBuilder) Build(ctx context.Context, batches []batch.Batch) ([]domain.Domain, error) {
	columns, err := commonColumns(ctx, batches)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range b.columns {
		if !slices.ContainsFunc(columns, func(c batch.Column) bool { return c.Name == name }) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &errdefs.NoDomainsFoundError{
			Builder: b.Type(),
			Reason:  fmt.Sprintf("column(s) not found in every batch: %s", strings.Join(missing, ", ")),
		}
	}

	kwargs := map[string]any{domain.KeyColumnList: slices.Clone(b.columns)}
	return []domain.Domain{domain.New(domain.TypeMultiColumn, kwargs, nil)}, nil
}

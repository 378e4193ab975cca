// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package domainbuilder

import (
	"context"

	"github.com/specialistvlad/profilegrid/internal/batch"
	"github.com/specialistvlad/profilegrid/internal/builder"
	"github.com/specialistvlad/profilegrid/internal/domain"
	"github.com/specialistvlad/profilegrid/internal/errdefs"
)

// OptTable names the table in the domain kwargs.
const OptTable = "table"

// TableBuilder yields exactly one domain covering the whole table.
type TableBuilder struct {
	table string
}

// NewTableBuilder validates opts and returns a table domain builder.
func NewTableBuilder(opts builder.Options) (builder.DomainBuilder, error) {
	if err := opts.Check(OptTable); err != nil {
		return nil, err
	}
	table, err := opts.String(OptTable, "")
	if err != nil {
		return nil, err
	}
	return &TableBuilder{table: table}, nil
}

// Type implements builder.DomainBuilder.
func (b *TableBuilder) Type() string { return string(domain.TypeTable) }

// Build implements builder.DomainBuilder.
func (b *TableBuilder) Build(_ context.Context, batches []batch.Batch) ([]domain.Domain, error) {
	if len(batches) == 0 {
		return nil, &errdefs.NoDomainsFoundError{Builder: b.Type(), Reason: "no batches"}
	}
	kwargs := map[string]any{}
	if b.table != "" {
		kwargs[domain.KeyTable] = b.table
	}
	return []domain.Domain{domain.New(domain.TypeTable, kwargs, nil)}, nil
}

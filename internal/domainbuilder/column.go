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
	"github.com/specialistvlad/profilegrid/internal/ctxlog"
	"github.com/specialistvlad/profilegrid/internal/domain"
	"github.com/specialistvlad/profilegrid/internal/errdefs"
)

// Column builder options.
const (
	OptIncludeColumnNames        = "include_column_names"
	OptExcludeColumnNames        = "exclude_column_names"
	OptIncludeColumnNameSuffixes = "include_column_name_suffixes"
	OptExcludeColumnNameSuffixes = "exclude_column_name_suffixes"
	OptIncludeSemanticTypes      = "include_semantic_types"
	OptExcludeSemanticTypes      = "exclude_semantic_types"
	OptSemanticFilterMode        = "semantic_filter_mode"
)

// Semantic filter modes.
const (
	FilterModeAll = "all"
	FilterModeAny = "any"
)

// DetailInferredSemanticType is the domain detail carrying the column's type.
const DetailInferredSemanticType = "inferred_semantic_type"

const typeColumn = string(domain.TypeColumn)

// ColumnBuilder yields one domain per column that survives the filters.
type ColumnBuilder struct {
	include         []string
	hasInclude      bool
	exclude         []string
	includeSuffixes []string
	excludeSuffixes []string
	includeTypes    []batch.SemanticType
	excludeTypes    []batch.SemanticType
	mode            string
}

// NewColumnBuilder validates opts and returns a column domain builder.
func NewColumnBuilder(opts builder.Options) (builder.DomainBuilder, error) {
	if err := opts.Check(OptIncludeColumnNames, OptExcludeColumnNames, OptIncludeColumnNameSuffixes,
		OptExcludeColumnNameSuffixes, OptIncludeSemanticTypes, OptExcludeSemanticTypes, OptSemanticFilterMode); err != nil {
		return nil, err
	}

	b := &ColumnBuilder{}
	var err error
	if b.include, b.hasInclude, err = opts.StringSlice(OptIncludeColumnNames); err != nil {
		return nil, err
	}
	if b.exclude, _, err = opts.StringSlice(OptExcludeColumnNames); err != nil {
		return nil, err
	}
	if b.includeSuffixes, _, err = opts.StringSlice(OptIncludeColumnNameSuffixes); err != nil {
		return nil, err
	}
	if b.excludeSuffixes, _, err = opts.StringSlice(OptExcludeColumnNameSuffixes); err != nil {
		return nil, err
	}
	if b.includeTypes, err = semanticTypes(opts, OptIncludeSemanticTypes); err != nil {
		return nil, err
	}
	if b.excludeTypes, err = semanticTypes(opts, OptExcludeSemanticTypes); err != nil {
		return nil, err
	}
	if b.mode, err = opts.String(OptSemanticFilterMode, FilterModeAll); err != nil {
		return nil, err
	}
	if b.mode != FilterModeAll && b.mode != FilterModeAny {
		return nil, fmt.Errorf("option %q must be %q or %q, got %q", OptSemanticFilterMode, FilterModeAll, FilterModeAny, b.mode)
	}
	return b, nil
}

func semanticTypes(opts builder.Options, key string) ([]batch.SemanticType, error) {
	names, _, err := opts.StringSlice(key)
	if err != nil {
		return nil, err
	}
	out := make([]batch.SemanticType, 0, len(names))
	for _, n := range names {
		t, err := batch.ParseSemanticType(n)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", key, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Type implements builder.DomainBuilder.
func (b *ColumnBuilder) Type() string { return typeColumn }

// Build implements builder.DomainBuilder.
func (b *ColumnBuilder) Build(ctx context.Context, batches []batch.Batch) ([]domain.Domain, error) {
	logger := ctxlog.FromContext(ctx)

	columns, err := commonColumns(ctx, batches)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, &errdefs.NoDomainsFoundError{Builder: typeColumn, Reason: "batches share no columns"}
	}

	var selected []batch.Column
	if b.hasInclude {
		selected, err = b.byIncludeList(columns)
		if err != nil {
			return nil, err
		}
	} else {
		for _, c := range columns {
			if b.passesFilters(c) {
				selected = append(selected, c)
			}
		}
	}

	domains := make([]domain.Domain, 0, len(selected))
	for _, c := range selected {
		if slices.Contains(b.exclude, c.Name) {
			logger.Debug("Column excluded by name.", "column", c.Name)
			continue
		}
		domains = append(domains, domain.Column(c.Name, map[string]any{DetailInferredSemanticType: string(c.Type)}))
	}

	if len(domains) == 0 {
		return nil, &errdefs.NoDomainsFoundError{Builder: typeColumn, Reason: fmt.Sprintf("all %d column(s) were filtered out", len(columns))}
	}
	logger.Debug("Column domains built.", "candidates", len(columns), "domains", len(domains))
	return domains, nil
}

// byIncludeList keeps the listed columns in schema order. Suffix and
// semantic filters do not apply.
func (b *ColumnBuilder) byIncludeList(columns []batch.Column) ([]batch.Column, error) {
	var missing []string
	for _, name := range b.include {
		if !slices.ContainsFunc(columns, func(c batch.Column) bool { return c.Name == name }) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &errdefs.NoDomainsFoundError{
			Builder: typeColumn,
			Reason:  fmt.Sprintf("%s lists column(s) missing from the batch schema: %s", OptIncludeColumnNames, strings.Join(missing, ", ")),
		}
	}

	var out []batch.Column
	for _, c := range columns {
		if slices.Contains(b.include, c.Name) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (b *ColumnBuilder) passesFilters(c batch.Column) bool {
	hasSuffixInclude := len(b.includeSuffixes) > 0
	hasTypeInclude := len(b.includeTypes) > 0
	suffixOK := !hasSuffixInclude || hasAnySuffix(c.Name, b.includeSuffixes)
	typeOK := !hasTypeInclude || slices.Contains(b.includeTypes, c.Type)

	var included bool
	switch {
	case b.mode == FilterModeAny && hasSuffixInclude && hasTypeInclude:
		included = hasAnySuffix(c.Name, b.includeSuffixes) || slices.Contains(b.includeTypes, c.Type)
	default:
		included = suffixOK && typeOK
	}
	if !included {
		return false
	}

	if hasAnySuffix(c.Name, b.excludeSuffixes) {
		return false
	}
	return !slices.Contains(b.excludeTypes, c.Type)
}

func hasAnySuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// commonColumns returns the columns present in every batch, ordered as in
// the first batch.
func commonColumns(ctx context.Context, batches []batch.Batch) ([]batch.Column, error) {
	if len(batches) == 0 {
		return nil, &errdefs.NoDomainsFoundError{Builder: typeColumn, Reason: "no batches"}
	}

	first, err := batches[0].Columns(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading schema of batch %q: %w", batches[0].ID(), err)
	}
	common := slices.Clone(first)

	for _, b := range batches[1:] {
		cols, err := b.Columns(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading schema of batch %q: %w", b.ID(), err)
		}
		common = slices.DeleteFunc(common, func(c batch.Column) bool {
			return !slices.ContainsFunc(cols, func(o batch.Column) bool { return o.Name == c.Name })
		})
	}
	return common, nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package domainbuilder implements the built-in domain builders: column,
// table and multi_column.
package domainbuilder

import (
	"github.com/specialistvlad/profilegrid/internal/domain"
	"github.com/specialistvlad/profilegrid/internal/registry"
)

// Module registers the built-in domain builders.
type Module struct{}

// Register implements registry.Module.
func (Module) Register(r *registry.Registry) {
	r.RegisterDomainBuilder(string(domain.TypeColumn), NewColumnBuilder)
	r.RegisterDomainBuilder(string(domain.TypeTable), NewTableBuilder)
	r.RegisterDomainBuilder(string(domain.TypeMultiColumn), NewMultiColumnBuilder)
}

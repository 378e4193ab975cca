// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"github.com/specialistvlad/profilegrid/internal/configbuilder"
	"github.com/specialistvlad/profilegrid/internal/domainbuilder"
	"github.com/specialistvlad/profilegrid/internal/parambuilder"
	"github.com/specialistvlad/profilegrid/internal/registry"
)

// coreModules is the definitive list of all builder modules that are
// compiled into the profilegrid binary.
var coreModules = []registry.Module{
	domainbuilder.Module{},
	parambuilder.Module{},
	configbuilder.Module{},
}

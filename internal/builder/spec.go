// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package builder

import (
	"fmt"

	"github.com/specialistvlad/profilegrid/internal/expr"
)

// Spec declares a builder: its type tag, its name (parameter builders only)
// and its options.
type Spec struct {
	Type    string  `json:"type" yaml:"type"`
	Name    string  `json:"name,omitempty" yaml:"name,omitempty"`
	Options Options `json:"options,omitempty" yaml:"options,omitempty"`
}

// Canonical renders the spec in a stable form. Two specs with the same
// canonical form build identical builders.
func (s Spec) Canonical() string {
	opts := "{}"
	if len(s.Options) > 0 {
		if t, err := expr.Compile(map[string]any(s.Options)); err == nil {
			opts = t.Canonical()
		} else {
			opts = fmt.Sprint(map[string]any(s.Options))
		}
	}
	return fmt.Sprintf("%s/%s%s", s.Type, s.Name, opts)
}

// String is a short label for logs and error messages.
func (s Spec) String() string {
	if s.Name == "" {
		return s.Type
	}
	return fmt.Sprintf("%s %q", s.Type, s.Name)
}

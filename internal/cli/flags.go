// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package cli

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// listFlag collects a repeatable flag; comma-separated values are split.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// varsFlag collects repeatable key=value variable overrides. Values are
// parsed as YAML scalars or flow collections, so 10 is a number, true a bool
// and [0.1, 0.9] a list; anything else stays a string.
type varsFlag map[string]any

func (v varsFlag) String() string {
	parts := make([]string, 0, len(v))
	for k, val := range v {
		parts = append(parts, fmt.Sprintf("%s=%v", k, val))
	}
	return strings.Join(parts, ",")
}

func (v varsFlag) Set(s string) error {
	key, raw, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("variable must be key=value, got %q", s)
	}
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
		value = raw
	}
	v[key] = value
	return nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package configuration defines the validation-rule instances the profiler
// emits.
package configuration

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Configuration is one emitted validation-rule instance. Two configurations
// are the same when Type and Fields match; Meta is informational only.
type Configuration struct {
	Type   string         `json:"type" yaml:"type"`
	Fields map[string]any `json:"fields" yaml:"fields"`
	Meta   map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// New creates a configuration. The maps are copied.
func New(configType string, fields, meta map[string]any) *Configuration {
	c := &Configuration{Type: configType, Fields: map[string]any{}}
	maps.Copy(c.Fields, fields)
	if len(meta) > 0 {
		c.Meta = maps.Clone(meta)
	}
	return c
}

// Key returns the identity used for deduplication: the type plus the fields
// rendered with sorted keys.
func (c *Configuration) Key() string {
	b, err := json.Marshal(c.Fields)
	if err != nil {
		return fmt.Sprintf("%s%v", c.Type, c.Fields)
	}
	return c.Type + string(b)
}

// Equal reports whether both configurations have the same type and fields.
func (c *Configuration) Equal(o *Configuration) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Key() == o.Key()
}

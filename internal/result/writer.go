// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package result

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format selects the serialisation of a written Result.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q: must be json or yaml", s)
	}
}

// Writer serialises results for downstream consumers.
type Writer struct {
	format Format
}

// NewWriter creates a writer for the given format.
func NewWriter(format Format) *Writer {
	return &Writer{format: format}
}

// Write encodes r to out.
func (w *Writer) Write(out io.Writer, r *Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode result as json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode result as yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", w.format)
	}
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/profilegrid/internal/result"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	RulesPaths []string // hcl files or directories
	DataPaths  []string // json record files or directories

	// OutputPath is where the result is written. Empty means the app's
	// output writer.
	OutputPath   string
	OutputFormat result.Format

	LogFormat   string
	LogLevel    string
	WorkerCount int

	// Variables override rule variables for every rule.
	Variables map[string]any
	// FailOnError makes Run return an error unless every rule succeeded.
	FailOnError bool
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.RulesPaths) == 0 {
		return nil, errors.New("at least one rules path is required")
	}
	if len(cfg.DataPaths) == 0 {
		return nil, errors.New("at least one data path is required")
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = result.FormatJSON
	}
	if _, err := result.ParseFormat(string(cfg.OutputFormat)); err != nil {
		return nil, err
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.WorkerCount)
	}
	return &cfg, nil
}

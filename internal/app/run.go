// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/profilegrid/internal/ctxlog"
	"github.com/specialistvlad/profilegrid/internal/engine"
	"github.com/specialistvlad/profilegrid/internal/hclrules"
	"github.com/specialistvlad/profilegrid/internal/memdata"
	"github.com/specialistvlad/profilegrid/internal/result"
)

// Run executes the main application logic based on the app's configuration.
// Contained rule and domain failures are reported in the written result;
// they only make Run fail when FailOnError is set.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	rules, err := hclrules.NewLoader(a.registry).Load(ctx, a.config.RulesPaths...)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	a.logger.Info("Rules loaded.", "count", len(rules))

	batches, err := loadBatches(ctx, a.config.DataPaths)
	if err != nil {
		return fmt.Errorf("failed to load data: %w", err)
	}
	a.logger.Info("Batches loaded.", "count", len(batches))

	backend := a.backend
	if backend == nil {
		be := memdata.NewBackend()
		a.logger.Debug("Using in-memory metric backend.", "metrics", be.Metrics())
		backend = be
	}
	eng := engine.New(backend,
		engine.WithConcurrency(a.config.WorkerCount),
		engine.WithVariables(a.config.Variables),
	)
	res := eng.Run(ctx, rules, batches)

	if err := a.writeResult(res); err != nil {
		return err
	}

	a.logger.Debug("App.Run method finished.")
	if a.config.FailOnError && res.HasFailures() {
		return fmt.Errorf("profiler run finished with status %s", res.Status)
	}
	return nil
}

func (a *App) writeResult(res *result.Result) (err error) {
	var out io.Writer = a.outW
	if a.config.OutputPath != "" {
		f, createErr := os.Create(a.config.OutputPath)
		if createErr != nil {
			return fmt.Errorf("failed to create output file: %w", createErr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close output file: %w", cerr)
			}
		}()
		out = f
	}
	if err := result.NewWriter(a.config.OutputFormat).Write(out, res); err != nil {
		return err
	}
	a.logger.Debug("Result written.", "format", a.config.OutputFormat, "path", a.config.OutputPath)
	return nil
}

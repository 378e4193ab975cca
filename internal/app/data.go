// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/profilegrid/internal/batch"
	"github.com/specialistvlad/profilegrid/internal/ctxlog"
	"github.com/specialistvlad/profilegrid/internal/fsutil"
	"github.com/specialistvlad/profilegrid/internal/memdata"
)

const dataExtension = ".json"

// loadBatches reads every JSON record file under paths as one batch. The
// batch ID is the file name without its extension.
func loadBatches(ctx context.Context, paths []string) ([]batch.Batch, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.ResolvePaths(dataExtension, paths...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s data files found in %v", dataExtension, paths)
	}

	batches := make([]batch.Batch, 0, len(files))
	seen := map[string]string{}
	for _, file := range files {
		id := strings.TrimSuffix(filepath.Base(file), dataExtension)
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("batch %q is loaded from both %s and %s", id, prev, file)
		}
		seen[id] = file

		b, err := loadFile(id, file)
		if err != nil {
			return nil, err
		}
		logger.Debug("Batch loaded.", "batch_id", id, "path", file, "rows", b.RowCount())
		batches = append(batches, b)
	}
	return batches, nil
}

func loadFile(id, path string) (*memdata.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file %s: %w", path, err)
	}
	defer f.Close()
	return memdata.LoadJSON(id, f)
}

package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/profilegrid/internal/app"
	"github.com/specialistvlad/profilegrid/internal/metric"
	"github.com/specialistvlad/profilegrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// runResult is the decoded JSON result plus the captured logs.
type runResult struct {
	LogOutput string
	Err       error
	Output    decodedResult
}

type decodedResult struct {
	Status         string `json:"status"`
	Configurations []struct {
		Type   string         `json:"type"`
		Fields map[string]any `json:"fields"`
		Meta   map[string]any `json:"meta"`
	} `json:"configurations"`
	MetricsByDomain map[string]map[string]struct {
		Value   any            `json:"value"`
		Details map[string]any `json:"details"`
	} `json:"metrics_by_domain"`
	Rules []struct {
		Name                  string `json:"name"`
		State                 string `json:"state"`
		Error                 string `json:"error"`
		Configurations        int    `json:"configurations"`
		SkippedConfigurations int    `json:"skipped_configurations"`
		FailedDomains         []struct {
			Domain string `json:"domain"`
			Error  string `json:"error"`
		} `json:"failed_domains"`
	} `json:"rules"`
	Citation struct {
		BatchIDs []string `json:"batch_ids"`
		Rules    []string `json:"rules"`
		Origins  []struct {
			Configuration int    `json:"configuration"`
			Rule          string `json:"rule"`
			Domain        string `json:"domain"`
		} `json:"origins"`
	} `json:"citation"`
	Conflicts []map[string]any `json:"conflicts"`
}

// runProfiler writes files under a temporary root, runs the app on its
// rules/ and data/ directories and decodes the JSON result. A nil backend
// means the in-memory one.
func runProfiler(t *testing.T, files map[string]string, backend metric.Backend, vars map[string]any) *runResult {
	t.Helper()

	root := testutil.WriteTree(t, files)
	cfg, err := app.NewConfig(app.Config{
		RulesPaths:  []string{filepath.Join(root, "rules")},
		DataPaths:   []string{filepath.Join(root, "data")},
		LogLevel:    "debug",
		LogFormat:   "text",
		WorkerCount: 4,
		Variables:   vars,
	})
	require.NoError(t, err)

	var opts []app.Option
	if backend != nil {
		opts = append(opts, app.WithBackend(backend))
	}
	out, logs := &bytes.Buffer{}, &testutil.SafeBuffer{}
	runErr := app.NewApp(out, logs, cfg, opts...).Run(context.Background())

	t.Cleanup(func() {
		if os.Getenv("PROFILEGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	res := &runResult{LogOutput: logs.String(), Err: runErr}
	if runErr == nil {
		require.NoError(t, json.Unmarshal(out.Bytes(), &res.Output), out.String())
	}
	return res
}

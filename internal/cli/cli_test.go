package cli

import (
	"bytes"
	"testing"

	"github.com/specialistvlad/profilegrid/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, exit, err := Parse([]string{"--data", "data/orders.json", "rules/"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, []string{"rules/"}, cfg.RulesPaths)
	assert.Equal(t, []string{"data/orders.json"}, cfg.DataPaths)
	assert.Equal(t, result.FormatJSON, cfg.OutputFormat)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.False(t, cfg.FailOnError)
	assert.Empty(t, cfg.Variables)
}

func TestParse_AllFlags(t *testing.T) {
	cfg, exit, err := Parse([]string{
		"-r", "a.hcl,b.hcl",
		"--rules", "c.hcl",
		"-d", "one.json", "--data", "two.json",
		"--var", "limit=10",
		"--var", "quantiles=[0.1, 0.9]",
		"--var", "label=orders table",
		"--output", "out.yaml",
		"--output-format", "YAML",
		"--log-format", "json",
		"--log-level", "DEBUG",
		"--workers", "8",
		"--fail-on-error",
	}, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, []string{"a.hcl", "b.hcl", "c.hcl"}, cfg.RulesPaths)
	assert.Equal(t, []string{"one.json", "two.json"}, cfg.DataPaths)
	assert.Equal(t, map[string]any{
		"limit":     10,
		"quantiles": []any{0.1, 0.9},
		"label":     "orders table",
	}, cfg.Variables)
	assert.Equal(t, "out.yaml", cfg.OutputPath)
	assert.Equal(t, result.FormatYAML, cfg.OutputFormat)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.True(t, cfg.FailOnError)
}

func TestParse_HelpAndUsage(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse([]string{"-h"}, out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)

	out.Reset()
	_, exit, err = Parse([]string{"--data", "d.json"}, out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Errors(t *testing.T) {
	testCases := map[string]struct {
		args []string
		want string
	}{
		"unknown flag":    {[]string{"--nope"}, "flag provided but not defined"},
		"missing data":    {[]string{"rules/"}, "missing --data"},
		"bad log format":  {[]string{"-d", "d", "--log-format", "xml", "r"}, "invalid log-format"},
		"bad log level":   {[]string{"-d", "d", "--log-level", "loud", "r"}, "invalid log-level"},
		"bad output":      {[]string{"-d", "d", "--output-format", "csv", "r"}, "invalid output-format"},
		"bad variable":    {[]string{"-d", "d", "--var", "novalue", "r"}, "key=value"},
		"too few workers": {[]string{"-d", "d", "--workers", "0", "r"}, "workers must be at least 1"},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}

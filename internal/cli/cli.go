// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/profilegrid/internal/app"
	"github.com/specialistvlad/profilegrid/internal/result"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("profilegrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
ProfileGrid - A rule-based data profiler that infers validation rules.

Usage:
  profilegrid [options] --data DATA_PATH [RULES_PATH...]

Arguments:
  RULES_PATH
    Path to a single .hcl rule file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	var rules, data listFlag
	vars := varsFlag{}
	flagSet.Var(&rules, "rules", "Path to a rule file or directory. Repeatable.")
	flagSet.Var(&rules, "r", "Path to a rule file or directory (shorthand).")
	flagSet.Var(&data, "data", "Path to a JSON records file or directory; each file is one batch. Repeatable.")
	flagSet.Var(&data, "d", "Path to a JSON records file or directory (shorthand).")
	flagSet.Var(vars, "var", "Variable override as key=value, applied to every rule. Repeatable.")
	outputFlag := flagSet.String("output", "", "File to write the result to. Defaults to stdout.")
	outputFormatFlag := flagSet.String("output-format", "json", "Result format. Options: 'json' or 'yaml'.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 4, "Number of domains evaluated concurrently within a rule.")
	failOnErrorFlag := flagSet.Bool("fail-on-error", false, "Exit with a non-zero code unless every rule and domain succeeded.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	rules = append(rules, flagSet.Args()...)
	slog.Debug("Rule paths determined.", "paths", []string(rules))

	if len(rules) == 0 {
		slog.Debug("No rule path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	if len(data) == 0 {
		return nil, false, &ExitError{Code: 2, Message: "missing --data: at least one data path is required"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	format, err := result.ParseFormat(strings.ToLower(*outputFormatFlag))
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: "invalid output-format: must be 'json' or 'yaml'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		RulesPaths:   rules,
		DataPaths:    data,
		OutputPath:   *outputFlag,
		OutputFormat: format,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		WorkerCount:  *workersFlag,
		Variables:    vars,
		FailOnError:  *failOnErrorFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

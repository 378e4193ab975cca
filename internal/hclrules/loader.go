// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hclrules

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/profilegrid/internal/ctxlog"
	"github.com/specialistvlad/profilegrid/internal/fsutil"
	"github.com/specialistvlad/profilegrid/internal/registry"
	"github.com/specialistvlad/profilegrid/internal/rule"
)

// Extension is the suffix of rule files.
const Extension = ".hcl"

// Loader reads rule files and constructs rules against a registry.
type Loader struct {
	registry *registry.Registry
}

// NewLoader creates a loader that resolves builder types through reg.
func NewLoader(reg *registry.Registry) *Loader {
	return &Loader{registry: reg}
}

// fileRoot is the top-level schema of a rule file.
type fileRoot struct {
	Rules  []*ruleBlock `hcl:"rule,block"`
	Remain hcl.Body     `hcl:",remain"`
}

type ruleBlock struct {
	Name                  string                `hcl:"name,label"`
	Variables             hcl.Expression        `hcl:"variables,optional"`
	DomainBuilder         *builderBlock         `hcl:"domain_builder,block"`
	ParameterBuilders     []*namedBuilderBlock  `hcl:"parameter_builder,block"`
	ConfigurationBuilders []*configBuilderBlock `hcl:"configuration_builder,block"`
	DeclRange             hcl.Range             `hcl:",def_range"`
}

type builderBlock struct {
	Type string   `hcl:"type,label"`
	Body hcl.Body `hcl:",remain"`
}

type namedBuilderBlock struct {
	Type string   `hcl:"type,label"`
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type configBuilderBlock struct {
	Type       string               `hcl:"type,label"`
	Validation []*namedBuilderBlock `hcl:"validation_parameter_builder,block"`
	Body       hcl.Body             `hcl:",remain"`
}

// Load reads every rule file under paths, in path order, and builds the
// rules. Rule names must be unique across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) ([]*rule.Rule, error) {
	logger := ctxlog.FromContext(ctx)

	configs, err := l.LoadConfigs(ctx, paths...)
	if err != nil {
		return nil, err
	}

	rules := make([]*rule.Rule, 0, len(configs))
	for _, cfg := range configs {
		r, err := rule.New(cfg, l.registry)
		if err != nil {
			return nil, err
		}
		logger.Debug("Rule constructed.", "rule", r.Name(), "plan", r.Plan())
		for _, name := range r.Plan() {
			deps, err := r.Dependencies(name)
			if err != nil {
				return nil, err
			}
			logger.Debug("Parameter builder wired.", "rule", r.Name(), "parameter", name, "depends_on", deps)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// LoadConfigs reads every rule file under paths without constructing rules.
func (l *Loader) LoadConfigs(ctx context.Context, paths ...string) ([]rule.Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL rule loader started.", "path_count", len(paths))

	files, err := fsutil.ResolvePaths(Extension, paths...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s rule files found in %v", Extension, paths)
	}
	logger.Debug("Discovered rule files.", "count", len(files))

	parser := hclparse.NewParser()
	var configs []rule.Config
	declared := map[string]string{}
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		fileConfigs, err := decodeFile(hclFile)
		if err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, err)
		}
		for _, cfg := range fileConfigs {
			if prev, dup := declared[cfg.Name]; dup {
				return nil, fmt.Errorf("rule %q declared in %s is already declared in %s", cfg.Name, file, prev)
			}
			declared[cfg.Name] = file
			configs = append(configs, cfg)
		}
		logger.Debug("Decoded rule file.", "path", file, "rules", len(fileConfigs))
	}

	logger.Debug("HCL rule loading complete.", "rules", len(configs))
	return configs, nil
}

// Parse decodes rule definitions from in-memory source. filename is only
// used in diagnostics.
func Parse(filename string, src []byte) ([]rule.Config, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decodeFile(hclFile)
}

func decodeFile(file *hcl.File) ([]rule.Config, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, diags
	}
	attrs, diags := remainAttributes(root.Remain)
	if diags.HasErrors() {
		return nil, diags
	}
	if len(attrs) > 0 {
		return nil, fmt.Errorf("only rule blocks are allowed at the top level")
	}

	configs := make([]rule.Config, 0, len(root.Rules))
	for _, rb := range root.Rules {
		cfg, err := translateRule(rb, file.Bytes)
		if err != nil {
			return nil, fmt.Errorf("rule %q (%s): %w", rb.Name, rb.DeclRange, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package rule

import "fmt"

// State is the lifecycle stage of one rule evaluation.
type State int

const (
	// NotStarted is the state before the domain builder runs.
	NotStarted State = iota
	// DomainsBuilt means the domain builder produced at least one domain.
	DomainsBuilt
	// ParametersResolved means every domain finished its parameter builders,
	// successfully or not.
	ParametersResolved
	// ConfigurationsEmitted means the configuration builders ran for every
	// domain that resolved its parameters.
	ConfigurationsEmitted
	// Done is terminal. Zero configurations is still Done.
	Done
	// Failed is terminal; Evaluation.Err holds the cause.
	Failed
)

var stateNames = map[State]string{
	NotStarted:            "not_started",
	DomainsBuilt:          "domains_built",
	ParametersResolved:    "parameters_resolved",
	ConfigurationsEmitted: "configurations_emitted",
	Done:                  "done",
	Failed:                "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state by name in JSON and YAML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == Done || s == Failed }

// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import "fmt"

// MigrationState is the lifecycle state of a migration which is
// computed by comparing the available and applied migrations.
type MigrationState int

// These constants enumerate the migration states.
const (
	StatePending MigrationState = iota
	StateAboveTarget
	StateBelowBaseline
	StateBaseline
	StateIgnored
	StateMissingSuccess
	StateMissingFailed
	StateSuccess
	StateFailed
	StateOutOfOrder
	StateFutureSuccess
	StateFutureFailed
	StateOutdated
	StateSuperseded
	StateDeleted
)

type stateTraits struct {
	name     string
	resolved bool
	applied  bool
	failed   bool
}

var states = [...]stateTraits{
	StatePending:        {"Pending", true, false, false},
	StateAboveTarget:    {"Above Target", true, false, false},
	StateBelowBaseline:  {"Below Baseline", true, false, false},
	StateBaseline:       {"Baseline", true, true, false},
	StateIgnored:        {"Ignored", true, false, false},
	StateMissingSuccess: {"Missing", false, true, false},
	StateMissingFailed:  {"Failed (Missing)", false, true, true},
	StateSuccess:        {"Success", true, true, false},
	StateFailed:         {"Failed", true, true, true},
	StateOutOfOrder:     {"Out of Order", true, true, false},
	StateFutureSuccess:  {"Future", false, true, false},
	StateFutureFailed:   {"Failed (Future)", false, true, true},
	StateOutdated:       {"Outdated", true, true, false},
	StateSuperseded:     {"Superseded", true, true, false},
	StateDeleted:        {"Deleted", false, true, false},
}

func (s MigrationState) traits() stateTraits {
	if s < 0 || int(s) >= len(states) {
		return stateTraits{name: fmt.Sprintf("MigrationState(%d)", int(s))}
	}
	return states[s]
}

// String returns the human readable name of s.
func (s MigrationState) String() string {
	return s.traits().name
}

// MarshalText implements encoding.TextMarshaler, so states are reported
// by their names in JSON and YAML outputs.
func (s MigrationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsResolved reports whether migrations in state s are available.
func (s MigrationState) IsResolved() bool {
	return s.traits().resolved
}

// IsApplied reports whether migrations in state s have a history row.
func (s MigrationState) IsApplied() bool {
	return s.traits().applied
}

// IsFailed reports whether migrations in state s have failed.
func (s MigrationState) IsFailed() bool {
	return s.traits().failed
}

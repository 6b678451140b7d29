// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import "time"

// MigrationInfo pairs an available migration with its history row.
// At least one of Resolved and Applied is non-nil. Values of this type
// are recomputed on every resolution and never persisted.
type MigrationInfo struct {
	Resolved   *ResolvedMigration
	Applied    *AppliedMigration
	State      MigrationState
	OutOfOrder bool
}

// Version returns the version of mi, preferring the applied row.
func (mi *MigrationInfo) Version() *Version {
	if mi.Applied != nil {
		return mi.Applied.Version
	}
	return mi.Resolved.Version
}

// Description returns the description of mi, preferring the applied row.
func (mi *MigrationInfo) Description() string {
	if mi.Applied != nil {
		return mi.Applied.Description
	}
	return mi.Resolved.Description
}

// Type returns the type of mi, preferring the applied row.
func (mi *MigrationInfo) Type() MigrationType {
	if mi.Applied != nil {
		return mi.Applied.Type
	}
	return mi.Resolved.Type
}

// Script returns the script of mi, preferring the applied row.
func (mi *MigrationInfo) Script() string {
	if mi.Applied != nil {
		return mi.Applied.Script
	}
	return mi.Resolved.Script
}

// Checksum returns the checksum of mi, preferring the applied row.
func (mi *MigrationInfo) Checksum() *int32 {
	if mi.Applied != nil {
		return mi.Applied.Checksum
	}
	return mi.Resolved.Checksum
}

// InstalledRank returns the rank of the applied row of mi and false
// if mi is not applied.
func (mi *MigrationInfo) InstalledRank() (int, bool) {
	if mi.Applied == nil {
		return 0, false
	}
	return mi.Applied.InstalledRank, true
}

// InfoSummary is the flat report of a MigrationInfo, as printed by the
// info command and returned by the report endpoints.
type InfoSummary struct {
	Category      string         `json:"category" yaml:"category"`
	Version       *Version       `json:"version,omitempty" yaml:"version,omitempty"`
	Description   string         `json:"description" yaml:"description"`
	Type          MigrationType  `json:"type" yaml:"type"`
	Script        string         `json:"script" yaml:"script"`
	Checksum      *int32         `json:"checksum,omitempty" yaml:"checksum,omitempty"`
	State         MigrationState `json:"state" yaml:"state"`
	InstalledRank int            `json:"installedRank,omitempty" yaml:"installed-rank,omitempty"`
	InstalledBy   string         `json:"installedBy,omitempty" yaml:"installed-by,omitempty"`
	InstalledOn   *time.Time     `json:"installedOn,omitempty" yaml:"installed-on,omitempty"`
	ExecutionTime int64          `json:"executionTimeMs,omitempty" yaml:"execution-time-ms,omitempty"`
}

// Summarize returns the InfoSummary of mi.
func (mi *MigrationInfo) Summarize() InfoSummary {
	s := InfoSummary{
		Category:    "Versioned",
		Version:     mi.Version(),
		Description: mi.Description(),
		Type:        mi.Type(),
		Script:      mi.Script(),
		Checksum:    mi.Checksum(),
		State:       mi.State,
	}
	switch {
	case s.Type.IsSynthetic():
		s.Category = ""
	case s.Version == nil:
		s.Category = "Repeatable"
	}
	if am := mi.Applied; am != nil {
		on := am.InstalledOn
		s.InstalledRank = am.InstalledRank
		s.InstalledBy = am.InstalledBy
		s.InstalledOn = &on
		s.ExecutionTime = am.ExecutionTime.Milliseconds()
	}
	return s
}

// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"strings"
	"time"
)

// MigrationType indicates how a migration is executed or, for the
// synthetic types, which marker row is kept in the schema history.
type MigrationType string

// These constants are the supported migration types.
const (
	TypeSQL      MigrationType = "SQL"
	TypeBaseline MigrationType = "BASELINE"
	TypeSchema   MigrationType = "SCHEMA"
	TypeDelete   MigrationType = "DELETE"
)

// IsSynthetic reports whether t is a marker type which is recorded in
// the schema history without executing any script.
func (t MigrationType) IsSynthetic() bool {
	switch t {
	case TypeBaseline, TypeSchema, TypeDelete:
		return true
	}
	return false
}

// IsBaseline reports whether t is the baseline marker type.
func (t MigrationType) IsBaseline() bool {
	return t == TypeBaseline
}

// ResolvedMigration is a migration which is available for execution,
// as discovered by a migration source. Version is nil for repeatable
// migrations. Content returns the script body whose checksum is kept
// in Checksum, even if the script is changed after being resolved.
type ResolvedMigration struct {
	Version     *Version
	Description string
	Checksum    *int32
	Type        MigrationType
	Script      string
	Content     func() (string, error) `json:"-" yaml:"-"`
}

// IsRepeatable reports whether rm has no version.
func (rm *ResolvedMigration) IsRepeatable() bool {
	return rm.Version == nil
}

// ChecksumMatches reports whether checksum equals the checksum of rm.
// Two absent checksums are considered as matching.
func (rm *ResolvedMigration) ChecksumMatches(checksum *int32) bool {
	if rm.Checksum == nil || checksum == nil {
		return rm.Checksum == nil && checksum == nil
	}
	return *rm.Checksum == *checksum
}

// AppliedMigration is one row of the schema history table.
// InstalledRank is unique and strictly increasing in the insertion
// order of rows. Rows are never modified except by the repair use case.
type AppliedMigration struct {
	InstalledRank int
	Version       *Version
	Description   string
	Type          MigrationType
	Script        string
	Checksum      *int32
	InstalledOn   time.Time
	InstalledBy   string
	ExecutionTime time.Duration
	Success       bool
}

// MigrationPattern selects migrations by their version (for versioned
// migrations) or by their description (for repeatable migrations).
// Underscores in the pattern are taken as version separators or as
// spaces respectively, so patterns may be written like file names.
type MigrationPattern string

// Matches reports whether the migration with the given version (nil
// for repeatable migrations) and description is selected by p.
func (p MigrationPattern) Matches(version *Version, description string) bool {
	if version != nil {
		pv, err := ParseVersion(strings.ReplaceAll(string(p), "_", "."))
		if err != nil || pv.IsSentinel() {
			return false
		}
		return pv.Equal(version)
	}
	return strings.ReplaceAll(string(p), "_", " ") == description
}

// MatchesAny reports whether at least one of the patterns matches the
// given migration. An empty patterns slice matches nothing.
func MatchesAny(patterns []MigrationPattern, version *Version, description string) bool {
	for _, p := range patterns {
		if p.Matches(version, description) {
			return true
		}
	}
	return false
}

// NoDescription is stored instead of an empty description by backends
// which cannot keep empty strings.
const NoDescription = "<< no description >>"

// AbbreviateDescription shortens descriptions which do not fit in the
// description column of the schema history (200 characters).
func AbbreviateDescription(description string) string {
	r := []rune(description)
	if len(r) <= 200 {
		return description
	}
	return string(r[:197]) + "..."
}

// AbbreviateScript shortens script names which do not fit in the script
// column of the schema history (1000 characters), keeping their tails.
func AbbreviateScript(script string) string {
	r := []rune(script)
	if len(r) <= 1000 {
		return script
	}
	return "..." + string(r[len(r)-997:])
}

// DescriptionMatches reports whether the applied description (as kept
// in the schema history) corresponds to the resolved description.
func DescriptionMatches(applied, resolved string) bool {
	if applied == NoDescription {
		return resolved == ""
	}
	return AbbreviateDescription(resolved) == applied
}

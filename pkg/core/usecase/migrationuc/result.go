// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package migrationuc

import (
	"time"

	"github.com/momeni/sqlmig/pkg/core/model"
)

// Result summarizes a Migrate run. Migrations lists the applied
// migrations and the failed one (if any), while Applied counts the
// successful ones only.
type Result struct {
	RunID          string            `json:"runId"`
	InitialVersion *model.Version    `json:"initialVersion,omitempty"`
	TargetVersion  *model.Version    `json:"targetVersion,omitempty"`
	FinalVersion   *model.Version    `json:"finalVersion,omitempty"`
	Applied        int               `json:"applied"`
	Migrations     []MigrationResult `json:"migrations"`
	Cleaned        bool              `json:"cleaned,omitempty"`
	Success        bool              `json:"success"`
}

// summarize computes the Applied count and the FinalVersion which is
// the newest successfully applied version, or the InitialVersion if
// no versioned migration was applied.
func (res *Result) summarize() {
	res.Applied = 0
	res.FinalVersion = res.InitialVersion
	for _, mr := range res.Migrations {
		if !mr.Success {
			continue
		}
		res.Applied++
		v := mr.Version
		if v != nil && (res.FinalVersion == nil || v.IsNewerThan(res.FinalVersion)) {
			res.FinalVersion = v
		}
	}
}

// MigrationResult is the outcome of applying one migration.
type MigrationResult struct {
	Version       *model.Version          `json:"version,omitempty"`
	Description   string                  `json:"description"`
	Type          model.MigrationType     `json:"type"`
	Script        string                  `json:"script"`
	Checksum      *int32                  `json:"checksum,omitempty"`
	ExecutionTime time.Duration           `json:"executionTime"`
	Statements    []model.StatementResult `json:"-"`
	Success       bool                    `json:"success"`
}

// RowsAffected returns the total number of rows which were affected
// by the statements of the migration.
func (mr *MigrationResult) RowsAffected() int64 {
	var n int64
	for _, sr := range mr.Statements {
		n += sr.RowsAffected
	}
	return n
}

// RepairResult lists the schema history changes of a Repair run.
type RepairResult struct {
	RemovedFailed []model.AppliedMigration `json:"removedFailed"`
	Realigned     []model.AppliedMigration `json:"realigned"`
	Deleted       []model.AppliedMigration `json:"deleted"`
}

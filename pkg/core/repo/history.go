// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"

	"github.com/momeni/sqlmig/pkg/core/model"
)

// History is the schema history repository. It binds a Ledger to
// a database session, so all of the ledger queries and locks run
// on that session.
type History interface {
	Conn(Conn) Ledger
}

// Ledger is the durable, lock-guarded log of the applied migrations.
// A Ledger belongs to one session and it is unsafe to be used
// concurrently. Its read cache is cleared by every mutating method.
type Ledger interface {
	// Table returns the quoted name of the schema history table.
	Table() string

	// Exists reports whether the schema history table exists.
	Exists(ctx context.Context) (bool, error)

	// Create creates the schema history table, unless it exists.
	// Failed attempts are retried a bounded number of times, so a
	// concurrent creation by another process is tolerated.
	// If withBaseline is true, a baseline marker row is inserted too.
	Create(ctx context.Context, withBaseline bool) error

	// Lock runs action while holding an exclusive lock on the schema
	// history table. Nested calls within action run directly.
	Lock(ctx context.Context, action LockedHandler) error

	// AllApplied returns all rows in the installed rank order.
	AllApplied(ctx context.Context) ([]model.AppliedMigration, error)

	// HasApplied reports whether a non-synthetic row exists.
	HasApplied(ctx context.Context) (bool, error)

	// AddApplied records am, filling its InstalledRank field.
	AddApplied(ctx context.Context, am *model.AppliedMigration) error

	// AddBaselineMarker records a baseline marker with the given
	// version and description.
	AddBaselineMarker(
		ctx context.Context, v *model.Version, description string,
	) error

	// AddSchemasMarker records that the given schemas were created by
	// the migration tool, so they may be dropped by the clean command.
	AddSchemasMarker(ctx context.Context, schemas []string) error

	// BaselineMarker returns the baseline marker row, or nil.
	BaselineMarker(ctx context.Context) (*model.AppliedMigration, error)

	// Update corrects the description, type, and checksum of the row
	// with the given installed rank. A synthetic type is preserved.
	Update(
		ctx context.Context, rank int, description string,
		typ model.MigrationType, checksum *int32,
	) error

	// SoftDelete appends a DELETE row for the am applied migration.
	SoftDelete(ctx context.Context, am *model.AppliedMigration) error

	// RemoveFailed deletes the failed rows which match the filter (or
	// all failed rows if filter is empty) and returns them.
	RemoveFailed(
		ctx context.Context, filter []model.MigrationPattern,
	) ([]model.AppliedMigration, error)

	// ClearCache drops the cached rows.
	ClearCache()

	// Drop drops the schema history table.
	Drop(ctx context.Context) error
}

// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import "context"

// LockedHandler is called while an exclusive lock is held. The q
// Queryer must be used for all statements which should be covered by
// the lock; it may be the locked Conn itself or a Tx which was begun
// on it, depending on how the backend implements its locks.
type LockedHandler func(ctx context.Context, q Queryer) error

// Locker provides an exclusive, blocking lock for a storage object
// (such as the schema history table) which is held while the action
// runs. Implementations serialize different sessions and processes,
// while reentrancy within one session is handled by the callers.
type Locker interface {
	Lock(
		ctx context.Context, c Conn, object string, action LockedHandler,
	) error
}

// Dialect is the database adapter which describes one backend for the
// schema history and the migrate use cases. Statement templates use
// the ? placeholder for their arguments and expect a table name which
// is already quoted by the Quote method.
//
// The schema history rows are selected and inserted using these
// columns in order: installed_rank, version, description, type,
// script, checksum, installed_by, installed_on, execution_time, and
// success (installed_on is omitted in insertions, so it defaults to
// the insertion time).
type Dialect interface {
	Locker

	// Name returns the dialect identifier, like postgres or sqlite.
	Name() string

	// Quote quotes and joins the given identifiers with dots, so
	// Quote("public", "flyway_history") may be "public"."flyway_history".
	Quote(identifiers ...string) string

	// BooleanTrue and BooleanFalse return the literals which represent
	// true and false values in this backend.
	BooleanTrue() string
	BooleanFalse() string

	// SupportsDDLTransactions reports whether DDL statements can be
	// rolled back as a part of a transaction.
	SupportsDDLTransactions() bool

	// SupportsEmptyDescription reports whether empty strings can be
	// stored as migration descriptions (some backends store them as
	// NULL values).
	SupportsEmptyDescription() bool

	// LedgerExistsSQL returns a query which yields at least one row if
	// and only if the given table exists. The table is passed with
	// its schema and name parts, unquoted, so it can be searched in the
	// catalog tables.
	LedgerExistsSQL(schema, table string) (sql string, args []any)

	// CreateLedgerSQL returns the statements which create the schema
	// history table and its index on the success column. The schema
	// and table names are passed unquoted, so they may be used in the
	// constraint and index names too.
	CreateLedgerSQL(schema, table string) []string

	// SelectLedgerSQL returns a query which takes one rank argument and
	// selects all rows with a greater installed_rank, ordered by rank.
	SelectLedgerSQL(table string) string

	// InsertLedgerSQL returns a statement which takes installed_rank,
	// version, description, type, script, checksum, installed_by,
	// execution_time, and success arguments and inserts one row.
	InsertLedgerSQL(table string) string

	// UpdateLedgerSQL returns a statement which takes description, type,
	// checksum, and installed_rank arguments and updates that row.
	UpdateLedgerSQL(table string) string

	// DeleteLedgerSQL returns a statement which takes an installed_rank
	// argument and deletes that row if it belongs to a failed migration.
	DeleteLedgerSQL(table string) string

	// DropLedgerSQL returns a statement which drops the table.
	DropLedgerSQL(table string) string

	// CreateSchemaSQL returns a statement which creates the schema if
	// it is missing, or an empty string if schemas are not supported.
	CreateSchemaSQL(schema string) string

	// ErrorDetail extracts the backend specific diagnostics (such as
	// SQLSTATE and error codes) from a driver error, or returns an empty
	// string if err carries no such details.
	ErrorDetail(err error) string

	// Clean drops all objects of the given schemas, or all objects of
	// the current database if schemas is empty.
	Clean(ctx context.Context, q Queryer, schemas []string) error
}

// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package sqlite is the SQLite adapter of the migrations engine.
// It provides a connection pool over the database/sql package and the
// pure Go modernc.org/sqlite driver, and the Dialect which describes the
// SQLite specific SQL syntax and schema history table layout.
//
// SQLite serializes writers at the file level, so the pool keeps one
// open connection and the ledger lock is an in-process lock. Multiple
// processes which migrate one database file should use a Redis lock.
package sqlite

// Name is the dialect identifier of SQLite.
const Name = "sqlite"

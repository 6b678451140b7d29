// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package postgres is the PostgreSQL adapter of the migrations engine.
// It provides a GORM-based connection pool (Pool, Conn, and Tx types
// which implement the repo package interfaces) and the Dialect which
// describes the PostgreSQL specific SQL syntax, schema history table
// layout, and advisory locks.
//
// Statements are executed by the GORM framework, so the ? placeholders
// of the dialect templates are converted to the $1, $2, etc. parameters
// of the PostgreSQL wire protocol. Statements which are executed without
// arguments (such as the migration scripts statements) are passed as is.
package postgres

// Name is the dialect identifier of PostgreSQL.
const Name = "postgres"

// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package db2z describes the SQL dialect of DB2 for z/OS.
//
// The DB2 for z/OS SQL PL scripts may contain compound statements which
// are nested by the BEGIN ... END pairs and the control flow keywords
// (LOOP, CASE, DO, REPEAT, and IF), and their delimiter may be changed
// by the --#SET TERMINATOR directive comments. Stored procedure calls
// are executed as CallStatement instances, so their arguments are bound
// as parameters and their results are checked for a failure sentinel
// text (which is reported by the DSNUTILU like utility procedures).
//
// No pure Go DB2 driver exists, so this package provides no Pool. The
// Dialect may be used with any repo.Conn whose driver talks to DB2.
package db2z

// Name is the dialect identifier of DB2 for z/OS.
const Name = "db2z"

// DefaultTablespace is the tablespace which holds the schema history
// table, unless another tablespace is configured.
const DefaultTablespace = "SFLYWAY"

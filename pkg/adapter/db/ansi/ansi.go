// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package ansi provides the schema history statements which are written
// in the standard SQL and so can be shared by the dialects.
package ansi

import (
	"fmt"
	"strings"
)

// Columns lists the schema history columns in their selection order.
const Columns = "installed_rank, version, description, type, script, " +
	"checksum, installed_by, installed_on, execution_time, success"

// Quote quotes each identifier with the q quote character (doubling
// the embedded quotes) and joins them with dots. Empty identifiers
// are skipped, so an empty schema name yields an unqualified name.
func Quote(q string, identifiers ...string) string {
	parts := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		if id == "" {
			continue
		}
		parts = append(parts, q+strings.ReplaceAll(id, q, q+q)+q)
	}
	return strings.Join(parts, ".")
}

// Ledger implements the schema history statements of repo.Dialect
// which need no vendor specific syntax. False is the literal of false
// boolean values.
type Ledger struct {
	False string
}

func (Ledger) SelectLedgerSQL(table string) string {
	return fmt.Sprintf(
		"SELECT %s FROM %s WHERE installed_rank > ? ORDER BY installed_rank",
		Columns, table,
	)
}

func (Ledger) InsertLedgerSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (installed_rank, version,
description, type, script, checksum, installed_by, execution_time,
success) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)
}

func (Ledger) UpdateLedgerSQL(table string) string {
	return fmt.Sprintf(
		"UPDATE %s SET description = ?, type = ?, checksum = ? "+
			"WHERE installed_rank = ?", table,
	)
}

func (l Ledger) DeleteLedgerSQL(table string) string {
	return fmt.Sprintf(
		"DELETE FROM %s WHERE installed_rank = ? AND success = %s",
		table, l.False,
	)
}

func (Ledger) DropLedgerSQL(table string) string {
	return "DROP TABLE " + table
}

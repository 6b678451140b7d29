// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import "fmt"

// Position locates a byte in a script. Offset is zero-based while Line
// and Col are one-based; Col counts runes, not bytes.
type Position struct {
	Offset int
	Line   int
	Col    int
}

// String formats p as "line L col C".
func (p Position) String() string {
	return fmt.Sprintf("line %d col %d", p.Line, p.Col)
}

// Delimiter terminates statements in a script. When AloneOnLine is set,
// the delimiter is only recognized if nothing but whitespace precedes
// it on its line (like the "GO" of some dialects).
type Delimiter struct {
	Text        string
	AloneOnLine bool
}

// DefaultDelimiter is the semicolon delimiter.
var DefaultDelimiter = Delimiter{Text: ";"}

// ParsedStatement is one independently executable statement which is
// extracted from a script. The SQL excludes the delimiter and leading
// comments and Pos points to its first non-comment token.
type ParsedStatement struct {
	SQL                     string
	Pos                     Position
	Delimiter               Delimiter
	CanExecuteInTransaction bool
	BlockDepthAtStart       int
}

// StatementResult is the outcome of executing one statement.
// Exactly one of its success and failure forms is populated: a failed
// result has a non-nil Err, while a successful one may carry affected
// rows count and the rows of its result sets.
type StatementResult struct {
	Statement    *ParsedStatement
	RowsAffected int64
	Rows         [][]any
	Err          error
}

// Failed reports whether the statement execution has failed.
func (sr StatementResult) Failed() bool {
	return sr.Err != nil
}

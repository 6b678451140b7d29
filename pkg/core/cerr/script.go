// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cerr

import (
	"fmt"
	"strings"

	"github.com/momeni/sqlmig/pkg/core/model"
)

// ParseError reports a malformed script. The Script may be empty when
// the parsed text does not belong to a named migration.
type ParseError struct {
	Script string
	Pos    model.Position
	Err    error
}

func (pe *ParseError) Unwrap() error {
	return pe.Err
}

func (pe *ParseError) Error() string {
	if pe.Script == "" {
		return fmt.Sprintf("parsing at %s: %v", pe.Pos, pe.Err)
	}
	return fmt.Sprintf(
		"parsing %s at %s: %v", pe.Script, pe.Pos, pe.Err,
	)
}

// ExecutionError reports a statement which has failed in the database.
// Detail holds the backend specific diagnostics (such as SQLSTATE) and
// Err is the error which was returned by the database driver.
type ExecutionError struct {
	Script  string
	Version *model.Version
	Pos     model.Position
	SQL     string
	Detail  string
	Err     error
}

func (ee *ExecutionError) Unwrap() error {
	return ee.Err
}

func (ee *ExecutionError) Error() string {
	var b strings.Builder
	b.WriteString("executing ")
	if ee.Script != "" {
		b.WriteString(ee.Script)
	} else {
		b.WriteString("statement")
	}
	if s := ee.Version.String(); s != "" && !ee.Version.IsSentinel() {
		fmt.Fprintf(&b, " (version %s)", s)
	}
	if ee.Pos.Line > 0 {
		fmt.Fprintf(&b, " at line %d", ee.Pos.Line)
	}
	fmt.Fprintf(&b, ": %v", ee.Err)
	if ee.Detail != "" {
		fmt.Fprintf(&b, " [%s]", ee.Detail)
	}
	return b.String()
}

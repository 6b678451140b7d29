// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package parser

import (
	"context"

	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/repo"
)

// Statement is an executable statement of a script.
type Statement interface {
	// Parsed returns the parsing outcome of this statement.
	Parsed() *model.ParsedStatement

	// Execute runs the statement using q and returns its result.
	// Execution failures are reported by the Err field of the result.
	Execute(ctx context.Context, q repo.Queryer) model.StatementResult
}

// SQLStatement is a plain statement which is sent to the database as is.
type SQLStatement struct {
	model.ParsedStatement
}

func (s *SQLStatement) Parsed() *model.ParsedStatement {
	return &s.ParsedStatement
}

func (s *SQLStatement) Execute(
	ctx context.Context, q repo.Queryer,
) model.StatementResult {
	n, err := q.Exec(ctx, s.SQL)
	return model.StatementResult{
		Statement:    &s.ParsedStatement,
		RowsAffected: n,
		Err:          err,
	}
}

// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package parser_test

import (
	"context"
	"errors"
	"testing"

	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/parser"
	"github.com/momeni/sqlmig/pkg/core/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCall(t *testing.T) {
	proc, args, ok := parser.ParseCall(
		"CALL SYSPROC.DSNUTILU('ID1', 'NO', 'It''s, ok', 42, null, :HV)",
	)
	require.True(t, ok)
	assert.Equal(t, "SYSPROC.DSNUTILU", proc)
	assert.Equal(t, []parser.CallArg{
		{Kind: parser.ArgString, Value: "ID1"},
		{Kind: parser.ArgString, Value: "NO"},
		{Kind: parser.ArgString, Value: "It's, ok"},
		{Kind: parser.ArgInteger, Value: int64(42)},
		{Kind: parser.ArgNull},
		{Kind: parser.ArgPassthrough, Value: ":HV"},
	}, args)

	for _, sql := range []string{"CALL P()", "CALL P", "SELECT 1"} {
		_, _, ok := parser.ParseCall(sql)
		assert.False(t, ok, "parsing %q", sql)
	}
}

func TestClassifyArg(t *testing.T) {
	cases := map[string]parser.CallArg{
		"''":            {Kind: parser.ArgString, Value: ""},
		"'a''''b'":      {Kind: parser.ArgString, Value: "a''b"},
		"-7":            {Kind: parser.ArgInteger, Value: int64(-7)},
		"NULL":          {Kind: parser.ArgNull},
		"1.5":           {Kind: parser.ArgPassthrough, Value: "1.5"},
		"CURRENT_SQLID": {Kind: parser.ArgPassthrough, Value: "CURRENT_SQLID"},
		"99999999999999999999": {
			Kind: parser.ArgPassthrough, Value: "99999999999999999999",
		},
	}
	for in, exp := range cases {
		assert.Equal(t, exp, parser.ClassifyArg(in), "classifying %q", in)
	}
}

func TestSplitArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"'a,b'", "c", "'d'' ,e'"},
		parser.SplitArgs(" 'a,b' ,c, 'd'' ,e'"),
	)
}

func TestCallStatementQuery(t *testing.T) {
	cs := parser.NewCallStatement(model.ParsedStatement{
		SQL: "call P.Q('x', 1,\n  NULL, :V)",
	}, "")
	require.NotNil(t, cs)
	sql, args := cs.Query()
	assert.Equal(t, "CALL P.Q(?, ?, ?, :V)", sql)
	assert.Equal(t, []any{"x", int64(1), nil}, args)
	assert.Nil(t, parser.NewCallStatement(model.ParsedStatement{
		SQL: "SELECT 1",
	}, ""))
}

// fakeRows serves a fixed series of result sets.
type fakeRows struct {
	sets   [][][]any
	set    int
	row    int
	closed bool
	err    error
}

func (fr *fakeRows) Close()     { fr.closed = true }
func (fr *fakeRows) Err() error { return fr.err }

func (fr *fakeRows) Next() bool {
	if fr.set >= len(fr.sets) || fr.row >= len(fr.sets[fr.set]) {
		return false
	}
	fr.row++
	return true
}

func (fr *fakeRows) NextResultSet() bool {
	if fr.set+1 >= len(fr.sets) {
		return false
	}
	fr.set++
	fr.row = 0
	return true
}

func (fr *fakeRows) Scan(...any) error {
	return errors.New("not supported")
}

func (fr *fakeRows) Values() ([]any, error) {
	return fr.sets[fr.set][fr.row-1], nil
}

type fakeQueryer struct {
	rows *fakeRows
	sql  string
	args []any
}

func (fq *fakeQueryer) Exec(context.Context, string, ...any) (int64, error) {
	return 0, nil
}

func (fq *fakeQueryer) Query(
	_ context.Context, sql string, args ...any,
) (repo.Rows, error) {
	fq.sql, fq.args = sql, args
	return fq.rows, nil
}

const sentinel = "UTILITY EXECUTION TERMINATED"

func TestCallStatementExecute(t *testing.T) {
	ps := model.ParsedStatement{
		SQL: "CALL SYSPROC.DSNUTILU('U1', 'NO', 'RUNSTATS')",
	}
	cases := []struct {
		name   string
		sets   [][][]any
		failed bool
	}{
		{
			name: "success",
			sets: [][][]any{
				{{int64(1), "DSNU000I UTILITY BEGINS"}},
				{{int64(2), []byte("DSNU010I UTILITY EXECUTION COMPLETE")}},
			},
		},
		{
			name: "sentinel in the last row",
			sets: [][][]any{
				{{int64(1), "DSNU000I UTILITY BEGINS"}},
				{
					{int64(2), "DSNU050I RUNSTATS"},
					{int64(3), []byte("DSNU012I " + sentinel)},
				},
			},
			failed: true,
		},
		{
			name: "sentinel before the last result set",
			sets: [][][]any{
				{{int64(1), sentinel}},
				{},
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rows := &fakeRows{sets: c.sets}
			q := &fakeQueryer{rows: rows}
			cs := parser.NewCallStatement(ps, sentinel)
			res := cs.Execute(context.Background(), q)
			assert.Equal(t, "CALL SYSPROC.DSNUTILU(?, ?, ?)", q.sql)
			assert.Equal(t, []any{"U1", "NO", "RUNSTATS"}, q.args)
			assert.Equal(t, c.failed, res.Failed(), "err: %v", res.Err)
			assert.True(t, rows.closed)
			assert.Same(t, cs.Parsed(), res.Statement)
		})
	}
}

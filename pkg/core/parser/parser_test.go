// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package parser_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/momeni/sqlmig/pkg/core/cerr"
	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockDialect opens a block with BEGIN and closes it with END, and
// accepts the --#SET TERMINATOR directive.
type blockDialect struct {
	parser.Base
}

func (blockDialect) DirectivePrefix() string {
	return "--#"
}

func (blockDialect) Directive(line string) (model.Delimiter, bool, error) {
	d, ok := strings.CutPrefix(line, "--#SET TERMINATOR ")
	if !ok {
		return model.Delimiter{}, false, nil
	}
	return model.Delimiter{Text: strings.TrimSpace(d)}, true, nil
}

func (blockDialect) AdjustBlockDepth(
	pc *parser.Context, _ []parser.Token, keyword parser.Token,
) {
	switch keyword.Text {
	case "BEGIN":
		pc.IncreaseBlockDepth(keyword.Text)
	case "END":
		pc.DecreaseBlockDepth()
	}
}

func (blockDialect) Transactional(kws []parser.Token) (bool, bool) {
	if len(kws) > 0 && kws[0].Text == "VACUUM" {
		return false, true
	}
	return true, false
}

func sqls(t *testing.T, stmts []parser.Statement) []string {
	t.Helper()
	var ss []string
	for _, s := range stmts {
		ss = append(ss, s.Parsed().SQL)
	}
	return ss
}

func TestParseSplitsOnDelimiters(t *testing.T) {
	src := `-- header
CREATE TABLE t (a INT, b TEXT DEFAULT ';');
/* multi /* nested */ ; */
INSERT INTO t VALUES (1, 'x;y');
INSERT INTO "odd;name" VALUES (2, 'it''s;')`
	stmts, err := parser.Parse(blockDialect{}, "V1__init.sql", src)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE t (a INT, b TEXT DEFAULT ';')",
		"INSERT INTO t VALUES (1, 'x;y')",
		`INSERT INTO "odd;name" VALUES (2, 'it''s;')`,
	}, sqls(t, stmts))
	assert.Equal(t, model.Position{Offset: 10, Line: 2, Col: 1},
		stmts[0].Parsed().Pos)
	assert.Equal(t, 4, stmts[1].Parsed().Pos.Line)
	assert.Equal(t, 5, stmts[2].Parsed().Pos.Line)
	for _, s := range stmts {
		assert.Equal(t, model.DefaultDelimiter, s.Parsed().Delimiter)
		assert.True(t, s.Parsed().CanExecuteInTransaction)
	}
}

func TestParseKeepsBlocksTogether(t *testing.T) {
	src := "CREATE PROCEDURE p() BEGIN\n" +
		"  INSERT INTO t VALUES (1);\n" +
		"  UPDATE t SET a = 2;\n" +
		"END;\n" +
		"  SELECT 1"
	stmts, err := parser.Parse(blockDialect{}, "", src)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE PROCEDURE p() BEGIN\n" +
			"  INSERT INTO t VALUES (1);\n" +
			"  UPDATE t SET a = 2;\n" +
			"END",
		"SELECT 1",
	}, sqls(t, stmts))
	assert.Equal(t, model.Position{Offset: 84, Line: 5, Col: 3},
		stmts[1].Parsed().Pos)
}

func TestParseIncompleteBlock(t *testing.T) {
	_, err := parser.Parse(
		blockDialect{}, "V2__proc.sql",
		"SELECT 0;\nCREATE PROCEDURE p() BEGIN SELECT 1;",
	)
	var pe *cerr.ParseError
	require.True(t, errors.As(err, &pe), "expected a ParseError")
	assert.Equal(t, "V2__proc.sql", pe.Script)
	assert.Equal(t, 2, pe.Pos.Line)
	assert.Equal(t, 1, pe.Pos.Col)
	assert.Contains(t, pe.Error(), "incomplete statement")
}

func TestParseDelimiterDirective(t *testing.T) {
	src := `SELECT 0;
--#SET TERMINATOR @
CREATE PROCEDURE p() BEGIN SELECT 1; END@
SELECT 2@

SELECT 3@`
	stmts, err := parser.Parse(blockDialect{}, "", src)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"SELECT 0",
		"CREATE PROCEDURE p() BEGIN SELECT 1; END",
		"SELECT 2",
		"SELECT 3",
	}, sqls(t, stmts))
	assert.Equal(t, ";", stmts[0].Parsed().Delimiter.Text)
	for _, s := range stmts[1:] {
		assert.Equal(t, "@", s.Parsed().Delimiter.Text)
	}
}

func TestParseWordRuneDelimiter(t *testing.T) {
	src := `--#SET TERMINATOR #
SELECT ID FROM T#
DROP TABLE T#
INSERT INTO T#X VALUES (1)#
SELECT 1#`
	stmts, err := parser.Parse(blockDialect{}, "", src)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"SELECT ID FROM T",
		"DROP TABLE T",
		"INSERT INTO T#X VALUES (1)",
		"SELECT 1",
	}, sqls(t, stmts))
}

func TestParseDelimiterChangedInsideStatement(t *testing.T) {
	_, err := parser.Parse(
		blockDialect{}, "",
		"SELECT 1\n--#SET TERMINATOR @\nSELECT 2@",
	)
	var pe *cerr.ParseError
	require.True(t, errors.As(err, &pe), "expected a ParseError")
	assert.Contains(t, pe.Error(), "delimiter changed inside statement")
	assert.Equal(t, 1, pe.Pos.Line)
}

func TestParseMalformedTokens(t *testing.T) {
	for _, src := range []string{
		"SELECT 'abc",
		`SELECT "abc FROM t`,
		"SELECT 1; /* open /* nested */",
	} {
		_, err := parser.Parse(blockDialect{}, "bad.sql", src)
		var pe *cerr.ParseError
		assert.True(t, errors.As(err, &pe), "parsing %q", src)
	}
}

func TestParseOnlyComments(t *testing.T) {
	stmts, err := parser.Parse(
		blockDialect{}, "", "-- nothing\n;\n/* here */ ;\n",
	)
	require.NoError(t, err)
	assert.Empty(t, stmts)
}

func TestParseTransactionalDetection(t *testing.T) {
	stmts, err := parser.Parse(
		blockDialect{}, "", "VACUUM FULL;\nANALYZE t;",
	)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.False(t, stmts[0].Parsed().CanExecuteInTransaction)
	assert.True(t, stmts[1].Parsed().CanExecuteInTransaction)
}

func TestTokenizeParensDepth(t *testing.T) {
	tokens, err := parser.Tokenize(blockDialect{}, "f(a, (b)) -- c")
	require.NoError(t, err)
	var got []string
	for _, tk := range tokens {
		got = append(got, fmt.Sprintf("%s:%d", tk.Type, tk.ParensDepth))
	}
	assert.Equal(t, []string{
		"KEYWORD:0", "PARENS_OPEN:0", "KEYWORD:1", "SYMBOL:1",
		"PARENS_OPEN:1", "KEYWORD:2", "PARENS_CLOSE:1",
		"PARENS_CLOSE:0", "COMMENT:0", "EOF:0",
	}, got)
}

func ExampleTokenize() {
	tokens, err := parser.Tokenize(
		parser.Base{}, "select \"Name\", E'x\\'' from t;",
	)
	fmt.Println(err)
	for _, tk := range tokens {
		fmt.Println(tk.Type, tk.Text)
	}
	// Output:
	// <nil>
	// KEYWORD SELECT
	// IDENTIFIER "Name"
	// SYMBOL ,
	// STRING E'x\''
	// KEYWORD FROM
	// KEYWORD T
	// DELIMITER ;
	// EOF
}

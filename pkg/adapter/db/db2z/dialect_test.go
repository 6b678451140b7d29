// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package db2z_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/momeni/sqlmig/pkg/adapter/db/db2z"
	"github.com/momeni/sqlmig/pkg/core/cerr"
	"github.com/momeni/sqlmig/pkg/core/parser"
	"github.com/momeni/sqlmig/pkg/core/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sentinel = "UTILITY EXECUTION TERMINATED"

func newDialect(t *testing.T) *db2z.Dialect {
	t.Helper()
	d, err := db2z.NewDialect(
		db2z.WithDatabase("APPDB"), db2z.WithFailureSentinel(sentinel),
	)
	require.NoError(t, err)
	return d
}

func parse(t *testing.T, src string) []parser.Statement {
	t.Helper()
	stmts, err := parser.Parse(newDialect(t), "V1__db2.sql", src)
	require.NoError(t, err)
	return stmts
}

func TestNewDialectRequiresDatabase(t *testing.T) {
	_, err := db2z.NewDialect()
	assert.Error(t, err)
	_, err = db2z.NewDialect(db2z.WithDatabase(""))
	assert.Error(t, err)
}

func TestProcedureBlocks(t *testing.T) {
	src := `CREATE PROCEDURE P(IN X INT)
LANGUAGE SQL
BEGIN
  DECLARE I INT DEFAULT 0;
  IF X > 0 THEN
    SET I = 1;
  END IF;
  WHILE I < 10 DO
    SET I = I + 1;
  END WHILE;
  REPEAT
    SET I = I - 1;
  UNTIL I = 0 END REPEAT;
END;
SELECT CASE WHEN 1 = 1 THEN 'Y' END FROM SYSIBM.SYSDUMMY1;`
	stmts := parse(t, src)
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasSuffix(stmts[0].Parsed().SQL, "END REPEAT;\nEND"))
	assert.Equal(t, 15, stmts[1].Parsed().Pos.Line)
}

func TestRowBeginAndTriggers(t *testing.T) {
	src := `ALTER TABLE T ADD COLUMN S TIMESTAMP(12) NOT NULL
  GENERATED ALWAYS AS ROW BEGIN;
ALTER TABLE T ADD COLUMN E TIMESTAMP(12) NOT NULL
  GENERATED ALWAYS AS ROW END;
CREATE TRIGGER TRG AFTER INSERT ON T
  REFERENCING NEW AS N FOR EACH ROW
BEGIN ATOMIC
  UPDATE C SET V = V + 1;
END;`
	stmts := parse(t, src)
	require.Len(t, stmts, 3)
	assert.True(t, strings.HasSuffix(stmts[1].Parsed().SQL, "AS ROW END"))
	assert.True(t, strings.HasSuffix(stmts[2].Parsed().SQL, "+ 1;\nEND"))
}

func TestExistentialClauses(t *testing.T) {
	src := `CREATE TABLE IF NOT EXISTS T (A INT);
DROP TABLE IF EXISTS U;
CREATE PROCEDURE Q()
BEGIN
  IF 1 = 1 THEN
    CREATE TABLE IF NOT EXISTS W (B INT);
  END IF;
END;
SELECT 1 FROM SYSIBM.SYSDUMMY1;`
	stmts := parse(t, src)
	require.Len(t, stmts, 4)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS T (A INT)", stmts[0].Parsed().SQL)
	assert.Equal(t, "DROP TABLE IF EXISTS U", stmts[1].Parsed().SQL)
	assert.Equal(t, 3, stmts[2].Parsed().Pos.Line)
	assert.Equal(t, 9, stmts[3].Parsed().Pos.Line)
}

func TestTerminatorDirectiveAndCalls(t *testing.T) {
	src := `--#SET TERMINATOR @
CALL SYSPROC.DSNUTILU('REORG1', 'NO', 'REORG TABLESPACE APPDB.TS1', 5, NULL, :RC)@
CREATE PROCEDURE R() BEGIN SELECT 1 FROM SYSIBM.SYSDUMMY1; END@
CALL NOARGS@`
	stmts := parse(t, src)
	require.Len(t, stmts, 3)
	cs, ok := stmts[0].(*parser.CallStatement)
	require.True(t, ok, "expected a CallStatement, got %T", stmts[0])
	assert.Equal(t, "SYSPROC.DSNUTILU", cs.Proc)
	assert.Equal(t, sentinel, cs.FailureSentinel)
	kinds := make([]parser.ArgKind, len(cs.Args))
	for i, a := range cs.Args {
		kinds[i] = a.Kind
	}
	assert.Equal(t, []parser.ArgKind{
		parser.ArgString, parser.ArgString, parser.ArgString,
		parser.ArgInteger, parser.ArgNull, parser.ArgPassthrough,
	}, kinds)
	assert.Equal(t, "@", stmts[1].Parsed().Delimiter.Text)
	_, ok = stmts[2].(*parser.SQLStatement)
	assert.True(t, ok, "a CALL without arguments is a plain statement")
}

func TestMalformedTerminatorDirective(t *testing.T) {
	for _, src := range []string{
		"SELECT 1 FROM SYSIBM.SYSDUMMY1;\n--#SET TERMINATOR\nSELECT 2;",
		"SELECT 1 FROM SYSIBM.SYSDUMMY1;\n--#SET TERMINATOR   \nSELECT 2;",
	} {
		_, err := parser.Parse(newDialect(t), "V1__db2.sql", src)
		var pe *cerr.ParseError
		require.ErrorAs(t, err, &pe, "%q", src)
		assert.Equal(t, "V1__db2.sql", pe.Script)
		assert.Equal(t, 2, pe.Pos.Line)
		assert.Equal(t, 1, pe.Pos.Col)
	}
}

func TestUnknownDirectiveIsAComment(t *testing.T) {
	stmts := parse(t, "--#SET ROWS_FETCH -1\nSELECT 1 FROM SYSIBM.SYSDUMMY1;")
	require.Len(t, stmts, 1)
	assert.Equal(t, ";", stmts[0].Parsed().Delimiter.Text)
}

func TestLedgerTemplates(t *testing.T) {
	d := newDialect(t)
	ddl := d.CreateLedgerSQL("APP", "flyway_schema_history")
	require.Len(t, ddl, 6)
	assert.Equal(t, "SET CURRENT SQLID = 'APP'", ddl[0])
	assert.Contains(t, ddl[1], `CREATE TABLESPACE SFLYWAY IN "APPDB"`)
	assert.Contains(t, ddl[2], `IN "APPDB".SFLYWAY`)
	assert.Contains(t, ddl[3], `"APP"."flyway_schema_history_pk_idx"`)
	assert.Contains(t, ddl[4], `ADD CONSTRAINT "flyway_schema_history_pk"`)
	assert.Contains(t, ddl[5], `"APP"."flyway_schema_history_s_idx"`)
	assert.Len(t, d.CreateLedgerSQL("", "h"), 5)
	assert.True(t, strings.HasSuffix(d.SelectLedgerSQL(`"h"`), " WITH UR"))
	assert.Empty(t, d.CreateSchemaSQL("APP"))
}

// recorder is a fake connection which records the executed statements
// and serves the queries from a map of results.
type recorder struct {
	execs   []string
	results map[string][][]string // catalog and args => result sets
	inTx    bool
}

func (r *recorder) Exec(_ context.Context, sql string, _ ...any) (int64, error) {
	r.execs = append(r.execs, sql)
	return 0, nil
}

func (r *recorder) Query(
	_ context.Context, sql string, args ...any,
) (repo.Rows, error) {
	key := fmt.Sprintf("%s %v", catalog(sql), args)
	sets := r.results[key]
	if len(sets) == 0 {
		return &nameRows{}, nil
	}
	r.results[key] = sets[1:]
	return &nameRows{names: sets[0]}, nil
}

// catalog returns the name which follows the FROM keyword in sql.
func catalog(sql string) string {
	fields := strings.Fields(sql)
	for i, f := range fields[:len(fields)-1] {
		if f == "FROM" {
			return fields[i+1]
		}
	}
	return ""
}

func (r *recorder) Tx(ctx context.Context, f repo.TxHandler) error {
	r.inTx = true
	defer func() { r.inTx = false }()
	return f(ctx, recorderTx{r})
}

func (r *recorder) IsConn() {
}

type recorderTx struct {
	*recorder
}

func (recorderTx) IsTx() {
}

type nameRows struct {
	names []string
	i     int
}

func (nr *nameRows) Close()              {}
func (nr *nameRows) Err() error          { return nil }
func (nr *nameRows) NextResultSet() bool { return false }

func (nr *nameRows) Next() bool {
	nr.i++
	return nr.i <= len(nr.names)
}

func (nr *nameRows) Scan(dest ...any) error {
	*dest[0].(*string) = nr.names[nr.i-1]
	return nil
}

func (nr *nameRows) Values() ([]any, error) {
	return nil, errors.New("not supported")
}

func TestLockRunsActionInTransaction(t *testing.T) {
	d := newDialect(t)
	r := &recorder{}
	err := d.Lock(context.Background(), r, `"APP"."h"`, func(
		ctx context.Context, q repo.Queryer,
	) error {
		_, ok := q.(repo.Tx)
		assert.True(t, ok, "action must receive the transaction")
		assert.True(t, r.inTx)
		_, err := q.Exec(ctx, "INSERT INTO X VALUES (1)")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`LOCK TABLE "APP"."h" IN EXCLUSIVE MODE`,
		"INSERT INTO X VALUES (1)",
	}, r.execs)
}

func TestClean(t *testing.T) {
	d := newDialect(t)
	r := &recorder{results: map[string][][]string{
		"SYSIBM.SYSDUMMY1 []":              {{"APP"}},
		"SYSIBM.SYSTABLES [V APPDB APP]":   {{"V1"}, {"V2"}},
		"SYSIBM.SYSTABLES [T APPDB APP]":   {{"T1", "T2"}},
		"SYSIBM.SYSTABLESPACE [APPDB APP]": {{"TS1"}},
		"SYSIBM.SYSTRIGGERS [APP]":         {{"TRG"}},
		"SYSIBM.SYSROUTINES [APP]":         {nil, {"F1"}},
	}}
	require.NoError(t, d.Clean(context.Background(), r, nil))
	assert.Equal(t, []string{
		`DROP VIEW "APP"."V1"`,
		`DROP VIEW "APP"."V2"`,
		`DROP TABLE "APP"."T1"`,
		`DROP TABLE "APP"."T2"`,
		`DROP TABLESPACE "APPDB"."TS1"`,
		`DROP TRIGGER "APP"."TRG"`,
		`DROP SPECIFIC FUNCTION "APP"."F1"`,
	}, r.execs)
}

func TestErrorDetail(t *testing.T) {
	d := newDialect(t)
	err := fmt.Errorf("exec: %w", stateErr("42704"))
	assert.Equal(t, "SQLSTATE 42704", d.ErrorDetail(err))
	assert.Empty(t, d.ErrorDetail(errors.New("plain")))
}

type stateErr string

func (se stateErr) Error() string    { return "sql error " + string(se) }
func (se stateErr) SQLState() string { return string(se) }

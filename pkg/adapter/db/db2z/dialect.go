// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package db2z

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/momeni/sqlmig/pkg/adapter/db/ansi"
	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/parser"
	"github.com/momeni/sqlmig/pkg/core/repo"
)

// Dialect implements the repo.Dialect and parser.Dialect interfaces
// for DB2 for z/OS.
type Dialect struct {
	parser.Base
	ansi.Ledger

	database   string
	tablespace string
	sentinel   string
}

var (
	_ repo.Dialect   = (*Dialect)(nil)
	_ parser.Dialect = (*Dialect)(nil)
)

// NewDialect instantiates a DB2 for z/OS Dialect. The WithDatabase
// option must be passed.
func NewDialect(opts ...Option) (*Dialect, error) {
	d := &Dialect{
		Ledger:     ansi.Ledger{False: "0"},
		tablespace: DefaultTablespace,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if d.database == "" {
		return nil, errors.New("database name is not configured")
	}
	return d, nil
}

func (d *Dialect) Name() string {
	return Name
}

func (d *Dialect) Quote(identifiers ...string) string {
	return ansi.Quote(`"`, identifiers...)
}

func (d *Dialect) BooleanTrue() string {
	return "1"
}

func (d *Dialect) BooleanFalse() string {
	return "0"
}

func (d *Dialect) SupportsDDLTransactions() bool {
	return true
}

func (d *Dialect) SupportsEmptyDescription() bool {
	return true
}

func (d *Dialect) LedgerExistsSQL(schema, table string) (string, []any) {
	return `SELECT 1 FROM SYSIBM.SYSTABLES
WHERE CREATOR = COALESCE(NULLIF(CAST(? AS VARCHAR(128)), ''), CURRENT SQLID)
AND NAME = ?`, []any{schema, table}
}

// CreateLedgerSQL creates the schema history table in a dedicated
// tablespace of the configured database.
func (d *Dialect) CreateLedgerSQL(schema, table string) []string {
	t := d.Quote(schema, table)
	var stmts []string
	if schema != "" {
		stmts = append(stmts, fmt.Sprintf(
			"SET CURRENT SQLID = '%s'", strings.ReplaceAll(schema, "'", "''"),
		))
	}
	return append(stmts,
		fmt.Sprintf(
			"CREATE TABLESPACE %s IN %s MAXPARTITIONS 1 LOCKSIZE ROW "+
				"CLOSE YES COMPRESS YES",
			d.tablespace, d.Quote(d.database),
		),
		fmt.Sprintf(`CREATE TABLE %s (
    installed_rank INT NOT NULL,
    version VARCHAR(50),
    description VARCHAR(200) NOT NULL,
    type VARCHAR(20) NOT NULL,
    script VARCHAR(1000) NOT NULL,
    checksum INT,
    installed_by VARCHAR(100) NOT NULL,
    installed_on TIMESTAMP NOT NULL WITH DEFAULT,
    execution_time INT NOT NULL,
    success SMALLINT NOT NULL,
    CONSTRAINT %s CHECK (success IN (0, 1))
) IN %s.%s`, t, d.Quote(table+"_s"), d.Quote(d.database), d.tablespace),
		fmt.Sprintf(
			"CREATE UNIQUE INDEX %s ON %s (installed_rank)",
			d.Quote(schema, table+"_pk_idx"), t,
		),
		fmt.Sprintf(
			"ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (installed_rank)",
			t, d.Quote(table+"_pk"),
		),
		fmt.Sprintf(
			"CREATE INDEX %s ON %s (success)",
			d.Quote(schema, table+"_s_idx"), t,
		),
	)
}

// SelectLedgerSQL allows uncommitted reads, so the schema history can
// be reported while another process is migrating the database.
func (d *Dialect) SelectLedgerSQL(table string) string {
	return d.Ledger.SelectLedgerSQL(table) + " WITH UR"
}

// CreateSchemaSQL returns an empty string since DB2 for z/OS schemas
// are not created explicitly.
func (d *Dialect) CreateSchemaSQL(string) string {
	return ""
}

// Lock locks the object table in a transaction and runs action within
// that transaction. The lock is released by the commit or rollback.
func (d *Dialect) Lock(
	ctx context.Context, c repo.Conn, object string,
	action repo.LockedHandler,
) error {
	return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
		sql := fmt.Sprintf("LOCK TABLE %s IN EXCLUSIVE MODE", object)
		if _, err := tx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("locking %s: %w", object, err)
		}
		return action(ctx, tx)
	})
}

// ErrorDetail reports the SQLSTATE of drivers whose errors provide it.
func (d *Dialect) ErrorDetail(err error) string {
	var se interface{ SQLState() string }
	if !errors.As(err, &se) {
		return ""
	}
	return "SQLSTATE " + se.SQLState()
}

// Classify converts the CALL statements with arguments to the
// parser.CallStatement instances.
func (d *Dialect) Classify(ps model.ParsedStatement) (parser.Statement, error) {
	if cs := parser.NewCallStatement(ps, d.sentinel); cs != nil {
		return cs, nil
	}
	return &parser.SQLStatement{ParsedStatement: ps}, nil
}

func (d *Dialect) DirectivePrefix() string {
	return "--#"
}

// Directive interprets the --#SET TERMINATOR directives. Other
// directives are comments.
func (d *Dialect) Directive(line string) (model.Delimiter, bool, error) {
	text, ok := strings.CutPrefix(strings.TrimRight(line, " \t\r"), "--#SET TERMINATOR")
	if !ok {
		return model.Delimiter{}, false, nil
	}
	if text != "" && text[0] != ' ' && text[0] != '\t' {
		return model.Delimiter{}, false, nil // like --#SET TERMINATORS
	}
	text = strings.TrimSpace(text)
	if text == "" || strings.ContainsAny(text, " \t") {
		return model.Delimiter{}, false, fmt.Errorf(
			"invalid terminator in %q directive", line,
		)
	}
	return model.Delimiter{Text: text}, true, nil
}

// WHILE and FOR bodies start with DO, so they are covered by DO.
var controlFlow = []string{"LOOP", "CASE", "DO", "REPEAT", "IF"}

var (
	createIfNotExists = regexp.MustCompile(
		`^.*CREATE\s([^\s]+\s){0,2}IF\sNOT\sEXISTS$`,
	)
	dropIfExists = regexp.MustCompile(`^.*DROP\s([^\s]+\s){0,2}IF\sEXISTS$`)
)

// AdjustBlockDepth opens blocks with BEGIN (except ROW BEGIN of the
// temporal tables) and the control flow keywords (except END IF and
// the like), and closes them with END. The IF of the IF [NOT] EXISTS
// clauses opens a block too, so their EXISTS keyword closes it.
func (d *Dialect) AdjustBlockDepth(
	pc *parser.Context, tokens []parser.Token, keyword parser.Token,
) {
	if parser.MatchesTrailing(tokens, keyword, createIfNotExists) ||
		parser.MatchesTrailing(tokens, keyword, dropIfExists) {
		pc.DecreaseBlockDepth()
		return
	}
	previous, prevPrevious := "", ""
	i := parser.LastKeywordIndex(tokens, len(tokens))
	if i >= 0 {
		previous = tokens[i].Text
		if j := parser.LastKeywordIndex(tokens, i); j >= 0 {
			prevPrevious = tokens[j].Text
		}
	}
	kw := keyword.Text
	rowBegin := previous == "ROW" && prevPrevious != "" &&
		prevPrevious != "EACH"
	opens := slices.Contains(controlFlow, kw) || kw == "BEGIN" && !rowBegin
	switch {
	case opens:
		n := len(tokens)
		afterEnd := n > 0 && tokens[n-1].Type == parser.TokenKeyword &&
			previous == "END"
		if !afterEnd {
			pc.IncreaseBlockDepth(kw)
		}
	case kw == "END" && previous != "ROW":
		pc.DecreaseBlockDepth()
	}
}

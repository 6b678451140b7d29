// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sqlite

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/momeni/sqlmig/pkg/adapter/db/ansi"
	"github.com/momeni/sqlmig/pkg/core/parser"
	"github.com/momeni/sqlmig/pkg/core/repo"
	msqlite "modernc.org/sqlite"
)

// Dialect implements the repo.Dialect and parser.Dialect interfaces
// for SQLite. Its zero value is not usable, use NewDialect instead.
type Dialect struct {
	parser.Base
	ansi.Ledger

	locks sync.Map // object name => chan struct{}
}

var (
	_ repo.Dialect   = (*Dialect)(nil)
	_ parser.Dialect = (*Dialect)(nil)
)

func NewDialect() *Dialect {
	return &Dialect{Ledger: ansi.Ledger{False: "0"}}
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
	return fmt.Sprintf(
		"SELECT 1 FROM %s WHERE type = 'table' AND name = ?",
		master(d, schema),
	), []any{table}
}

func master(d *Dialect, schema string) string {
	if schema == "" {
		return "sqlite_master"
	}
	return d.Quote(schema) + ".sqlite_master"
}

func (d *Dialect) CreateLedgerSQL(schema, table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE %s (
    installed_rank INT NOT NULL PRIMARY KEY,
    version VARCHAR(50),
    description VARCHAR(200) NOT NULL,
    type VARCHAR(20) NOT NULL,
    script VARCHAR(1000) NOT NULL,
    checksum INT,
    installed_by VARCHAR(100) NOT NULL,
    installed_on TIMESTAMP NOT NULL DEFAULT (strftime('%%Y-%%m-%%d %%H:%%M:%%f','now')),
    execution_time INT NOT NULL,
    success BOOLEAN NOT NULL
)`, d.Quote(schema, table)),
		fmt.Sprintf(
			"CREATE INDEX %s ON %s (success)",
			d.Quote(schema, table+"_s_idx"), d.Quote(table),
		),
	}
}

// CreateSchemaSQL returns an empty string since SQLite schemas are
// the attached database files.
func (d *Dialect) CreateSchemaSQL(string) string {
	return ""
}

// Lock serializes the actions on the same object within this process.
// Waiting for the lock may be cancelled by the ctx context.
func (d *Dialect) Lock(
	ctx context.Context, c repo.Conn, object string,
	action repo.LockedHandler,
) error {
	v, _ := d.locks.LoadOrStore(object, make(chan struct{}, 1))
	sem := v.(chan struct{})
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s lock: %w", object, ctx.Err())
	}
	defer func() { <-sem }()
	return action(ctx, c)
}

// ErrorDetail returns the extended result code of SQLite errors.
func (d *Dialect) ErrorDetail(err error) string {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return ""
	}
	return fmt.Sprintf("sqlite result code %d", se.Code())
}

// Clean drops all views and tables of the given attached databases, or
// of the main database if no schema is given.
func (d *Dialect) Clean(
	ctx context.Context, q repo.Queryer, schemas []string,
) error {
	if len(schemas) == 0 {
		schemas = []string{"main"}
	}
	for _, s := range schemas {
		for _, typ := range []string{"view", "table"} {
			names, err := objects(ctx, q, master(d, s), typ)
			if err != nil {
				return err
			}
			for _, n := range names {
				sql := fmt.Sprintf("DROP %s %s", typ, d.Quote(s, n))
				if _, err = q.Exec(ctx, sql); err != nil {
					return fmt.Errorf("dropping %s %q: %w", typ, n, err)
				}
			}
		}
	}
	return nil
}

func objects(
	ctx context.Context, q repo.Queryer, master, typ string,
) ([]string, error) {
	rows, err := q.Query(ctx, fmt.Sprintf(
		"SELECT name FROM %s WHERE type = ? AND name NOT LIKE 'sqlite_%%'",
		master,
	), typ)
	if err != nil {
		return nil, fmt.Errorf("listing %s objects: %w", typ, err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err = rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning %s name: %w", typ, err)
		}
		names = append(names, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s objects: %w", typ, err)
	}
	return names, nil
}

// IdentifierQuote accepts the double quotes, backticks, and brackets.
func (d *Dialect) IdentifierQuote(open rune) (rune, bool) {
	switch open {
	case '"':
		return '"', true
	case '`':
		return '`', true
	case '[':
		return ']', true
	}
	return 0, false
}

var createTrigger = regexp.MustCompile(
	`^CREATE( TEMP| TEMPORARY)? TRIGGER`,
)

// AdjustBlockDepth keeps the trigger bodies (BEGIN ... END) and the
// CASE expressions in one statement. Other BEGIN keywords start a
// transaction and open no block.
func (d *Dialect) AdjustBlockDepth(
	pc *parser.Context, tokens []parser.Token, keyword parser.Token,
) {
	switch keyword.Text {
	case "BEGIN":
		if createTrigger.MatchString(keywordsText(tokens)) {
			pc.IncreaseBlockDepth(keyword.Text)
		}
	case "CASE":
		pc.IncreaseBlockDepth(keyword.Text)
	case "END":
		pc.DecreaseBlockDepth()
	}
}

func keywordsText(tokens []parser.Token) string {
	var kws []parser.Token
	for _, t := range tokens {
		if t.Type == parser.TokenKeyword {
			kws = append(kws, t)
		}
	}
	return parser.SimplifiedText(kws)
}

var nonTransactional = []*regexp.Regexp{
	regexp.MustCompile(`^PRAGMA FOREIGN_KEYS$`),
	regexp.MustCompile(`^VACUUM$`),
}

// Transactional detects the VACUUM and PRAGMA foreign_keys statements
// which have no effect (or fail) in a transaction.
func (d *Dialect) Transactional(keywords []parser.Token) (bool, bool) {
	text := parser.SimplifiedText(keywords)
	for _, re := range nonTransactional {
		if re.MatchString(text) {
			return false, true
		}
	}
	return true, false
}

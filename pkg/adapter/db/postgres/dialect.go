// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package postgres

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/momeni/sqlmig/pkg/adapter/db/ansi"
	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/parser"
	"github.com/momeni/sqlmig/pkg/core/repo"
)

// Dialect implements the repo.Dialect and parser.Dialect interfaces
// for PostgreSQL.
type Dialect struct {
	parser.Base
	ansi.Ledger
}

var (
	_ repo.Dialect   = (*Dialect)(nil)
	_ parser.Dialect = (*Dialect)(nil)
)

// NewDialect instantiates a PostgreSQL Dialect.
func NewDialect() *Dialect {
	return &Dialect{Ledger: ansi.Ledger{False: "false"}}
}

func (d *Dialect) Name() string {
	return Name
}

func (d *Dialect) Quote(identifiers ...string) string {
	return ansi.Quote(`"`, identifiers...)
}

func (d *Dialect) BooleanTrue() string {
	return "true"
}

func (d *Dialect) BooleanFalse() string {
	return "false"
}

func (d *Dialect) SupportsDDLTransactions() bool {
	return true
}

func (d *Dialect) SupportsEmptyDescription() bool {
	return true
}

func (d *Dialect) LedgerExistsSQL(schema, table string) (string, []any) {
	return `SELECT 1 FROM information_schema.tables
WHERE table_schema = COALESCE(NULLIF(?, ''), current_schema())
AND table_name = ?`, []any{schema, table}
}

func (d *Dialect) CreateLedgerSQL(schema, table string) []string {
	t := d.Quote(schema, table)
	return []string{
		fmt.Sprintf(`CREATE TABLE %s (
    "installed_rank" INT NOT NULL,
    "version" VARCHAR(50),
    "description" VARCHAR(200) NOT NULL,
    "type" VARCHAR(20) NOT NULL,
    "script" VARCHAR(1000) NOT NULL,
    "checksum" INTEGER,
    "installed_by" VARCHAR(100) NOT NULL,
    "installed_on" TIMESTAMP NOT NULL DEFAULT now(),
    "execution_time" INTEGER NOT NULL,
    "success" BOOLEAN NOT NULL,
    CONSTRAINT %s PRIMARY KEY ("installed_rank")
)`, t, d.Quote(table+"_pk")),
		fmt.Sprintf(
			`CREATE INDEX %s ON %s ("success")`,
			d.Quote(table+"_s_idx"), t,
		),
	}
}

func (d *Dialect) CreateSchemaSQL(schema string) string {
	return "CREATE SCHEMA IF NOT EXISTS " + d.Quote(schema)
}

// Lock obtains a session level advisory lock whose key is derived from
// the object name. The lock belongs to the c connection and is released
// after the action returns.
func (d *Dialect) Lock(
	ctx context.Context, c repo.Conn, object string,
	action repo.LockedHandler,
) (err error) {
	id := lockID(object)
	if _, err = c.Exec(ctx, "SELECT pg_advisory_lock(?)", id); err != nil {
		return fmt.Errorf("pg_advisory_lock(%d): %w", id, err)
	}
	defer func() {
		ctx := context.WithoutCancel(ctx)
		_, err2 := c.Exec(ctx, "SELECT pg_advisory_unlock(?)", id)
		if err2 != nil {
			err = errors.Join(err, fmt.Errorf(
				"pg_advisory_unlock(%d): %w", id, err2,
			))
		}
	}()
	return action(ctx, c)
}

// lockID hashes the object name into a non-negative advisory lock key.
func lockID(object string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(object))
	return int64(h.Sum64() & 0x7FFFFFFFFFFFFFFF)
}

// ErrorDetail formats the SQLSTATE and diagnostics of a PostgreSQL error.
func (d *Dialect) ErrorDetail(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ""
	}
	parts := []string{"SQLSTATE " + pgErr.Code}
	if pgErr.Detail != "" {
		parts = append(parts, "detail: "+pgErr.Detail)
	}
	if pgErr.Hint != "" {
		parts = append(parts, "hint: "+pgErr.Hint)
	}
	if pgErr.Position > 0 {
		parts = append(parts, fmt.Sprintf("position: %d", pgErr.Position))
	}
	return strings.Join(parts, ", ")
}

// Clean drops and recreates the given schemas, or the current schema
// if no schema is given, so all of their objects are removed.
func (d *Dialect) Clean(
	ctx context.Context, q repo.Queryer, schemas []string,
) error {
	if len(schemas) == 0 {
		s, err := currentSchema(ctx, q)
		if err != nil {
			return err
		}
		schemas = []string{s}
	}
	for _, s := range schemas {
		if _, err := q.Exec(ctx, fmt.Sprintf(
			"DROP SCHEMA IF EXISTS %s CASCADE", d.Quote(s),
		)); err != nil {
			return fmt.Errorf("dropping %q schema: %w", s, err)
		}
		if _, err := q.Exec(ctx, "CREATE SCHEMA "+d.Quote(s)); err != nil {
			return fmt.Errorf("creating %q schema: %w", s, err)
		}
	}
	return nil
}

func currentSchema(ctx context.Context, q repo.Queryer) (string, error) {
	rows, err := q.Query(ctx, "SELECT current_schema()")
	if err != nil {
		return "", fmt.Errorf("querying current schema: %w", err)
	}
	defer rows.Close()
	var s string
	if rows.Next() {
		if err = rows.Scan(&s); err != nil {
			return "", fmt.Errorf("scanning current schema: %w", err)
		}
	}
	if err = rows.Err(); err != nil {
		return "", fmt.Errorf("iterating current schema: %w", err)
	}
	if s == "" {
		return "", errors.New("no current schema")
	}
	return s, nil
}

var dollarTag = regexp.MustCompile(`^\$([A-Za-z_][A-Za-z0-9_]*)?\$`)

// ReadAlternativeString reads the dollar quoted strings like $$...$$
// and $body$...$body$ which are used in the function bodies.
func (d *Dialect) ReadAlternativeString(r *parser.Reader) (bool, error) {
	if r.PeekRune() != '$' {
		return false, nil
	}
	tag := dollarTag.FindString(r.Rest())
	if tag == "" {
		return false, nil // like the $1 parameters
	}
	r.Advance(len(tag))
	if _, ok := r.AdvancePast(tag); !ok {
		return false, fmt.Errorf("unterminated %s quoted string", tag)
	}
	return true, nil
}

// AdjustBlockDepth tracks the SQL-standard function bodies, namely the
// BEGIN ATOMIC ... END blocks, and the CASE ... END expressions.
func (d *Dialect) AdjustBlockDepth(
	pc *parser.Context, tokens []parser.Token, keyword parser.Token,
) {
	switch keyword.Text {
	case "ATOMIC":
		if parser.LastTokenIs(tokens, keyword.ParensDepth, "BEGIN") {
			pc.IncreaseBlockDepth("BEGIN")
		}
	case "CASE":
		pc.IncreaseBlockDepth(keyword.Text)
	case "END":
		pc.DecreaseBlockDepth()
	}
}

var nonTransactional = []*regexp.Regexp{
	regexp.MustCompile(`^(CREATE|DROP) (DATABASE|TABLESPACE|SUBSCRIPTION)$`),
	regexp.MustCompile(`^ALTER SYSTEM$`),
	regexp.MustCompile(`^(CREATE|DROP)( UNIQUE)? INDEX CONCURRENTLY$`),
	regexp.MustCompile(`^REINDEX( VERBOSE)? (SCHEMA|DATABASE|SYSTEM)$`),
	regexp.MustCompile(`^VACUUM$`),
	regexp.MustCompile(`^DISCARD ALL$`),
	regexp.MustCompile(`^ALTER TYPE( .*)? ADD VALUE$`),
}

// Transactional detects the statements which cannot be executed in a
// transaction block, such as VACUUM and CREATE INDEX CONCURRENTLY.
func (d *Dialect) Transactional(keywords []parser.Token) (bool, bool) {
	text := parser.SimplifiedText(keywords)
	for _, re := range nonTransactional {
		if re.MatchString(text) {
			return false, true
		}
	}
	return true, false
}

// DefaultDelimiter is the semicolon.
func (d *Dialect) DefaultDelimiter() model.Delimiter {
	return model.DefaultDelimiter
}

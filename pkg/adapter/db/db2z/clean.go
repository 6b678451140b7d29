// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package db2z

import (
	"context"
	"fmt"

	"github.com/momeni/sqlmig/pkg/core/repo"
)

const tablesOfType = `SELECT RTRIM(NAME) FROM SYSIBM.SYSTABLES
WHERE TYPE = ? AND DBNAME = ? AND CREATOR = ?`

// dropStep drops all objects which are listed by query. The objects
// are qualified by the database name if inDatabase is true, and by the
// schema name otherwise.
type dropStep struct {
	drop       string
	query      string
	args       func(database, schema string) []any
	inDatabase bool
}

func tables(typ string) func(database, schema string) []any {
	return func(database, schema string) []any {
		return []any{typ, database, schema}
	}
}

func inDatabase(database, schema string) []any {
	return []any{database, schema}
}

func inSchema(_, schema string) []any {
	return []any{schema}
}

const tablespaces = `SELECT RTRIM(NAME) FROM SYSIBM.SYSTABLESPACE
WHERE IMPLICIT = 'N' AND DBNAME = ? AND CREATOR = ? AND TYPE <> 'O'`
const lobTablespaces = `SELECT RTRIM(NAME) FROM SYSIBM.SYSTABLESPACE
WHERE IMPLICIT = 'N' AND DBNAME = ? AND CREATOR = ? AND TYPE = 'O'`
const sequences = `SELECT RTRIM(NAME) FROM SYSIBM.SYSSEQUENCES
WHERE SCHEMA = ? AND SEQTYPE = 'S'`
const procedures = `SELECT RTRIM(NAME) FROM SYSIBM.SYSROUTINES
WHERE CAST_FUNCTION = 'N' AND ROUTINETYPE = 'P' AND SCHEMA = ?`
const triggers = `SELECT RTRIM(TRIGNAME) FROM SYSIBM.SYSTRIGGERS
WHERE SCHEMA = ?`
const functions = `SELECT RTRIM(SPECIFICNAME) FROM SYSIBM.SYSROUTINES
WHERE ROUTINETYPE = 'F' AND ORIGIN IN ('E', 'M', 'Q', 'U') AND SCHEMA = ?`
const types = `SELECT RTRIM(NAME) FROM SYSIBM.SYSDATATYPES
WHERE SCHEMA = ?`

// The views are dropped before these steps. Indexes and materialized
// query tables are dropped with their tables.
var dropSteps = []dropStep{
	{"DROP ALIAS", tablesOfType, tables("A"), false},
	{"DROP TABLE", tablesOfType, tables("T"), false},
	{"DROP TABLE", tablesOfType, tables("G"), false},
	{"DROP TABLESPACE", tablespaces, inDatabase, true},
	{"DROP TABLESPACE", lobTablespaces, inDatabase, true},
	{"DROP SEQUENCE", sequences, inSchema, false},
	{"DROP PROCEDURE", procedures, inSchema, false},
	{"DROP TRIGGER", triggers, inSchema, false},
	{"DROP SPECIFIC FUNCTION", functions, inSchema, false},
	{"DROP TYPE", types, inSchema, false},
}

// Clean drops the objects of the given schemas which belong to the
// configured database, or the objects of the current SQLID schema if
// no schema is given. The schemas themselves are kept.
func (d *Dialect) Clean(
	ctx context.Context, q repo.Queryer, schemas []string,
) error {
	if len(schemas) == 0 {
		ids, err := names(ctx, q, "SELECT CURRENT SQLID FROM SYSIBM.SYSDUMMY1")
		if err != nil {
			return fmt.Errorf("querying current SQLID: %w", err)
		}
		schemas = ids
	}
	for _, s := range schemas {
		if err := d.cleanSchema(ctx, q, s); err != nil {
			return fmt.Errorf("cleaning %q schema: %w", s, err)
		}
	}
	return nil
}

func (d *Dialect) cleanSchema(
	ctx context.Context, q repo.Queryer, schema string,
) error {
	versioned, err := names(ctx, q, `SELECT RTRIM(NAME) FROM SYSIBM.SYSTABLES
WHERE VERSIONING_TABLE <> '' AND DBNAME = ? AND CREATOR = ?`,
		d.database, schema,
	)
	if err != nil {
		return fmt.Errorf("listing versioned tables: %w", err)
	}
	if len(versioned) > 0 {
		mqts := dropStep{"DROP TABLE", tablesOfType, tables("M"), false}
		if err = d.dropAll(ctx, q, mqts, schema); err != nil {
			return err
		}
	}
	for _, t := range versioned {
		sql := fmt.Sprintf("ALTER TABLE %s DROP VERSIONING", d.Quote(schema, t))
		if _, err = q.Exec(ctx, sql); err != nil {
			return fmt.Errorf("dropping versioning of %q: %w", t, err)
		}
	}
	// dropping a view drops its dependent views, so list them again
	for {
		views, err := names(ctx, q, tablesOfType, "V", d.database, schema)
		if err != nil {
			return fmt.Errorf("listing views: %w", err)
		}
		if len(views) == 0 {
			break
		}
		sql := "DROP VIEW " + d.Quote(schema, views[0])
		if _, err = q.Exec(ctx, sql); err != nil {
			return fmt.Errorf("dropping %q view: %w", views[0], err)
		}
	}
	for _, step := range dropSteps {
		if err = d.dropAll(ctx, q, step, schema); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dialect) dropAll(
	ctx context.Context, q repo.Queryer, step dropStep, schema string,
) error {
	objs, err := names(ctx, q, step.query, step.args(d.database, schema)...)
	if err != nil {
		return fmt.Errorf("listing objects for %s: %w", step.drop, err)
	}
	qualifier := schema
	if step.inDatabase {
		qualifier = d.database
	}
	for _, o := range objs {
		sql := step.drop + " " + d.Quote(qualifier, o)
		if _, err = q.Exec(ctx, sql); err != nil {
			return fmt.Errorf("%s %q: %w", step.drop, o, err)
		}
	}
	return nil
}

func names(
	ctx context.Context, q repo.Queryer, query string, args ...any,
) ([]string, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ns []string
	for rows.Next() {
		var n string
		if err = rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning: %w", err)
		}
		ns = append(ns, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating: %w", err)
	}
	return ns, nil
}

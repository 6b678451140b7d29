// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/momeni/sqlmig/pkg/adapter/db/ansi"
	"github.com/momeni/sqlmig/pkg/core/repo"
	_ "modernc.org/sqlite" // registers the sqlite driver
)

// Pool represents an SQLite database. It keeps at most one open
// connection, so concurrent Conn calls wait for each other.
type Pool struct {
	db *sql.DB
}

var (
	_ repo.Pool = (*Pool)(nil)
	_ repo.Conn = (*Conn)(nil)
	_ repo.Tx   = (*Tx)(nil)
)

// NewPool opens the dsn database file (or ":memory:") and tests the
// connection. The busy timeout and foreign keys pragmas are appended
// to file DSNs.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	if dsn != ":memory:" {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("testing connection: %w", err)
	}
	return &Pool{db: db}, nil
}

func (p *Pool) Conn(ctx context.Context, f repo.ConnHandler) error {
	c, err := p.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer c.Close()
	return f(ctx, &Conn{c: c})
}

func (p *Pool) Close() error {
	return p.db.Close()
}

// Conn is a single connection which is borrowed from a Pool.
type Conn struct {
	c *sql.Conn
}

// Tx begins a transaction and passes it to f. The transaction is
// committed if f returns nil, and is rolled back otherwise (or if f
// panics).
func (c *Conn) Tx(ctx context.Context, f repo.TxHandler) (err error) {
	tx, err := c.c.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			err = tx.Rollback()
			if err == nil {
				err = fmt.Errorf("panicked: %v", r)
				return
			}
			err = fmt.Errorf("panicked: %v, rollback: %w", r, err)
			return
		}
		if err != nil {
			if err2 := tx.Rollback(); err2 != nil {
				err = fmt.Errorf("handler: %w, rollback: %w", err, err2)
				return
			}
			err = fmt.Errorf("handler: %w", err)
			return
		}
		err = tx.Commit()
		if err != nil {
			err = fmt.Errorf("commit: %w", err)
		}
	}()
	return f(ctx, &Tx{tx: tx})
}

func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return exec(c.c.ExecContext(ctx, sql, args...))
}

func (c *Conn) Query(ctx context.Context, sql string, args ...any) (repo.Rows, error) {
	return query(c.c.QueryContext(ctx, sql, args...))
}

func (c *Conn) IsConn() {
}

// Tx represents an SQLite transaction.
type Tx struct {
	tx *sql.Tx
}

func (tx *Tx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return exec(tx.tx.ExecContext(ctx, sql, args...))
}

func (tx *Tx) Query(ctx context.Context, sql string, args ...any) (repo.Rows, error) {
	return query(tx.tx.QueryContext(ctx, sql, args...))
}

func (tx *Tx) IsTx() {
}

func exec(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows-affected: %w", err)
	}
	return n, nil
}

func query(rows *sql.Rows, err error) (repo.Rows, error) {
	if err != nil {
		return nil, err
	}
	return ansi.Rows{Rows: rows}, nil
}

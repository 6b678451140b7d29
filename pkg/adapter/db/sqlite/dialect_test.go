// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sqlite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/momeni/sqlmig/internal/test/sqlitedb"
	"github.com/momeni/sqlmig/pkg/adapter/db/sqlite"
	"github.com/momeni/sqlmig/pkg/core/parser"
	"github.com/momeni/sqlmig/pkg/core/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerBodies(t *testing.T) {
	src := "BEGIN TRANSACTION;\n" +
		"CREATE TABLE [t] (a INT, `b` TEXT);\n" +
		"CREATE TRIGGER trg AFTER INSERT ON t BEGIN\n" +
		"  UPDATE t SET b = CASE WHEN a > 0 THEN 'p' ELSE 'n' END;\n" +
		"  DELETE FROM t WHERE a IS NULL;\n" +
		"END;\n" +
		"COMMIT;\n" +
		"PRAGMA foreign_keys = OFF;"
	stmts, err := parser.Parse(sqlite.NewDialect(), "", src)
	require.NoError(t, err)
	require.Len(t, stmts, 5)
	assert.Equal(t, "BEGIN TRANSACTION", stmts[0].Parsed().SQL)
	assert.Equal(t, "CREATE TABLE [t] (a INT, `b` TEXT)", stmts[1].Parsed().SQL)
	assert.Equal(t, 3, stmts[2].Parsed().Pos.Line)
	assert.Contains(t, stmts[2].Parsed().SQL, "a IS NULL;\nEND")
	assert.Equal(t, "COMMIT", stmts[3].Parsed().SQL)
	assert.True(t, stmts[2].Parsed().CanExecuteInTransaction)
	assert.False(t, stmts[4].Parsed().CanExecuteInTransaction)
}

func TestLockSerializesActions(t *testing.T) {
	ctx := context.Background()
	d := sqlite.NewDialect()
	var (
		mu      sync.Mutex
		running int
		maxSeen int
		wg      sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := d.Lock(ctx, nil, "history", func(
				context.Context, repo.Queryer,
			) error {
				mu.Lock()
				running++
				maxSeen = max(maxSeen, running)
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestLockHonoursCancellation(t *testing.T) {
	d := sqlite.NewDialect()
	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = d.Lock(context.Background(), nil, "history", func(
			context.Context, repo.Queryer,
		) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := d.Lock(ctx, nil, "history", func(context.Context, repo.Queryer) error {
		t.Error("action must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestCleanAndErrorDetail(t *testing.T) {
	ctx := context.Background()
	pool := sqlitedb.New(ctx, t)
	d := sqlite.NewDialect()
	err := pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		for _, sql := range []string{
			"CREATE TABLE a (id INT PRIMARY KEY)",
			"CREATE TABLE b (id INT)",
			"CREATE VIEW v AS SELECT a.id FROM a JOIN b ON a.id = b.id",
			"INSERT INTO a VALUES (1)",
		} {
			if _, err := c.Exec(ctx, sql); err != nil {
				return err
			}
		}
		_, err := c.Exec(ctx, "INSERT INTO a VALUES (1)")
		require.Error(t, err)
		assert.Contains(t, d.ErrorDetail(err), "sqlite result code")

		sql, args := d.LedgerExistsSQL("", "a")
		exists := func() bool {
			rows, err := c.Query(ctx, sql, args...)
			require.NoError(t, err)
			defer rows.Close()
			return rows.Next()
		}
		assert.True(t, exists())
		require.NoError(t, d.Clean(ctx, c, nil))
		assert.False(t, exists())
		return nil
	})
	require.NoError(t, err)
}

func TestLedgerTemplates(t *testing.T) {
	d := sqlite.NewDialect()
	ddl := d.CreateLedgerSQL("", "flyway_schema_history")
	require.Len(t, ddl, 2)
	assert.Contains(t, ddl[0], `CREATE TABLE "flyway_schema_history"`)
	assert.Contains(t, ddl[0], "strftime('%Y-%m-%d %H:%M:%f','now')")
	assert.Equal(t,
		`CREATE INDEX "flyway_schema_history_s_idx" ON "flyway_schema_history" (success)`,
		ddl[1],
	)
	sql, args := d.LedgerExistsSQL("aux", "h")
	assert.Contains(t, sql, `FROM "aux".sqlite_master`)
	assert.Equal(t, []any{"h"}, args)
	assert.Empty(t, d.CreateSchemaSQL("aux"))
	assert.Contains(t, d.DeleteLedgerSQL(`"h"`), "success = 0")
}

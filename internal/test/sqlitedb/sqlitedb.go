// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package sqlitedb is an internal helper for the test packages.
// It creates a temporary SQLite database file and connects to it,
// using a *sqlite.Pool connection pool, so the integration-level tests
// can run without an external DBMS server.
package sqlitedb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/momeni/sqlmig/pkg/adapter/db/sqlite"
	"github.com/stretchr/testify/require"
)

// New creates an empty database in a temporary directory of t and
// returns a pool which is closed when t and its subtests complete.
func New(ctx context.Context, t *testing.T) *sqlite.Pool {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	pool, err := sqlite.NewPool(ctx, dsn)
	require.NoError(t, err, "cannot open test database")
	t.Cleanup(func() {
		require.NoError(t, pool.Close(), "failed to close test database")
	})
	return pool
}

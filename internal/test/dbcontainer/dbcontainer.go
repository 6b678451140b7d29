// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package dbcontainer starts a disposable PostgreSQL server for the
// integration tests of the postgres dialect. The server runs in a
// postgres:16 container and is reached by a *postgres.Pool, so the
// advisory locks, transactional DDL, and dollar quoted function bodies
// are exercised against a real DBMS.
package dbcontainer

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/bitcomplete/sqltestutil"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/momeni/sqlmig/pkg/adapter/db/postgres"
	"github.com/stretchr/testify/assert"
)

// New starts a postgres container and connects to it. A docker (or
// podman) socket must be reachable, for podman by setting the
// DOCKER_HOST=unix://$XDG_RUNTIME_DIR/podman/podman.sock beforehand.
// The returned dfrs must be called (even if ok is false) in order to
// close the pool and remove the container. The timeout only limits the
// start up phase, while ctx is used for the shutdown too.
func New(ctx context.Context, timeout time.Duration, t *testing.T) (
	pg *sqltestutil.PostgresContainer,
	pool *postgres.Pool,
	dfrs []func(),
	ok bool,
) {
	ctx2, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	pg, err := sqltestutil.StartPostgresContainer(ctx2, "16")
	ok = assert.NoError(t, err, "starting postgres container")
	if !ok {
		return
	}
	dfrs = append(dfrs, func() {
		err := pg.Shutdown(ctx)
		assert.NoError(t, err, "removing postgres container")
	})
	u := pg.ConnectionString()
	for pool == nil {
		pool, err = postgres.NewPool(ctx2, u)
		if err != nil && ctx2.Err() == nil && starting(err) {
			time.Sleep(200 * time.Millisecond)
			continue
		}
		ok = assert.NoError(t, err, "connecting to postgres container")
		if !ok {
			return
		}
	}
	dfrs = append(dfrs, func() {
		err := pool.Close()
		assert.NoError(t, err, "closing postgres pool")
	})
	return
}

// starting reports whether err is expected while the server is still
// starting up (e.g., SQLSTATE 57P03 or a refused connection).
func starting(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "57P03"
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

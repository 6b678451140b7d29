// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package historyrp is the adapter for the schema history repository.
// It exposes the historyrp.Repo type which creates a repo.Ledger for
// each database connection. The ledger reads and writes the rows of the
// schema history table using the statements of a repo.Dialect, so the
// same code serves all database backends.
package historyrp

import (
	"errors"
	"os/user"
	"time"

	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/repo"
)

// DefaultTable is the name of the schema history table, unless another
// name is configured.
const DefaultTable = "flyway_schema_history"

// Repo represents the schema history repository instance.
type Repo struct {
	d           repo.Dialect
	locker      repo.Locker
	schema      string
	table       string
	installedBy string
	attempts    int
	backoff     time.Duration

	baselineVersion     *model.Version
	baselineDescription string
}

var _ repo.History = (*Repo)(nil)

// New instantiates a schema history Repo which uses the d dialect.
// By default, the history is kept in the DefaultTable of the current
// schema, the rows are installed by the current OS user, and the table
// creation is attempted 10 times with a one second backoff.
func New(d repo.Dialect, opts ...Option) (*Repo, error) {
	if d == nil {
		return nil, errors.New("dialect is nil")
	}
	r := &Repo{
		d:                   d,
		locker:              d,
		table:               DefaultTable,
		attempts:            10,
		backoff:             time.Second,
		baselineVersion:     model.MustParseVersion("1"),
		baselineDescription: "<< Baseline >>",
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.installedBy == "" {
		r.installedBy = currentUser()
	}
	return r, nil
}

func currentUser() string {
	u, err := user.Current()
	if err != nil || u.Username == "" {
		return "unknown"
	}
	return u.Username
}

// Conn takes a Conn interface instance and returns a repo.Ledger which
// runs all of its statements (and takes its locks) on that connection.
// The returned ledger caches the schema history rows, so it should be
// reused during a migration run. It must not be used concurrently.
func (r *Repo) Conn(c repo.Conn) repo.Ledger {
	return &ledger{Repo: r, c: c, q: c}
}

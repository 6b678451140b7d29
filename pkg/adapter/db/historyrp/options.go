// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package historyrp

import (
	"errors"
	"fmt"
	"time"

	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/repo"
)

// Option is a functional option for the schema history Repo.
type Option func(r *Repo) error

// WithTable keeps the schema history in the table of schema. An empty
// schema selects the current schema of the connection.
func WithTable(schema, table string) Option {
	return func(r *Repo) error {
		if table == "" {
			return errors.New("table name is empty")
		}
		r.schema, r.table = schema, table
		return nil
	}
}

// WithInstalledBy records user as the installer of new rows.
func WithInstalledBy(user string) Option {
	return func(r *Repo) error {
		if len([]rune(user)) > 100 {
			return fmt.Errorf("installed-by user %q is too long", user)
		}
		r.installedBy = user
		return nil
	}
}

// WithRetry configures the number of attempts for creating the schema
// history table and the backoff between them.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(r *Repo) error {
		if attempts <= 0 {
			return fmt.Errorf("attempts (%d) is not positive", attempts)
		}
		if backoff < 0 {
			return fmt.Errorf("backoff (%v) is negative", backoff)
		}
		r.attempts, r.backoff = attempts, backoff
		return nil
	}
}

// WithLocker replaces the dialect lock (which is obtained from the
// database) by l, such as a Redis based lock.
func WithLocker(l repo.Locker) Option {
	return func(r *Repo) error {
		if l == nil {
			return errors.New("locker is nil")
		}
		r.locker = l
		return nil
	}
}

// WithBaseline configures the version and description of the baseline
// marker which is inserted by Create(ctx, true).
func WithBaseline(v *model.Version, description string) Option {
	return func(r *Repo) error {
		if v == nil || v.IsSentinel() {
			return fmt.Errorf("baseline version %v is not a regular version", v)
		}
		r.baselineVersion, r.baselineDescription = v, description
		return nil
	}
}

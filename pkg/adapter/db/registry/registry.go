// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package registry maps the dialect identifiers (as they appear in the
// configuration files) to the database adapters. The table is explicit:
// New registers the postgres, sqlite, and db2z adapters and callers may
// Register more adapters before using it.
package registry

import (
	"context"
	"fmt"
	"slices"

	"github.com/momeni/sqlmig/pkg/adapter/db/db2z"
	"github.com/momeni/sqlmig/pkg/adapter/db/postgres"
	"github.com/momeni/sqlmig/pkg/adapter/db/sqlite"
	"github.com/momeni/sqlmig/pkg/core/cerr"
	"github.com/momeni/sqlmig/pkg/core/parser"
	"github.com/momeni/sqlmig/pkg/core/repo"
)

// Dialect describes both of the database and the script syntax of
// a backend.
type Dialect interface {
	repo.Dialect
	parser.Dialect
}

// Pool is a closable connection pool.
type Pool interface {
	repo.Pool
	Close() error
}

// Settings holds the backend specific settings. Each adapter uses the
// fields which are relevant to it and ignores the rest.
type Settings struct {
	Database        string
	Tablespace      string
	FailureSentinel string
}

// Entry describes one adapter. Connect may be nil if the adapter has
// no driver, so its Dialect can only be used with externally provided
// connections.
type Entry struct {
	NewDialect func(s Settings) (Dialect, error)
	Connect    func(ctx context.Context, url string) (Pool, error)
}

// Registry is a table of adapters keyed by their dialect identifiers.
type Registry struct {
	entries map[string]Entry
}

// New creates a Registry with the built-in adapters.
func New() *Registry {
	r := &Registry{entries: make(map[string]Entry)}
	r.entries[postgres.Name] = Entry{
		NewDialect: func(Settings) (Dialect, error) {
			return postgres.NewDialect(), nil
		},
		Connect: func(ctx context.Context, url string) (Pool, error) {
			p, err := postgres.NewPool(ctx, url)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
	}
	r.entries[sqlite.Name] = Entry{
		NewDialect: func(Settings) (Dialect, error) {
			return sqlite.NewDialect(), nil
		},
		Connect: func(ctx context.Context, url string) (Pool, error) {
			p, err := sqlite.NewPool(ctx, url)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
	}
	r.entries[db2z.Name] = Entry{
		NewDialect: func(s Settings) (Dialect, error) {
			opts := []db2z.Option{
				db2z.WithDatabase(s.Database),
				db2z.WithFailureSentinel(s.FailureSentinel),
			}
			if s.Tablespace != "" {
				opts = append(opts, db2z.WithTablespace(s.Tablespace))
			}
			return db2z.NewDialect(opts...)
		},
	}
	return r
}

// Register adds the e adapter with the id dialect identifier.
// Replacing an existing adapter is an error.
func (r *Registry) Register(id string, e Entry) error {
	if e.NewDialect == nil {
		return fmt.Errorf("dialect %q has no constructor", id)
	}
	if _, ok := r.entries[id]; ok {
		return fmt.Errorf("dialect %q is already registered", id)
	}
	r.entries[id] = e
	return nil
}

// IDs returns the sorted identifiers of the registered adapters.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Registry) entry(id string) (Entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, cerr.Configuration("dialect", fmt.Errorf(
			"unknown dialect %q (supported: %v)", id, r.IDs(),
		))
	}
	return e, nil
}

// Dialect instantiates the id dialect with s settings.
func (r *Registry) Dialect(id string, s Settings) (Dialect, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	d, err := e.NewDialect(s)
	if err != nil {
		return nil, cerr.Configuration("dialect", err)
	}
	return d, nil
}

// Connect connects to the url database using the id adapter.
func (r *Registry) Connect(
	ctx context.Context, id, url string,
) (Pool, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	if e.Connect == nil {
		return nil, cerr.Configuration("dialect", fmt.Errorf(
			"dialect %q has no built-in driver", id,
		))
	}
	return e.Connect(ctx, url)
}

// HasDriver reports whether the id adapter can connect by itself.
func (r *Registry) HasDriver(id string) bool {
	e, ok := r.entries[id]
	return ok && e.Connect != nil
}

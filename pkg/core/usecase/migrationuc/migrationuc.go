// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package migrationuc provides the schema migration use cases.
// The main use case is Migrate which applies the pending migrations of
// a repo.Source to the database, one after another (or as a group),
// while the schema history table is locked. Each applied migration is
// recorded in the schema history, so it will not be applied again.
// Other use cases are Info and Validate (reporting the state of the
// migrations), Repair (fixing the schema history), Baseline (marking
// an existing schema as a baseline version), and Clean (dropping all
// objects of the managed schemas).
package migrationuc

import (
	"errors"
	"fmt"

	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/parser"
	"github.com/momeni/sqlmig/pkg/core/repo"
)

// Dialect is a database dialect which can both parse the scripts and
// provide the database specific statements.
type Dialect interface {
	repo.Dialect
	parser.Dialect
}

// UseCase represents the migration use cases. It holds a database
// connection pool, the dialect of that database, the schema history
// repository, and the source of the available migrations.
type UseCase struct {
	pool    repo.Pool
	d       Dialect
	history repo.History
	source  repo.Source

	schemas       []string
	createSchemas bool

	target              *model.Version
	outOfOrder          bool
	cherryPick          []model.MigrationPattern
	failOnMissingTarget bool
	ignore              ignoreFlags

	group bool
	mixed bool

	skipValidateOnMigrate  bool
	cleanOnValidationError bool
	cleanEnabled           bool

	baselineOnMigrate   bool
	baselineVersion     *model.Version
	baselineDescription string
}

type ignoreFlags struct {
	pending, ignored, missing, future bool
}

// New instantiates a migration use case.
// Required parameters are passed individually while the optional
// parameters are passed as a series of functional options.
// By default, migrations are applied one by one up to the latest
// version, the validation runs before migrate, clean is disabled, and
// the configured schemas are created if the schema history is missing.
func New(
	p repo.Pool, d Dialect, h repo.History, src repo.Source,
	opts ...Option,
) (*UseCase, error) {
	switch {
	case p == nil:
		return nil, errors.New("pool is nil")
	case d == nil:
		return nil, errors.New("dialect is nil")
	case h == nil:
		return nil, errors.New("history repository is nil")
	case src == nil:
		return nil, errors.New("migration source is nil")
	}
	uc := &UseCase{
		pool:                p,
		d:                   d,
		history:             h,
		source:              src,
		createSchemas:       true,
		target:              model.LatestVersion,
		baselineVersion:     model.MustParseVersion("1"),
		baselineDescription: "<< Baseline >>",
	}
	for _, opt := range opts {
		if err := opt(uc); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return uc, nil
}

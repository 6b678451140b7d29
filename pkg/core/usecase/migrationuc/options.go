// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package migrationuc

import (
	"errors"
	"fmt"

	"github.com/momeni/sqlmig/pkg/core/model"
)

// Option is a functional option for the migration use cases.
type Option func(uc *UseCase) error

// WithSchemas sets the schemas which are managed by the migrations.
// They are created (if createSchemas is true) before the creation of
// the schema history table and are cleaned by the Clean use case.
func WithSchemas(createSchemas bool, schemas ...string) Option {
	return func(uc *UseCase) error {
		for _, s := range schemas {
			if s == "" {
				return errors.New("schema name is empty")
			}
		}
		uc.schemas, uc.createSchemas = schemas, createSchemas
		return nil
	}
}

// WithTarget sets the highest version which should be migrated to.
// The CurrentVersion and NextVersion sentinels are resolved once, at
// the beginning of the migration.
func WithTarget(v *model.Version) Option {
	return func(uc *UseCase) error {
		if v == nil || v == model.EmptyVersion {
			return fmt.Errorf("target version %v is not acceptable", v)
		}
		uc.target = v
		return nil
	}
}

// WithOutOfOrder allows the pending migrations which are older than
// the last applied migration to be applied.
func WithOutOfOrder(outOfOrder bool) Option {
	return func(uc *UseCase) error {
		uc.outOfOrder = outOfOrder
		return nil
	}
}

// WithCherryPick restricts the migrations which may be applied to
// those which match at least one of the patterns.
func WithCherryPick(patterns ...model.MigrationPattern) Option {
	return func(uc *UseCase) error {
		uc.cherryPick = patterns
		return nil
	}
}

// WithFailOnMissingTarget rejects a regular target version which does
// not belong to any migration.
func WithFailOnMissingTarget(fail bool) Option {
	return func(uc *UseCase) error {
		uc.failOnMissingTarget = fail
		return nil
	}
}

// WithIgnore turns off the validation errors which are reported for
// the pending, ignored, missing, and future migrations.
func WithIgnore(pending, ignored, missing, future bool) Option {
	return func(uc *UseCase) error {
		uc.ignore = ignoreFlags{
			pending: pending,
			ignored: ignored,
			missing: missing,
			future:  future,
		}
		return nil
	}
}

// WithGroup makes all pending migrations be applied together. If all
// of them can be executed in a transaction, they are committed or
// rolled back together.
func WithGroup(group bool) Option {
	return func(uc *UseCase) error {
		uc.group = group
		return nil
	}
}

// WithMixed allows the transactional and non-transactional statements
// to be mixed in a migration (or a group). Such migrations are applied
// without a transaction.
func WithMixed(mixed bool) Option {
	return func(uc *UseCase) error {
		uc.mixed = mixed
		return nil
	}
}

// WithValidateOnMigrate configures the validation which runs before
// the migrations are applied. If validation fails and clean is true,
// the schemas are cleaned (if clean is enabled) and then migrated.
func WithValidateOnMigrate(validate, clean bool) Option {
	return func(uc *UseCase) error {
		if clean && !validate {
			return errors.New("clean on validation error needs validation")
		}
		uc.skipValidateOnMigrate = !validate
		uc.cleanOnValidationError = clean
		return nil
	}
}

// WithCleanEnabled enables the Clean use case, which is disabled by
// default since it drops all objects of the managed schemas.
func WithCleanEnabled(enabled bool) Option {
	return func(uc *UseCase) error {
		uc.cleanEnabled = enabled
		return nil
	}
}

// WithBaseline configures the version and description of the baseline
// marker. If onMigrate is true, Migrate baselines a database which has
// no schema history table (instead of creating an empty one).
func WithBaseline(v *model.Version, description string, onMigrate bool) Option {
	return func(uc *UseCase) error {
		if v == nil || v.IsSentinel() {
			return fmt.Errorf("baseline version %v is not a regular version", v)
		}
		uc.baselineVersion = v
		uc.baselineDescription = description
		uc.baselineOnMigrate = onMigrate
		return nil
	}
}

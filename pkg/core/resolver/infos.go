// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package resolver

import (
	"fmt"

	"github.com/momeni/sqlmig/pkg/core/cerr"
	"github.com/momeni/sqlmig/pkg/core/model"
)

// All returns all migrations in their sorted order.
func (infos *Infos) All() []*model.MigrationInfo {
	return infos.filter(func(*model.MigrationInfo) bool { return true })
}

// Target returns the effective target version. CurrentVersion and
// NextVersion targets are resolved as the last applied version and the
// version of the first pending migration. A nil version is returned
// for NextVersion when there is no pending migration.
func (infos *Infos) Target() *model.Version {
	return infos.ctx.target
}

// LastApplied returns the highest applied version, or EmptyVersion.
func (infos *Infos) LastApplied() *model.Version {
	return infos.ctx.lastApplied
}

// Current returns the migration of the highest ranked history row
// which is neither synthetic (like the baseline marker) nor failed nor
// deleted afterwards. It returns nil if no such row exists.
func (infos *Infos) Current() *model.MigrationInfo {
	var current *model.MigrationInfo
	for _, mi := range infos.infos {
		am := mi.Applied
		if am == nil || am.Type.IsSynthetic() || !am.Success ||
			mi.State == model.StateDeleted {
			continue
		}
		if current == nil || am.InstalledRank > current.Applied.InstalledRank {
			current = mi
		}
	}
	return current
}

// Pending returns the migrations which are waiting to be applied.
func (infos *Infos) Pending() []*model.MigrationInfo {
	return infos.withState(model.StatePending)
}

// Applied returns the migrations which have a history row.
func (infos *Infos) Applied() []*model.MigrationInfo {
	return infos.filter(func(mi *model.MigrationInfo) bool {
		return mi.State.IsApplied()
	})
}

// Resolved returns the migrations which are available.
func (infos *Infos) Resolved() []*model.MigrationInfo {
	return infos.filter(func(mi *model.MigrationInfo) bool {
		return mi.State.IsResolved()
	})
}

// Failed returns the migrations whose last execution has failed.
func (infos *Infos) Failed() []*model.MigrationInfo {
	return infos.filter(func(mi *model.MigrationInfo) bool {
		return mi.State.IsFailed()
	})
}

// Future returns the applied migrations which are newer than all of
// the available migrations.
func (infos *Infos) Future() []*model.MigrationInfo {
	return infos.withState(
		model.StateFutureSuccess, model.StateFutureFailed,
	)
}

// OutOfOrder returns the migrations which were applied after a newer
// migration.
func (infos *Infos) OutOfOrder() []*model.MigrationInfo {
	return infos.withState(model.StateOutOfOrder)
}

func (infos *Infos) withState(
	states ...model.MigrationState,
) []*model.MigrationInfo {
	return infos.filter(func(mi *model.MigrationInfo) bool {
		for _, s := range states {
			if mi.State == s {
				return true
			}
		}
		return false
	})
}

func (infos *Infos) filter(
	keep func(*model.MigrationInfo) bool,
) []*model.MigrationInfo {
	var mis []*model.MigrationInfo
	for _, mi := range infos.infos {
		if keep(mi) {
			mis = append(mis, mi)
		}
	}
	return mis
}

// Validate checks all migrations and returns their validation errors,
// or nil if the available migrations agree with the schema history.
func (infos *Infos) Validate() cerr.ValidationErrors {
	var ves cerr.ValidationErrors
	for _, mi := range infos.infos {
		if ve := infos.validate(mi); ve != nil {
			ves = append(ves, ve)
		}
	}
	return ves
}

func (infos *Infos) validate(mi *model.MigrationInfo) *cerr.ValidationError {
	cfg := infos.ctx.cfg
	s := mi.State
	if s == model.StateAboveTarget || s == model.StateDeleted {
		return nil
	}
	if s.IsFailed() && (!cfg.IgnoreFuture || s != model.StateFutureFailed) {
		if mi.Version() == nil {
			return newError(cerr.FailedRepeatable, mi,
				"detected failed repeatable migration: %s; please "+
					"remove any half-completed changes then run repair "+
					"to fix the schema history", mi.Description(),
			)
		}
		return newError(cerr.FailedVersioned, mi,
			"detected failed migration to version %s (%s); please "+
				"remove any half-completed changes then run repair to "+
				"fix the schema history", mi.Version(), mi.Description(),
		)
	}
	am, rm := mi.Applied, mi.Resolved
	isMissing := s == model.StateMissingSuccess ||
		s == model.StateMissingFailed
	isFuture := s == model.StateFutureSuccess ||
		s == model.StateFutureFailed
	if rm == nil && !am.Type.IsSynthetic() &&
		s != model.StateSuperseded &&
		(!cfg.IgnoreMissing || !isMissing) &&
		(!cfg.IgnoreFuture || !isFuture) {
		return newError(cerr.AppliedNotResolved, mi,
			"detected applied migration not resolved locally: %s; "+
				"if it was removed intentionally, run repair to mark "+
				"the migration as deleted", identity(mi),
		)
	}
	if s == model.StateIgnored && !cfg.IgnoreIgnored {
		if len(cfg.CherryPick) > 0 &&
			!model.MatchesAny(cfg.CherryPick, mi.Version(), mi.Description()) {
			return nil
		}
		return newError(cerr.ResolvedNotApplied, mi,
			"detected resolved migration not applied to database: %s; "+
				"either ignore the ignored migrations or allow the "+
				"out of order migrations", identity(mi),
		)
	}
	if s == model.StatePending && !cfg.IgnorePending {
		return newError(cerr.ResolvedNotApplied, mi,
			"detected resolved migration not applied to database: %s; "+
				"either run migrate or ignore the pending migrations",
			identity(mi),
		)
	}
	if s == model.StateOutdated && !cfg.IgnorePending {
		return newError(cerr.OutdatedRepeatable, mi,
			"detected outdated resolved repeatable migration that "+
				"should be re-applied to database: %s; run migrate "+
				"to execute this migration", mi.Description(),
		)
	}
	if rm == nil || am == nil || am.Type == model.TypeDelete {
		return nil
	}
	if v := mi.Version(); v != nil && !v.IsNewerThan(infos.ctx.baseline) {
		return nil
	}
	if rm.Type != am.Type {
		return cerr.Mismatch(cerr.TypeMismatch, mi, "type", am.Type, rm.Type)
	}
	if rm.Version != nil || (cfg.IgnorePending &&
		s != model.StateOutdated && s != model.StateSuperseded) {
		if !rm.ChecksumMatches(am.Checksum) {
			return cerr.Mismatch(cerr.ChecksumMismatch, mi, "checksum",
				checksumOf(am.Checksum), checksumOf(rm.Checksum),
			)
		}
	}
	if !model.DescriptionMatches(am.Description, rm.Description) {
		return cerr.Mismatch(cerr.DescriptionMismatch, mi, "description",
			am.Description, rm.Description,
		)
	}
	return nil
}

func newError(
	code cerr.ValidationCode, mi *model.MigrationInfo,
	format string, args ...any,
) *cerr.ValidationError {
	return &cerr.ValidationError{
		Code:        code,
		Version:     mi.Version(),
		Description: mi.Description(),
		Message:     fmt.Sprintf(format, args...),
	}
}

func identity(mi *model.MigrationInfo) string {
	if v := mi.Version(); v != nil {
		return v.String()
	}
	return mi.Description()
}

func checksumOf(c *int32) any {
	if c == nil {
		return nil
	}
	return *c
}

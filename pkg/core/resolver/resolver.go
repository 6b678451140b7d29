// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package resolver pairs the available migrations with the rows of the
// schema history and computes the state of each migration.
//
// Resolution is pure: the Resolve function reads its arguments and
// returns a new Infos value, so calling it twice with the same inputs
// yields the same states. The Infos value may be queried for pending,
// failed, or future migrations and can be validated in order to find
// the disagreements between the available and applied migrations.
package resolver

import (
	"fmt"
	"slices"
	"strings"

	"github.com/momeni/sqlmig/pkg/core/model"
)

// Config contains the settings which affect the computed states and
// the validation results.
type Config struct {
	// Target is the highest version which should be considered for
	// the migration. Nil means LatestVersion. CurrentVersion is taken
	// as the last applied version and NextVersion as the version of
	// the first pending migration.
	Target *model.Version

	// OutOfOrder allows the pending migrations with a version less
	// than the last applied version to be applied.
	OutOfOrder bool

	// CherryPick restricts the migrations which may be applied. An
	// empty list allows all migrations.
	CherryPick []model.MigrationPattern

	// FailOnMissingTarget rejects a regular Target version which does
	// not belong to any available or applied migration.
	FailOnMissingTarget bool

	// These flags turn off the validation errors of pending, ignored,
	// missing, and future migrations respectively.
	IgnorePending bool
	IgnoreIgnored bool
	IgnoreMissing bool
	IgnoreFuture  bool
}

// Infos is the outcome of a resolution. Its entries are sorted by the
// installed rank of their applied rows, followed by pending entries in
// the version order (versioned before repeatable ones).
type Infos struct {
	infos []*model.MigrationInfo
	ctx   resolution
}

// resolution keeps the aggregated facts which are needed for the
// computation of states.
type resolution struct {
	cfg          Config
	target       *model.Version
	lastResolved *model.Version
	lastApplied  *model.Version
	baseline     *model.Version

	// latestRuns maps each repeatable migration description to the
	// installed rank of its latest (non-deleted) run.
	latestRuns map[string]int
}

// entry is a MigrationInfo under construction.
type entry struct {
	info       *model.MigrationInfo
	deleted    bool
	outOfOrder bool
	skipped    bool // not chosen by the cherry-pick patterns
}

// Resolve pairs the resolved migrations with the applied ones, which
// must be sorted by their installed ranks, and computes their states.
// It fails only if the schema history is corrupted, or if a missing
// target version is rejected as asked by cfg.
func Resolve(
	resolved []model.ResolvedMigration,
	applied []model.AppliedMigration,
	cfg Config,
) (*Infos, error) {
	rc := resolution{
		cfg:          cfg,
		target:       cfg.Target,
		lastResolved: model.EmptyVersion,
		lastApplied:  model.EmptyVersion,
		baseline:     model.EmptyVersion,
		latestRuns:   make(map[string]int),
	}
	if rc.target == nil {
		rc.target = model.LatestVersion
	}

	versioned := make(map[versionKey]*model.ResolvedMigration)
	repeatable := make(map[string]*model.ResolvedMigration)
	var pendingVersioned []*model.ResolvedMigration
	var pendingRepeatable []*model.ResolvedMigration
	for i := range resolved {
		rm := &resolved[i]
		if rm.Version == nil {
			if _, dup := repeatable[rm.Description]; !dup {
				pendingRepeatable = append(pendingRepeatable, rm)
			}
			repeatable[rm.Description] = rm
			continue
		}
		if rm.Version.Compare(rc.lastResolved) > 0 {
			rc.lastResolved = rm.Version
		}
		k := keyOf(rm.Version, rm.Type)
		if _, dup := versioned[k]; !dup {
			pendingVersioned = append(pendingVersioned, rm)
		}
		versioned[k] = rm
	}

	var appliedVersioned, appliedRepeatable []*entry
	for i := range applied {
		am := &applied[i]
		e := &entry{info: &model.MigrationInfo{Applied: am}}
		if am.Version == nil {
			appliedRepeatable = append(appliedRepeatable, e)
			if am.Type == model.TypeDelete && am.Success {
				markRepeatableDeleted(am.Description, appliedRepeatable)
			}
			continue
		}
		if am.Type.IsBaseline() && am.Version.IsNewerThan(rc.baseline) {
			rc.baseline = am.Version
		}
		if am.Type == model.TypeDelete && am.Success {
			if err := markDeleted(am.Version, appliedVersioned); err != nil {
				return nil, err
			}
		}
		appliedVersioned = append(appliedVersioned, e)
	}

	for _, e := range appliedVersioned {
		am := e.info.Applied
		if am.Version.Compare(rc.lastApplied) > 0 {
			if am.Type != model.TypeDelete && !e.deleted {
				rc.lastApplied = am.Version
			}
		} else {
			e.outOfOrder = true
		}
	}
	if rc.target == model.CurrentVersion {
		rc.target = rc.lastApplied
	}

	var entries []*entry
	for _, e := range appliedVersioned {
		am := e.info.Applied
		rm := versioned[keyOf(am.Version, am.Type)]
		e.info.Resolved = rm
		if rm != nil && !e.deleted && am.Type != model.TypeDelete {
			pendingVersioned = slices.DeleteFunc(pendingVersioned,
				func(p *model.ResolvedMigration) bool { return p == rm },
			)
		}
		entries = append(entries, e)
	}
	for _, rm := range pendingVersioned {
		entries = append(entries, rc.pendingEntry(rm))
	}
	if err := rc.checkTarget(entries); err != nil {
		return nil, err
	}

	for _, e := range appliedRepeatable {
		am := e.info.Applied
		if e.deleted && am.Type == model.TypeDelete {
			continue
		}
		if r, ok := rc.latestRuns[am.Description]; !ok || am.InstalledRank > r {
			rc.latestRuns[am.Description] = am.InstalledRank
		}
	}
	for _, e := range appliedRepeatable {
		am := e.info.Applied
		rm := repeatable[am.Description]
		e.info.Resolved = rm
		if !e.deleted && am.Type != model.TypeDelete && rm != nil &&
			am.InstalledRank == rc.latestRuns[am.Description] &&
			rm.ChecksumMatches(am.Checksum) {
			pendingRepeatable = slices.DeleteFunc(pendingRepeatable,
				func(p *model.ResolvedMigration) bool { return p == rm },
			)
		}
		entries = append(entries, e)
	}
	slices.SortStableFunc(pendingRepeatable,
		func(a, b *model.ResolvedMigration) int {
			return strings.Compare(a.Description, b.Description)
		},
	)
	for _, rm := range pendingRepeatable {
		entries = append(entries, rc.pendingEntry(rm))
	}

	infos := &Infos{ctx: rc}
	for _, e := range entries {
		e.info.State = rc.state(e)
		e.info.OutOfOrder = e.outOfOrder
		infos.infos = append(infos.infos, e.info)
	}
	slices.SortStableFunc(infos.infos, compareInfos)
	if rc.target == model.NextVersion {
		infos.ctx.target = nil
		if p := infos.Pending(); len(p) > 0 {
			infos.ctx.target = p[0].Version()
		}
	}
	return infos, nil
}

func (rc *resolution) pendingEntry(rm *model.ResolvedMigration) *entry {
	return &entry{
		info: &model.MigrationInfo{Resolved: rm},
		skipped: len(rc.cfg.CherryPick) > 0 && !model.MatchesAny(
			rc.cfg.CherryPick, rm.Version, rm.Description,
		),
	}
}

func (rc *resolution) checkTarget(entries []*entry) error {
	t := rc.cfg.Target
	if !rc.cfg.FailOnMissingTarget || t == nil || t.IsSentinel() {
		return nil
	}
	for _, e := range entries {
		if t.Equal(e.info.Version()) {
			return nil
		}
	}
	return fmt.Errorf(
		"no migration with the target version %s could be found", t,
	)
}

// state computes the state of an entry.
func (rc *resolution) state(e *entry) model.MigrationState {
	if e.deleted {
		return model.StateDeleted
	}
	am, rm := e.info.Applied, e.info.Resolved
	if am == nil {
		if e.skipped {
			return model.StateIgnored
		}
		v := rm.Version
		if v == nil {
			return model.StatePending
		}
		switch {
		case v.Compare(rc.baseline) <= 0:
			return model.StateBelowBaseline
		case rc.target != nil && rc.target != model.NextVersion &&
			v.Compare(rc.target) > 0:
			return model.StateAboveTarget
		case v.Compare(rc.lastApplied) < 0 && !rc.cfg.OutOfOrder:
			return model.StateIgnored
		}
		return model.StatePending
	}

	switch am.Type {
	case model.TypeDelete:
		return model.StateSuccess
	case model.TypeBaseline:
		return model.StateBaseline
	}
	if rm == nil && rc.isLatestRun(am) {
		switch {
		case am.Type == model.TypeSchema:
			return model.StateSuccess
		case am.Version == nil || am.Version.Compare(rc.lastResolved) < 0:
			if am.Success {
				return model.StateMissingSuccess
			}
			return model.StateMissingFailed
		case am.Success:
			return model.StateFutureSuccess
		default:
			return model.StateFutureFailed
		}
	}
	if !am.Success {
		return model.StateFailed
	}
	if am.Version == nil {
		if am.InstalledRank == rc.latestRuns[am.Description] {
			if rm != nil && rm.ChecksumMatches(am.Checksum) {
				return model.StateSuccess
			}
			return model.StateOutdated
		}
		return model.StateSuperseded
	}
	if e.outOfOrder {
		return model.StateOutOfOrder
	}
	return model.StateSuccess
}

// isLatestRun reports whether am is a versioned row or the latest run
// of a repeatable migration.
func (rc *resolution) isLatestRun(am *model.AppliedMigration) bool {
	if am.Version != nil {
		return true
	}
	r, ok := rc.latestRuns[am.Description]
	return !ok || am.InstalledRank == r
}

// markDeleted marks the latest row with version v as deleted.
func markDeleted(v *model.Version, entries []*entry) error {
	for i := len(entries) - 1; i >= 0; i-- {
		am := entries[i].info.Applied
		if am.Type.IsSynthetic() || !v.Equal(am.Version) {
			continue
		}
		if entries[i].deleted {
			return fmt.Errorf(
				"corrupted schema history: "+
					"multiple delete entries for version %s", v,
			)
		}
		entries[i].deleted = true
		return nil
	}
	return nil
}

// markRepeatableDeleted marks the latest run of the given repeatable
// migration as deleted.
func markRepeatableDeleted(description string, entries []*entry) {
	for i := len(entries) - 1; i >= 0; i-- {
		am := entries[i].info.Applied
		if !am.Type.IsSynthetic() && am.Description == description {
			entries[i].deleted = true
			return
		}
	}
}

// compareInfos orders the applied entries by their installed ranks and
// places them before the pending ones, which are ordered by version.
func compareInfos(a, b *model.MigrationInfo) int {
	ra, aok := a.InstalledRank()
	rb, bok := b.InstalledRank()
	switch {
	case aok && bok:
		return ra - rb
	case a.State == model.StateBelowBaseline && b.State.IsApplied():
		return -1
	case a.State.IsApplied() && b.State == model.StateBelowBaseline:
		return 1
	case aok:
		return -1
	case bok:
		return 1
	}
	if c := a.Version().Compare(b.Version()); c != 0 ||
		a.Version() != nil {
		return c
	}
	return strings.Compare(a.Description(), b.Description())
}

type versionKey struct {
	version string
	typ     model.MigrationType
}

// keyOf returns a map key for a version and type, so that equal
// versions like 1.0 and 1 share their keys.
func keyOf(v *model.Version, t model.MigrationType) versionKey {
	s := v.String()
	for strings.HasSuffix(s, ".0") {
		s = strings.TrimSuffix(s, ".0")
	}
	return versionKey{version: s, typ: t}
}

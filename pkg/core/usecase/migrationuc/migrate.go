// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package migrationuc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/momeni/sqlmig/pkg/core/cerr"
	"github.com/momeni/sqlmig/pkg/core/log"
	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/parser"
	"github.com/momeni/sqlmig/pkg/core/repo"
	"github.com/momeni/sqlmig/pkg/core/resolver"
)

// runState is a state of the Migrate state machine.
type runState string

// These constants are the states of a Migrate run.
const (
	stateInit           runState = "INIT"
	stateLocked         runState = "LOCKED"
	stateEnsuringLedger runState = "ENSURING_LEDGER"
	stateResolving      runState = "RESOLVING"
	stateApplying       runState = "APPLYING"
	stateDone           runState = "DONE"
	stateFailed         runState = "FAILED"
)

// run keeps the state of one Migrate call.
type run struct {
	*UseCase
	id    string
	state runState
	c     repo.Conn
	l     repo.Ledger
	res   *Result

	resolved []model.ResolvedMigration

	// parsed keeps the pending migrations by their script names after
	// they are parsed, so they are parsed once per run.
	parsed map[string]prepared

	// failed is the failed migration which is recorded after its lock
	// is released.
	failed *MigrationResult

	// effectiveTarget is nil until the sentinel targets are resolved
	// by the first resolution.
	effectiveTarget *model.Version
}

// Migrate applies the pending migrations while the schema history is
// locked. The migrations are applied one by one (or all together in
// the group mode) and the history is resolved again after each step.
// All pending migrations are parsed before the first one is executed.
// The run stops on the first failure and returns a *cerr.ParseError
// or a *cerr.ExecutionError; a failed migration is recorded with its
// success flag unset and prevents the next runs until it is repaired.
// Result is returned even if err is not nil, so the applied migrations
// may be reported.
func (uc *UseCase) Migrate(ctx context.Context) (*Result, error) {
	r := &run{
		UseCase: uc,
		id:      uuid.NewString(),
		parsed:  make(map[string]prepared),
	}
	r.res = &Result{RunID: r.id}
	start := time.Now()
	r.transition(ctx, stateInit)
	err := uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		r.c, r.l = c, uc.history.Conn(c)
		return r.migrate(ctx)
	})
	r.res.summarize()
	if err != nil {
		r.transition(
			ctx, stateFailed,
			slog.Int("applied", r.res.Applied),
			log.Err("err", err), log.Elapsed(start),
		)
		return r.res, err
	}
	r.res.Success = true
	r.transition(
		ctx, stateDone,
		slog.Int("applied", r.res.Applied),
		slog.String("version", r.res.FinalVersion.String()),
		log.Elapsed(start),
	)
	return r.res, nil
}

func (r *run) transition(ctx context.Context, s runState, attrs ...slog.Attr) {
	r.state = s
	attrs = append(
		[]slog.Attr{slog.String("run", r.id), slog.String("state", string(s))},
		attrs...,
	)
	log.Info(ctx, "migration run state", attrs...)
}

func (r *run) migrate(ctx context.Context) error {
	resolved, err := r.source.Migrations(ctx)
	if err != nil {
		return fmt.Errorf("listing available migrations: %w", err)
	}
	r.resolved = resolved
	if !r.skipValidateOnMigrate {
		if err := r.validate(ctx); err != nil {
			return err
		}
	}
	r.transition(ctx, stateEnsuringLedger)
	if err := r.ensureLedger(ctx); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("migration is cancelled: %w", err)
		}
		done := false
		err := r.l.Lock(ctx, func(ctx context.Context, q repo.Queryer) (err error) {
			r.transition(ctx, stateLocked)
			done, err = r.step(ctx, q)
			return err
		})
		if r.failed != nil {
			err = errors.Join(err, r.recordFailure(ctx))
		}
		if err != nil || done {
			return err
		}
	}
}

// validate checks the applied migrations before migrating. Pending
// migrations are not reported since they are going to be applied.
func (r *run) validate(ctx context.Context) error {
	ok, err := r.l.Exists(ctx)
	if err != nil || !ok {
		return err
	}
	applied, err := r.l.AllApplied(ctx)
	if err != nil {
		return err
	}
	cfg := r.resolverConfig(r.target)
	cfg.IgnorePending = true
	infos, err := resolver.Resolve(r.resolved, applied, cfg)
	if err != nil {
		return fmt.Errorf("resolving migrations: %w", err)
	}
	ves := infos.Validate()
	if len(ves) == 0 {
		return nil
	}
	if !r.cleanOnValidationError {
		return ves
	}
	log.Warn(
		ctx, "validation failed, cleaning the schemas",
		slog.String("run", r.id), log.Err("err", ves),
	)
	if err := r.clean(ctx, r.c, r.l); err != nil {
		return errors.Join(ves, err)
	}
	r.res.Cleaned = true
	return nil
}

// ensureLedger creates the managed schemas and the schema history table
// if the table does not exist. The markers are added only if the table
// is still empty while it is locked, since other processes may have
// created the same table concurrently.
func (r *run) ensureLedger(ctx context.Context) error {
	ok, err := r.l.Exists(ctx)
	if err != nil || ok {
		return err
	}
	var created []string
	if r.createSchemas {
		for _, s := range r.schemas {
			q := r.d.CreateSchemaSQL(s)
			if q == "" {
				continue
			}
			if _, err := r.c.Exec(ctx, q); err != nil {
				return fmt.Errorf("creating schema %q: %w", s, err)
			}
			created = append(created, s)
		}
	}
	if err := r.l.Create(ctx, false); err != nil {
		return err
	}
	if len(created) == 0 && !r.baselineOnMigrate {
		return nil
	}
	return r.l.Lock(ctx, func(ctx context.Context, _ repo.Queryer) error {
		all, err := r.l.AllApplied(ctx)
		if err != nil || len(all) > 0 {
			return err
		}
		if len(created) > 0 {
			if err := r.l.AddSchemasMarker(ctx, created); err != nil {
				return err
			}
		}
		if r.baselineOnMigrate {
			return r.l.AddBaselineMarker(
				ctx, r.baselineVersion, r.baselineDescription,
			)
		}
		return nil
	})
}

func (uc *UseCase) resolverConfig(target *model.Version) resolver.Config {
	return resolver.Config{
		Target:              target,
		OutOfOrder:          uc.outOfOrder,
		CherryPick:          uc.cherryPick,
		FailOnMissingTarget: uc.failOnMissingTarget,
		IgnorePending:       uc.ignore.pending,
		IgnoreIgnored:       uc.ignore.ignored,
		IgnoreMissing:       uc.ignore.missing,
		IgnoreFuture:        uc.ignore.future,
	}
}

// step resolves the migrations and applies the next pending one (or
// all of them in the group mode). It returns true if nothing is left.
func (r *run) step(ctx context.Context, q repo.Queryer) (bool, error) {
	r.transition(ctx, stateResolving)
	applied, err := r.l.AllApplied(ctx)
	if err != nil {
		return false, err
	}
	if r.effectiveTarget == nil {
		infos, err := resolver.Resolve(
			r.resolved, applied, r.resolverConfig(r.target),
		)
		if err != nil {
			return false, fmt.Errorf("resolving migrations: %w", err)
		}
		r.effectiveTarget = infos.Target()
		if r.effectiveTarget == nil {
			r.effectiveTarget = model.LatestVersion
		}
		if v := infos.LastApplied(); v != model.EmptyVersion {
			r.res.InitialVersion = v
		}
		r.res.TargetVersion = r.effectiveTarget
	}
	infos, err := resolver.Resolve(
		r.resolved, applied, r.resolverConfig(r.effectiveTarget),
	)
	if err != nil {
		return false, fmt.Errorf("resolving migrations: %w", err)
	}
	if err := r.checkFailed(infos); err != nil {
		return false, err
	}
	pending := infos.Pending()
	if len(pending) == 0 {
		return true, nil
	}
	// a malformed script must fail the run before anything is executed
	if _, err := r.prepareAll(pending); err != nil {
		return false, err
	}
	if !r.group {
		pending = pending[:1]
	}
	r.transition(ctx, stateApplying, slog.Int("migrations", len(pending)))
	return false, r.apply(ctx, q, pending)
}

// checkFailed refuses to migrate a schema with a failed migration,
// unless it is a single ignored future migration.
func (r *run) checkFailed(infos *resolver.Infos) error {
	failed := infos.Failed()
	if len(failed) == 0 {
		return nil
	}
	if len(failed) == 1 && r.ignore.future &&
		failed[0].State == model.StateFutureFailed {
		return nil
	}
	mi := failed[0]
	ve := &cerr.ValidationError{
		Code:        cerr.FailedVersioned,
		Version:     mi.Version(),
		Description: mi.Description(),
		Message: fmt.Sprintf(
			"schema history contains a failed migration to version %s; "+
				"run repair after fixing the schema", mi.Version(),
		),
	}
	if mi.Version() == nil {
		ve.Code = cerr.FailedRepeatable
		ve.Message = fmt.Sprintf(
			"schema history contains a failed repeatable migration %q; "+
				"run repair after fixing the schema", mi.Description(),
		)
	}
	return ve
}

// prepared is a parsed migration which is ready to be executed.
type prepared struct {
	mi    *model.MigrationInfo
	stmts []parser.Statement
	tx    bool
}

func (r *run) prepare(mi *model.MigrationInfo) (prepared, error) {
	rm := mi.Resolved
	p := prepared{mi: mi}
	content, err := rm.Content()
	if err != nil {
		return p, fmt.Errorf("loading %s: %w", rm.Script, err)
	}
	p.stmts, err = parser.Parse(r.d, rm.Script, content)
	if err != nil {
		return p, err
	}
	tx, ntx := 0, 0
	for _, s := range p.stmts {
		if s.Parsed().CanExecuteInTransaction {
			tx++
		} else {
			ntx++
		}
	}
	if tx > 0 && ntx > 0 && !r.mixed {
		return p, cerr.Configuration("mixed", fmt.Errorf(
			"detected both transactional and non-transactional "+
				"statements within %s", rm.Script,
		))
	}
	p.tx = ntx == 0
	return p, nil
}

// prepareAll parses the mis migrations which were not parsed in this
// run yet, and returns all of them in the mis order.
func (r *run) prepareAll(mis []*model.MigrationInfo) ([]prepared, error) {
	preps := make([]prepared, 0, len(mis))
	for _, mi := range mis {
		p, ok := r.parsed[mi.Script()]
		if !ok {
			var err error
			if p, err = r.prepare(mi); err != nil {
				return nil, err
			}
			r.parsed[mi.Script()] = p
		}
		p.mi = mi
		preps = append(preps, p)
	}
	return preps, nil
}

// apply executes the mis migrations. All of them are parsed before
// executing the first statement, so a malformed script is reported
// without changing the database.
func (r *run) apply(ctx context.Context, q repo.Queryer, mis []*model.MigrationInfo) error {
	preps, err := r.prepareAll(mis)
	if err != nil {
		return err
	}
	tx := 0
	for _, p := range preps {
		if p.tx {
			tx++
		}
	}
	if len(preps) > 1 {
		switch {
		case tx == len(preps):
			return r.applyInTx(ctx, q, preps)
		case tx > 0 && !r.mixed:
			return cerr.Configuration("mixed", errors.New(
				"detected both transactional and non-transactional "+
					"migrations within the group",
			))
		}
	}
	for _, p := range preps {
		var err error
		if p.tx {
			err = r.applyInTx(ctx, q, []prepared{p})
		} else {
			err = r.applyDirectly(ctx, q, p)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// applyInTx executes preps in one transaction and records them after
// the commit. If a migration fails, the transaction is rolled back and
// the failed migration is kept for recordFailure.
func (r *run) applyInTx(ctx context.Context, q repo.Queryer, preps []prepared) error {
	done := make([]MigrationResult, 0, len(preps))
	err := repo.InTx(ctx, q, func(ctx context.Context, tx repo.Tx) error {
		for _, p := range preps {
			mr, err := r.execute(ctx, tx, p)
			if err != nil {
				r.failed = &mr
				return err
			}
			done = append(done, mr)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, mr := range done {
		if err := r.record(ctx, mr); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) applyDirectly(ctx context.Context, q repo.Queryer, p prepared) error {
	mr, err := r.execute(ctx, q, p)
	if err != nil {
		r.failed = &mr
		return err
	}
	return r.record(ctx, mr)
}

// recordFailure records the failed migration in a new lock section.
// The lock of the failed section may be held by a transaction which
// is rolled back together with the failed migration.
func (r *run) recordFailure(ctx context.Context) error {
	mr := *r.failed
	r.failed = nil
	return r.l.Lock(ctx, func(ctx context.Context, _ repo.Queryer) error {
		return r.record(ctx, mr)
	})
}

// execute runs the statements of p in order and stops on the first
// failed statement.
func (r *run) execute(
	ctx context.Context, q repo.Queryer, p prepared,
) (MigrationResult, error) {
	rm := p.mi.Resolved
	mr := MigrationResult{
		Version:     rm.Version,
		Description: rm.Description,
		Type:        rm.Type,
		Script:      rm.Script,
		Checksum:    rm.Checksum,
	}
	log.Info(
		ctx, "applying migration",
		slog.String("run", r.id),
		log.Version("version", rm.Version),
		slog.String("description", rm.Description),
		slog.Bool("transactional", p.tx),
	)
	start := time.Now()
	for _, s := range p.stmts {
		sr := s.Execute(ctx, q)
		mr.Statements = append(mr.Statements, sr)
		if sr.Failed() {
			mr.ExecutionTime = time.Since(start)
			return mr, &cerr.ExecutionError{
				Script:  rm.Script,
				Version: rm.Version,
				Pos:     sr.Statement.Pos,
				SQL:     sr.Statement.SQL,
				Detail:  r.d.ErrorDetail(sr.Err),
				Err:     sr.Err,
			}
		}
	}
	mr.ExecutionTime = time.Since(start)
	mr.Success = true
	return mr, nil
}

// record adds mr to the schema history and to the run result.
func (r *run) record(ctx context.Context, mr MigrationResult) error {
	r.res.Migrations = append(r.res.Migrations, mr)
	err := r.l.AddApplied(ctx, &model.AppliedMigration{
		Version:       mr.Version,
		Description:   mr.Description,
		Type:          mr.Type,
		Script:        mr.Script,
		Checksum:      mr.Checksum,
		ExecutionTime: mr.ExecutionTime,
		Success:       mr.Success,
	})
	if err != nil {
		return fmt.Errorf("recording %s: %w", mr.Script, err)
	}
	if !mr.Success {
		log.Error(
			ctx, "migration failed",
			slog.String("run", r.id),
			log.Version("version", mr.Version),
			log.Script(mr.Script),
		)
		return nil
	}
	log.Info(
		ctx, "migration is applied",
		slog.String("run", r.id),
		log.Version("version", mr.Version),
		log.Script(mr.Script),
		slog.Duration("took", mr.ExecutionTime.Round(time.Millisecond)),
	)
	return nil
}

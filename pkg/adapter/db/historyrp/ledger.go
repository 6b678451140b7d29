// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package historyrp

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/momeni/sqlmig/pkg/core/cerr"
	"github.com/momeni/sqlmig/pkg/core/log"
	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/repo"
)

// SchemasDescription is the description of the rows which record the
// schemas that were created by the migration tool.
const SchemasDescription = "<< Schema Creation >>"

type ledger struct {
	*Repo
	c repo.Conn

	// q is the c connection, or the queryer which was passed to the
	// action of the lock while it is held
	q     repo.Queryer
	depth int
	cache []model.AppliedMigration
}

func (l *ledger) Table() string {
	return l.d.Quote(l.schema, l.table)
}

func (l *ledger) Exists(ctx context.Context) (bool, error) {
	return l.exists(ctx, l.q)
}

func (l *ledger) exists(ctx context.Context, q repo.Queryer) (bool, error) {
	query, args := l.d.LedgerExistsSQL(l.schema, l.table)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("checking %s existence: %w", l.Table(), err)
	}
	defer rows.Close()
	found := rows.Next()
	if err = rows.Err(); err != nil {
		return false, fmt.Errorf("checking %s existence: %w", l.Table(), err)
	}
	return found, nil
}

func (l *ledger) Create(ctx context.Context, withBaseline bool) error {
	for attempt := 1; ; attempt++ {
		created, err := l.tryCreate(ctx, withBaseline)
		if err == nil {
			if created {
				log.Info(
					ctx, "created schema history table",
					slog.String("table", l.Table()),
				)
			}
			return nil
		}
		if attempt >= l.attempts {
			return &cerr.LockTimeoutError{
				Object: l.Table(), Attempts: attempt, Err: err,
			}
		}
		log.Warn(
			ctx, "schema history table creation failed, retrying",
			slog.String("table", l.Table()),
			slog.Int("attempt", attempt),
			log.Err("err", err),
		)
		select {
		case <-time.After(l.backoff):
		case <-ctx.Done():
			return fmt.Errorf("creating %s: %w", l.Table(), ctx.Err())
		}
	}
}

// tryCreate creates the table, unless it exists or it is created by
// another process while waiting for the lock.
func (l *ledger) tryCreate(ctx context.Context, withBaseline bool) (bool, error) {
	if ok, err := l.Exists(ctx); err != nil || ok {
		return false, err
	}
	created := false
	err := l.Lock(ctx, func(ctx context.Context, q repo.Queryer) error {
		ok, err := l.exists(ctx, q)
		if err != nil || ok {
			return err
		}
		create := func(ctx context.Context, q repo.Queryer) error {
			for _, s := range l.d.CreateLedgerSQL(l.schema, l.table) {
				if _, err := q.Exec(ctx, s); err != nil {
					return fmt.Errorf("creating %s: %w", l.Table(), err)
				}
			}
			if withBaseline {
				return l.insert(ctx, q, &model.AppliedMigration{
					Version:     l.baselineVersion,
					Description: l.baselineDescription,
					Type:        model.TypeBaseline,
					Script:      l.baselineDescription,
					Success:     true,
				})
			}
			return nil
		}
		if l.d.SupportsDDLTransactions() {
			err = repo.InTx(ctx, q, func(ctx context.Context, tx repo.Tx) error {
				return create(ctx, tx)
			})
		} else {
			err = create(ctx, q)
		}
		created = err == nil
		return err
	})
	l.ClearCache()
	return created, err
}

// Lock runs action while the locker holds the schema history table
// lock. The nested calls run action directly with the same queryer.
func (l *ledger) Lock(ctx context.Context, action repo.LockedHandler) error {
	if l.depth > 0 {
		return action(ctx, l.q)
	}
	return l.locker.Lock(ctx, l.c, l.Table(), func(
		ctx context.Context, q repo.Queryer,
	) error {
		prev := l.q
		l.q = q
		l.depth++
		defer func() {
			l.depth--
			l.q = prev
		}()
		return action(ctx, q)
	})
}

// AllApplied returns the cached rows after fetching the rows which
// were added since the last call.
func (l *ledger) AllApplied(ctx context.Context) ([]model.AppliedMigration, error) {
	if len(l.cache) == 0 {
		ok, err := l.Exists(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}
	last := -1
	if n := len(l.cache); n > 0 {
		last = l.cache[n-1].InstalledRank
	}
	rows, err := l.q.Query(ctx, l.d.SelectLedgerSQL(l.Table()), last)
	if err != nil {
		return nil, fmt.Errorf("selecting from %s: %w", l.Table(), err)
	}
	defer rows.Close()
	for rows.Next() {
		am, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", l.Table(), err)
		}
		l.cache = append(l.cache, am)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", l.Table(), err)
	}
	return slices.Clone(l.cache), nil
}

func (l *ledger) HasApplied(ctx context.Context) (bool, error) {
	all, err := l.AllApplied(ctx)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(all, func(am model.AppliedMigration) bool {
		return !am.Type.IsSynthetic()
	}), nil
}

// AddApplied inserts am with the next installed rank, or with the zero
// rank if am is a schemas marker. The table is locked during the insert
// if the backend cannot roll back the schema changes, so the ranks of
// the concurrent inserts are not duplicated.
func (l *ledger) AddApplied(ctx context.Context, am *model.AppliedMigration) error {
	defer l.ClearCache()
	if !l.d.SupportsDDLTransactions() {
		return l.Lock(ctx, func(ctx context.Context, q repo.Queryer) error {
			return l.insert(ctx, q, am)
		})
	}
	return l.insert(ctx, l.q, am)
}

func (l *ledger) insert(
	ctx context.Context, q repo.Queryer, am *model.AppliedMigration,
) error {
	rank := 0
	if am.Type != model.TypeSchema {
		r, err := l.nextRank(ctx, q)
		if err != nil {
			return err
		}
		rank = r
	}
	var version, checksum any
	if am.Version != nil {
		version = am.Version.String()
	}
	if am.Checksum != nil {
		checksum = *am.Checksum
	}
	description := l.description(am.Description)
	script := model.AbbreviateScript(am.Script)
	_, err := q.Exec(
		ctx, l.d.InsertLedgerSQL(l.Table()),
		rank, version, description, string(am.Type), script, checksum,
		l.installedBy, am.ExecutionTime.Milliseconds(), am.Success,
	)
	if err != nil {
		return fmt.Errorf("inserting into %s: %w", l.Table(), err)
	}
	am.InstalledRank = rank
	am.InstalledBy = l.installedBy
	am.InstalledOn = time.Now()
	log.Debug(
		ctx, "recorded schema history row",
		slog.Int("rank", rank),
		log.Version("version", am.Version),
		slog.String("type", string(am.Type)),
		slog.Bool("success", am.Success),
	)
	return nil
}

func (l *ledger) description(d string) string {
	if d == "" && !l.d.SupportsEmptyDescription() {
		return model.NoDescription
	}
	return model.AbbreviateDescription(d)
}

func (l *ledger) nextRank(ctx context.Context, q repo.Queryer) (int, error) {
	rows, err := q.Query(
		ctx, "SELECT MAX(installed_rank) FROM "+l.Table(),
	)
	if err != nil {
		return 0, fmt.Errorf("selecting max rank: %w", err)
	}
	defer rows.Close()
	var rank sql.NullInt64
	if rows.Next() {
		if err = rows.Scan(&rank); err != nil {
			return 0, fmt.Errorf("scanning max rank: %w", err)
		}
	}
	if err = rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating max rank: %w", err)
	}
	return int(rank.Int64) + 1, nil
}

func (l *ledger) AddBaselineMarker(
	ctx context.Context, v *model.Version, description string,
) error {
	return l.AddApplied(ctx, &model.AppliedMigration{
		Version:     v,
		Description: description,
		Type:        model.TypeBaseline,
		Script:      description,
		Success:     true,
	})
}

func (l *ledger) AddSchemasMarker(ctx context.Context, schemas []string) error {
	quoted := make([]string, len(schemas))
	for i, s := range schemas {
		quoted[i] = l.d.Quote(s)
	}
	return l.AddApplied(ctx, &model.AppliedMigration{
		Description: SchemasDescription,
		Type:        model.TypeSchema,
		Script:      strings.Join(quoted, ","),
		Success:     true,
	})
}

func (l *ledger) BaselineMarker(
	ctx context.Context,
) (*model.AppliedMigration, error) {
	all, err := l.AllApplied(ctx)
	if err != nil {
		return nil, err
	}
	for _, am := range all {
		if am.Type.IsBaseline() {
			return &am, nil
		}
	}
	return nil, nil
}

// Update corrects the description, type, and checksum of the rank row.
// The synthetic types are kept, so a baseline marker stays a marker.
func (l *ledger) Update(
	ctx context.Context, rank int, description string,
	typ model.MigrationType, checksum *int32,
) error {
	all, err := l.AllApplied(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(all, func(am model.AppliedMigration) bool {
		return am.InstalledRank == rank
	})
	if i < 0 {
		return fmt.Errorf("no %s row with %d installed rank", l.Table(), rank)
	}
	if all[i].Type.IsSynthetic() {
		typ = all[i].Type
	}
	var cs any
	if checksum != nil {
		cs = *checksum
	}
	defer l.ClearCache()
	_, err = l.q.Exec(
		ctx, l.d.UpdateLedgerSQL(l.Table()),
		l.description(description), string(typ), cs, rank,
	)
	if err != nil {
		return fmt.Errorf("updating %s row %d: %w", l.Table(), rank, err)
	}
	return nil
}

// SoftDelete marks am as deleted by appending a DELETE row for it.
func (l *ledger) SoftDelete(ctx context.Context, am *model.AppliedMigration) error {
	return l.AddApplied(ctx, &model.AppliedMigration{
		Version:     am.Version,
		Description: am.Description,
		Type:        model.TypeDelete,
		Script:      am.Script,
		Checksum:    am.Checksum,
		Success:     true,
	})
}

func (l *ledger) RemoveFailed(
	ctx context.Context, filter []model.MigrationPattern,
) ([]model.AppliedMigration, error) {
	all, err := l.AllApplied(ctx)
	if err != nil {
		return nil, err
	}
	var failed []model.AppliedMigration
	for _, am := range all {
		if am.Success {
			continue
		}
		if len(filter) == 0 || model.MatchesAny(filter, am.Version, am.Description) {
			failed = append(failed, am)
		}
	}
	if len(failed) == 0 {
		return nil, nil
	}
	defer l.ClearCache()
	err = repo.InTx(ctx, l.q, func(ctx context.Context, tx repo.Tx) error {
		for _, am := range failed {
			_, err := tx.Exec(
				ctx, l.d.DeleteLedgerSQL(l.Table()), am.InstalledRank,
			)
			if err != nil {
				return fmt.Errorf(
					"deleting %s row %d: %w",
					l.Table(), am.InstalledRank, err,
				)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return failed, nil
}

func (l *ledger) ClearCache() {
	l.cache = nil
}

func (l *ledger) Drop(ctx context.Context) error {
	defer l.ClearCache()
	if _, err := l.q.Exec(ctx, l.d.DropLedgerSQL(l.Table())); err != nil {
		return fmt.Errorf("dropping %s: %w", l.Table(), err)
	}
	return nil
}

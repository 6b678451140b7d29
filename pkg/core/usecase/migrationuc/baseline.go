// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package migrationuc

import (
	"context"
	"fmt"

	"github.com/momeni/sqlmig/pkg/core/cerr"
	"github.com/momeni/sqlmig/pkg/core/log"
	"github.com/momeni/sqlmig/pkg/core/repo"
)

// Baseline marks the database as being at the baseline version, so
// the migrations up to that version are not applied. The schema
// history table is created if needed. Baselining a schema which has
// applied migrations or another baseline version is a conflict.
func (uc *UseCase) Baseline(ctx context.Context) error {
	return uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		l := uc.history.Conn(c)
		if err := l.Create(ctx, false); err != nil {
			return err
		}
		return l.Lock(ctx, func(ctx context.Context, _ repo.Queryer) error {
			return uc.baseline(ctx, l)
		})
	})
}

func (uc *UseCase) baseline(ctx context.Context, l repo.Ledger) error {
	b, err := l.BaselineMarker(ctx)
	if err != nil {
		return err
	}
	if b != nil {
		if b.Version.Equal(uc.baselineVersion) &&
			b.Description == uc.baselineDescription {
			log.Info(
				ctx, "schema is already baselined",
				log.Version("version", b.Version),
			)
			return nil
		}
		return cerr.Conflict(fmt.Errorf(
			"unable to baseline with version %s since the schema is "+
				"already baselined with version %s",
			uc.baselineVersion, b.Version,
		))
	}
	has, err := l.HasApplied(ctx)
	if err != nil {
		return err
	}
	if has {
		return cerr.Conflict(fmt.Errorf(
			"unable to baseline %s since it has applied migrations",
			l.Table(),
		))
	}
	if err := l.AddBaselineMarker(
		ctx, uc.baselineVersion, uc.baselineDescription,
	); err != nil {
		return err
	}
	log.Info(
		ctx, "schema is baselined",
		log.Version("version", uc.baselineVersion),
	)
	return nil
}

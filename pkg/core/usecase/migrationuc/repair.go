// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package migrationuc

import (
	"context"
	"log/slog"

	"github.com/momeni/sqlmig/pkg/core/log"
	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/repo"
)

// Repair fixes the schema history while it is locked. It removes the
// failed rows (of the cherry-picked migrations, or all of them), then
// realigns the checksums, descriptions, and types of the applied rows
// with their available migrations, and finally marks the applied rows
// which are not available anymore as deleted.
func (uc *UseCase) Repair(ctx context.Context) (res *RepairResult, err error) {
	res = &RepairResult{}
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		l := uc.history.Conn(c)
		ok, err := l.Exists(ctx)
		if err != nil || !ok {
			return err
		}
		return l.Lock(ctx, func(ctx context.Context, _ repo.Queryer) error {
			return uc.repair(ctx, l, res)
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info(
		ctx, "schema history is repaired",
		slog.Int("removed", len(res.RemovedFailed)),
		slog.Int("realigned", len(res.Realigned)),
		slog.Int("deleted", len(res.Deleted)),
	)
	return res, nil
}

func (uc *UseCase) repair(
	ctx context.Context, l repo.Ledger, res *RepairResult,
) (err error) {
	res.RemovedFailed, err = l.RemoveFailed(ctx, uc.cherryPick)
	if err != nil {
		return err
	}
	infos, err := uc.resolve(ctx, l, uc.resolverConfig(model.LatestVersion))
	if err != nil {
		return err
	}
	for _, mi := range infos.All() {
		am, rm := mi.Applied, mi.Resolved
		if am == nil || am.Type.IsSynthetic() || !am.Success {
			continue
		}
		if rm == nil {
			if mi.State == model.StateMissingSuccess ||
				mi.State == model.StateFutureSuccess {
				if err := l.SoftDelete(ctx, am); err != nil {
					return err
				}
				res.Deleted = append(res.Deleted, *am)
			}
			continue
		}
		if mi.State == model.StateSuperseded || mi.State == model.StateOutdated {
			continue
		}
		if rm.ChecksumMatches(am.Checksum) && rm.Type == am.Type &&
			model.DescriptionMatches(am.Description, rm.Description) {
			continue
		}
		err := l.Update(ctx, am.InstalledRank, rm.Description, rm.Type, rm.Checksum)
		if err != nil {
			return err
		}
		res.Realigned = append(res.Realigned, *am)
	}
	return nil
}

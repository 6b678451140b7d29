// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package migrationuc

import (
	"context"
	"fmt"

	"github.com/momeni/sqlmig/pkg/core/repo"
	"github.com/momeni/sqlmig/pkg/core/resolver"
)

// Info resolves the available migrations against the schema history
// and returns their states. The schema history is not locked, so its
// rows may be as old as the last released lock.
func (uc *UseCase) Info(ctx context.Context) (infos *resolver.Infos, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		infos, err = uc.resolve(ctx, uc.history.Conn(c), uc.resolverConfig(uc.target))
		return err
	})
	if err != nil {
		infos = nil
	}
	return
}

// Validate reports the disagreements between the available migrations
// and the schema history as a cerr.ValidationErrors error.
func (uc *UseCase) Validate(ctx context.Context) error {
	infos, err := uc.Info(ctx)
	if err != nil {
		return err
	}
	if ves := infos.Validate(); len(ves) > 0 {
		return ves
	}
	return nil
}

func (uc *UseCase) resolve(
	ctx context.Context, l repo.Ledger, cfg resolver.Config,
) (*resolver.Infos, error) {
	resolved, err := uc.source.Migrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing available migrations: %w", err)
	}
	applied, err := l.AllApplied(ctx)
	if err != nil {
		return nil, err
	}
	infos, err := resolver.Resolve(resolved, applied, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolving migrations: %w", err)
	}
	return infos, nil
}

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

	"github.com/momeni/sqlmig/pkg/core/cerr"
	"github.com/momeni/sqlmig/pkg/core/log"
	"github.com/momeni/sqlmig/pkg/core/repo"
)

// ErrCleanDisabled is wrapped by the configuration errors which are
// returned when cleaning is requested but it is not enabled.
var ErrCleanDisabled = errors.New("clean is disabled")

// Clean drops all objects of the managed schemas (or the current
// schema if none is configured) including the schema history table.
// It is refused unless clean is enabled.
func (uc *UseCase) Clean(ctx context.Context) error {
	return uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return uc.clean(ctx, c, uc.history.Conn(c))
	})
}

func (uc *UseCase) clean(ctx context.Context, c repo.Conn, l repo.Ledger) error {
	if !uc.cleanEnabled {
		return cerr.Configuration("cleanDisabled", ErrCleanDisabled)
	}
	if err := uc.d.Clean(ctx, c, uc.schemas); err != nil {
		return fmt.Errorf("cleaning schemas: %w", err)
	}
	l.ClearCache()
	ok, err := l.Exists(ctx)
	if err != nil {
		return err
	}
	if ok {
		if err := l.Drop(ctx); err != nil {
			return err
		}
	}
	log.Warn(
		ctx, "schemas are cleaned",
		slog.Any("schemas", uc.schemas),
		slog.String("dialect", uc.d.Name()),
	)
	return nil
}

// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"

	"github.com/momeni/sqlmig/pkg/core/model"
)

// Source enumerates the available migrations. Implementations keep no
// global state; each Migrations call scans its locations again.
type Source interface {
	Migrations(ctx context.Context) ([]model.ResolvedMigration, error)
}

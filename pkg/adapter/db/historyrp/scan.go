// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package historyrp

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/repo"
)

// timestampLayouts are the textual forms of installed_on which may be
// returned by the drivers which do not parse timestamps themselves.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func scan(rows repo.Rows) (model.AppliedMigration, error) {
	var (
		am          model.AppliedMigration
		version     sql.NullString
		typ         string
		checksum    sql.NullInt32
		installedOn any
		execTime    int64
	)
	err := rows.Scan(
		&am.InstalledRank, &version, &am.Description, &typ, &am.Script,
		&checksum, &am.InstalledBy, &installedOn, &execTime, &am.Success,
	)
	if err != nil {
		return am, err
	}
	if version.Valid && version.String != "" {
		if am.Version, err = model.ParseVersion(version.String); err != nil {
			return am, fmt.Errorf("rank %d: %w", am.InstalledRank, err)
		}
	}
	if checksum.Valid {
		cs := checksum.Int32
		am.Checksum = &cs
	}
	am.Type = model.MigrationType(typ)
	am.ExecutionTime = time.Duration(execTime) * time.Millisecond
	if am.InstalledOn, err = timestamp(installedOn); err != nil {
		return am, fmt.Errorf("rank %d: %w", am.InstalledRank, err)
	}
	return am, nil
}

func timestamp(v any) (time.Time, error) {
	var s string
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t, nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return time.Time{}, fmt.Errorf("unsupported installed_on %T", v)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable installed_on %q", s)
}

// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ansi

import (
	"database/sql"
	"fmt"
)

// Rows adapts *sql.Rows to the repo.Rows interface.
type Rows struct {
	*sql.Rows
}

func (r Rows) Close() {
	// returned error may be checked by calling the Err() method
	_ = r.Rows.Close()
}

// Values scans the current row into a slice of driver values.
func (r Rows) Values() ([]any, error) {
	names, err := r.Columns()
	if err != nil {
		return nil, fmt.Errorf("column-names: %w", err)
	}
	vals := make([]any, len(names))
	valPtrs := make([]any, 0, len(names))
	for i := range vals {
		ptr := &vals[i]
		valPtrs = append(valPtrs, ptr)
	}
	err = r.Scan(valPtrs...)
	return vals, err
}

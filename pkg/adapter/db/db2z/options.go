// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package db2z

import "errors"

// Option is a functional option for the DB2 for z/OS Dialect.
type Option func(d *Dialect) error

// WithDatabase sets the name of the database which contains the
// tablespaces of the schema history table and the cleaned objects.
// This option is mandatory.
func WithDatabase(name string) Option {
	return func(d *Dialect) error {
		if name == "" {
			return errors.New("database name is empty")
		}
		d.database = name
		return nil
	}
}

// WithTablespace overrides the DefaultTablespace.
func WithTablespace(name string) Option {
	return func(d *Dialect) error {
		if name == "" {
			return errors.New("tablespace name is empty")
		}
		d.tablespace = name
		return nil
	}
}

// WithFailureSentinel sets the text which marks a failed procedure call
// when it appears in the last row of the call results.
func WithFailureSentinel(sentinel string) Option {
	return func(d *Dialect) error {
		d.sentinel = sentinel
		return nil
	}
}

// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package log

import (
	"fmt"
	"log/slog"
	"time"
)

// Valuer returns an Attr for the given slog.LogValuer value.
func Valuer(key string, value slog.LogValuer) slog.Attr {
	return slog.Any(key, value)
}

// Err returns an Attr for the given error value.
// The error value is resolved as a string by its Error() method.
// If error value is nil, the constant "no-error" value will be used.
func Err(key string, value error) slog.Attr {
	if value == nil {
		return slog.String(key, "no-error")
	}
	return slog.String(key, value.Error())
}

// Version returns an Attr for a migration version. Repeatable
// migrations have no version, so a nil v (or one which is formatted as
// an empty string) is logged as "repeatable".
func Version(key string, v fmt.Stringer) slog.Attr {
	if v != nil {
		if s := v.String(); s != "" {
			return slog.String(key, s)
		}
	}
	return slog.String(key, "repeatable")
}

// Script returns an Attr holding a migration script identity.
func Script(script string) slog.Attr {
	return slog.String("script", script)
}

// Elapsed returns an Attr holding the time which is passed since start,
// rounded to milliseconds.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start).Round(time.Millisecond))
}

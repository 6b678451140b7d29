// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package settings contains the helper types and functions which are
// shared by the configuration format versions, such as the Duration
// type and the default value initializers for optional settings.
package settings

// Default makes the (*p) pointer, if it is nil, point to a newly
// allocated T instance which is initialized with the def value.
// Optional settings are kept as pointers, so a missing setting can be
// told apart from an explicit zero value.
// If the (*p) pointer was not nil, Default will perform no action.
func Default[T any](p **T, def T) {
	if (*p) != nil {
		return
	}
	(*p) = &def
}

// Deref returns the value which p points to, or the zero value of T
// if p is nil.
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

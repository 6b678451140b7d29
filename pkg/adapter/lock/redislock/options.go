// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package redislock

import (
	"fmt"
	"time"
)

// Option is a functional option for the Locker.
type Option func(l *Locker) error

// WithPrefix prepends prefix to the locked object names for computing
// their keys.
func WithPrefix(prefix string) Option {
	return func(l *Locker) error {
		l.prefix = prefix
		return nil
	}
}

// WithTTL sets the expiration time of the keys. It should be long
// enough to tolerate the network delays of the periodic refreshes.
func WithTTL(ttl time.Duration) Option {
	return func(l *Locker) error {
		if ttl < 3*time.Millisecond {
			return fmt.Errorf("ttl (%v) is too short", ttl)
		}
		l.ttl = ttl
		return nil
	}
}

// WithRetry sets the polling interval for busy locks.
func WithRetry(interval time.Duration) Option {
	return func(l *Locker) error {
		if interval <= 0 {
			return fmt.Errorf("retry interval (%v) is not positive", interval)
		}
		l.retry = interval
		return nil
	}
}

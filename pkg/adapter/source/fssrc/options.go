// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package fssrc

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// Option is a functional option for the Source.
type Option func(s *Source) error

// WithLocations replaces the scanned directories. Locations are slash
// separated paths, relative to the root of the file system.
func WithLocations(locations ...string) Option {
	return func(s *Source) error {
		if len(locations) == 0 {
			return errors.New("no location is given")
		}
		locs := make([]string, len(locations))
		for i, loc := range locations {
			loc = path.Clean(strings.TrimPrefix(loc, "/"))
			if !fs.ValidPath(loc) {
				return fmt.Errorf("invalid location %q", locations[i])
			}
			locs[i] = loc
		}
		s.locations = locs
		return nil
	}
}

// WithNaming configures the prefixes of versioned and repeatable
// scripts, the separator of versions and descriptions, and the file
// name suffixes.
func WithNaming(
	prefix, repeatablePrefix, separator string, suffixes ...string,
) Option {
	return func(s *Source) error {
		switch {
		case prefix == "" || repeatablePrefix == "":
			return errors.New("migration prefixes must not be empty")
		case strings.HasPrefix(prefix, repeatablePrefix):
			return fmt.Errorf(
				"prefix %q shadows the %q prefix",
				repeatablePrefix, prefix,
			)
		case separator == "":
			return errors.New("migration separator is empty")
		case len(suffixes) == 0:
			return errors.New("no migration suffix is given")
		}
		s.prefix, s.repeatablePrefix = prefix, repeatablePrefix
		s.separator, s.suffixes = separator, suffixes
		return nil
	}
}

// WithStrictNaming makes the misnamed scripts (having a known prefix
// and suffix, but an invalid version) fail the scan instead of being
// skipped.
func WithStrictNaming(strict bool) Option {
	return func(s *Source) error {
		s.strict = strict
		return nil
	}
}

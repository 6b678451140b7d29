// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type versionKind int

const (
	regularVersion versionKind = iota
	emptyVersion
	latestVersion
	currentVersion
	nextVersion
)

// Version represents a migration version which is a series of dot
// separated non-negative numbers, such as 1, 1.2, or 2.0.10.
// Versions are compared numerically component by component and missing
// trailing components are taken as zero, so 1.0 and 1 are equal.
// Underscores are accepted as separators too (like 1_2) since they are
// common in migration file names, but they are always formatted as dots.
//
// A nil *Version represents the absence of a version which is the case
// for repeatable migrations. Besides the regular versions, a few
// sentinel values are defined in this package which must be compared
// by identity or by the Compare method, but never parsed from parts.
type Version struct {
	parts []uint64
	kind  versionKind
}

// These sentinel versions are used in addition to the regular versions.
// EmptyVersion sorts before all regular versions and indicates that no
// versioned migration is applied yet. LatestVersion sorts after all
// regular versions and indicates that all available migrations should
// be considered. CurrentVersion and NextVersion are only meaningful
// as a migration target; they are resolved against the schema history
// into a regular version (or LatestVersion) before being compared.
var (
	EmptyVersion   = &Version{kind: emptyVersion}
	LatestVersion  = &Version{kind: latestVersion}
	CurrentVersion = &Version{kind: currentVersion}
	NextVersion    = &Version{kind: nextVersion}
)

// ParseVersion parses s as a migration version. The "latest", "current",
// and "next" words (case-insensitive) are mapped to their sentinel
// versions and an empty s is parsed as LatestVersion.
func ParseVersion(s string) (*Version, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latest":
		return LatestVersion, nil
	case "current":
		return CurrentVersion, nil
	case "next":
		return NextVersion, nil
	}
	v := &Version{}
	if err := v.UnmarshalText([]byte(s)); err != nil {
		return nil, err
	}
	return v, nil
}

// MustParseVersion is like ParseVersion but panics if s is malformed.
// It simplifies the initialization of versions in tests and constants.
func MustParseVersion(s string) *Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// UnmarshalText deserializes text byte slice as a series of dot (or
// underscore) separated numbers and fills the v Version instance.
// In case of errors, v will be left unchanged.
func (v *Version) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		return errors.New("empty version")
	}
	p := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '_'
	})
	if len(p) == 0 || len(strings.Join(p, ".")) != len(s) {
		return fmt.Errorf("the %q has an empty component", s)
	}
	parts := make([]uint64, len(p))
	for i, c := range p {
		n, err := strconv.ParseUint(c, 10, 64)
		if err != nil {
			return fmt.Errorf("the %q component is not numeric", c)
		}
		parts[i] = n
	}
	v.parts = parts
	v.kind = regularVersion
	return nil
}

// MarshalText implements encoding.TextMarshaler interface and
// serializes v version as its string representation.
func (v *Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// String returns v as a dot-separated string of its components.
// Sentinel versions are formatted by their descriptive names and a nil
// v (the version of repeatable migrations) is formatted as an empty
// string.
func (v *Version) String() string {
	if v == nil {
		return ""
	}
	switch v.kind {
	case emptyVersion:
		return "<< Empty Schema >>"
	case latestVersion:
		return "<< Latest Version >>"
	case currentVersion:
		return "<< Current Version >>"
	case nextVersion:
		return "<< Next Version >>"
	}
	ss := make([]string, len(v.parts))
	for i, n := range v.parts {
		ss[i] = strconv.FormatUint(n, 10)
	}
	return strings.Join(ss, ".")
}

// IsSentinel reports whether v is one of the sentinel versions.
func (v *Version) IsSentinel() bool {
	return v != nil && v.kind != regularVersion
}

// Compare returns -1, 0, or +1 if v is less than, equal to, or greater
// than the o version respectively. A nil version sorts after every
// non-nil version, so versioned migrations are placed before the
// repeatable ones. CurrentVersion and NextVersion are compared as if
// they were LatestVersion.
func (v *Version) Compare(o *Version) int {
	switch {
	case v == nil && o == nil:
		return 0
	case v == nil:
		return 1
	case o == nil:
		return -1
	}
	if r := cmp.Compare(v.rank(), o.rank()); r != 0 || v.kind != regularVersion {
		return r
	}
	n := max(len(v.parts), len(o.parts))
	for i := 0; i < n; i++ {
		if r := cmp.Compare(v.part(i), o.part(i)); r != 0 {
			return r
		}
	}
	return 0
}

// Equal reports whether v and o represent the same version.
func (v *Version) Equal(o *Version) bool {
	return v.Compare(o) == 0
}

// IsNewerThan reports whether v is strictly greater than o.
func (v *Version) IsNewerThan(o *Version) bool {
	return v.Compare(o) > 0
}

func (v *Version) rank() int {
	switch v.kind {
	case emptyVersion:
		return -1
	case regularVersion:
		return 0
	}
	return 1
}

func (v *Version) part(i int) uint64 {
	if i < len(v.parts) {
		return v.parts[i]
	}
	return 0
}

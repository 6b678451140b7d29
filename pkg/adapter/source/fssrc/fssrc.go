// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package fssrc implements the repo.Source interface by scanning the
// SQL script files of some directories of an fs.FS file system.
// Versioned scripts are named like V1_2__add_users.sql and repeatable
// ones like R__refresh_views.sql (the prefixes, separator, and suffixes
// are configurable). Underscores of descriptions are read as spaces.
package fssrc

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/momeni/sqlmig/pkg/core/cerr"
	"github.com/momeni/sqlmig/pkg/core/log"
	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/repo"
)

// Source lists the migrations of an fs.FS instance.
type Source struct {
	fsys      fs.FS
	locations []string

	prefix           string
	repeatablePrefix string
	separator        string
	suffixes         []string
	strict           bool
}

var _ repo.Source = (*Source)(nil)

// New instantiates a Source for the fsys file system. By default, its
// root directory is scanned recursively, and V/R prefixes with the "__"
// separator and ".sql" suffix are expected.
func New(fsys fs.FS, opts ...Option) (*Source, error) {
	if fsys == nil {
		return nil, errors.New("file system is nil")
	}
	s := &Source{
		fsys:             fsys,
		locations:        []string{"."},
		prefix:           "V",
		repeatablePrefix: "R",
		separator:        "__",
		suffixes:         []string{".sql"},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Migrations scans all locations and returns the versioned migrations
// in their version order, followed by the repeatable migrations in
// their description order. Files which are not named like migrations
// are skipped, unless the strict naming is enabled.
func (s *Source) Migrations(ctx context.Context) ([]model.ResolvedMigration, error) {
	var migs []model.ResolvedMigration
	for _, loc := range s.locations {
		err := fs.WalkDir(s.fsys, loc, func(
			p string, d fs.DirEntry, err error,
		) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return ctx.Err()
			}
			rm, ok, err := s.parse(loc, p)
			if err != nil {
				if s.strict {
					return cerr.Configuration("locations", err)
				}
				log.Warn(
					ctx, "skipping misnamed migration script",
					log.Script(p), log.Err("err", err),
				)
				return nil
			}
			if ok {
				migs = append(migs, rm)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %q: %w", loc, err)
		}
	}
	slices.SortFunc(migs, compare)
	for i := 1; i < len(migs); i++ {
		if compare(migs[i-1], migs[i]) == 0 {
			return nil, cerr.Configuration("locations", fmt.Errorf(
				"found more than one migration with %s: %s and %s",
				identity(migs[i]), migs[i-1].Script, migs[i].Script,
			))
		}
	}
	log.Debug(
		ctx, "resolved migration scripts",
		slog.Int("count", len(migs)),
		slog.Any("locations", s.locations),
	)
	return migs, nil
}

func compare(a, b model.ResolvedMigration) int {
	if c := a.Version.Compare(b.Version); c != 0 || a.Version != nil {
		return c
	}
	return strings.Compare(a.Description, b.Description)
}

func identity(rm model.ResolvedMigration) string {
	if rm.Version == nil {
		return fmt.Sprintf("description %q", rm.Description)
	}
	return "version " + rm.Version.String()
}

// parse returns the migration which is stored in the p file of the loc
// location. It returns false if p does not look like a migration.
func (s *Source) parse(loc, p string) (model.ResolvedMigration, bool, error) {
	var rm model.ResolvedMigration
	name := path.Base(p)
	i := slices.IndexFunc(s.suffixes, func(suffix string) bool {
		return strings.HasSuffix(name, suffix)
	})
	if i < 0 {
		return rm, false, nil
	}
	base := strings.TrimSuffix(name, s.suffixes[i])
	var versioned bool
	switch {
	case strings.HasPrefix(base, s.repeatablePrefix):
		base = strings.TrimPrefix(base, s.repeatablePrefix)
	case strings.HasPrefix(base, s.prefix):
		base, versioned = strings.TrimPrefix(base, s.prefix), true
	default:
		return rm, false, nil
	}
	ver, desc, _ := strings.Cut(base, s.separator)
	if !versioned {
		if ver != "" {
			return rm, false, fmt.Errorf(
				"repeatable migration %q cannot have a version", name,
			)
		}
	} else {
		v, err := model.ParseVersion(ver)
		if err != nil || ver == "" || v.IsSentinel() {
			return rm, false, fmt.Errorf(
				"versioned migration %q has no valid version", name,
			)
		}
		rm.Version = v
	}
	content, err := fs.ReadFile(s.fsys, p)
	if err != nil {
		return rm, false, err
	}
	script := p
	if loc != "." {
		script = strings.TrimPrefix(strings.TrimPrefix(p, loc), "/")
	}
	rm.Description = strings.ReplaceAll(desc, "_", " ")
	rm.Type = model.TypeSQL
	rm.Script = script
	body := string(content)
	cs := Checksum(body)
	rm.Checksum = &cs
	body = strings.TrimPrefix(body, "\uFEFF")
	rm.Content = func() (string, error) {
		return body, nil
	}
	return rm, true, nil
}

// Checksum computes the CRC-32 checksum of the content lines. Line
// terminators and a leading byte order mark are not included, so the
// checksum does not depend on the platform line endings.
func Checksum(content string) int32 {
	content = strings.TrimPrefix(content, "\uFEFF")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.TrimSuffix(content, "\n")
	h := crc32.NewIEEE()
	if content != "" {
		for _, line := range strings.Split(content, "\n") {
			_, _ = h.Write([]byte(line))
		}
	}
	return int32(h.Sum32())
}

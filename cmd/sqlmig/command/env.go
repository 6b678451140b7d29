// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/momeni/sqlmig/pkg/adapter/config"
	"github.com/momeni/sqlmig/pkg/adapter/config/cfg1"
	"github.com/momeni/sqlmig/pkg/adapter/db/registry"
	"github.com/momeni/sqlmig/pkg/core/usecase/migrationuc"
)

// env holds the components which are instantiated from the config
// file for running one command.
type env struct {
	cfg     *cfg1.Config
	uc      *migrationuc.UseCase
	closers []func() error
}

// setup loads the config file, lets override adjust the loaded
// settings (based on the command flags), and instantiates the
// migration use cases. The returned env must be closed.
func setup(
	ctx context.Context, override func(c *cfg1.Config) error,
) (_ *env, err error) {
	c, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("config.Load(%q): %w", cfgPath, err)
	}
	if override != nil {
		if err = override(c); err != nil {
			return nil, err
		}
		if err = c.ValidateAndNormalize(); err != nil {
			return nil, fmt.Errorf("validating flags: %w", err)
		}
	}
	e := &env{cfg: c}
	defer func() {
		if err != nil {
			err = errors.Join(err, e.Close())
		}
	}()
	reg := registry.New()
	d, err := c.Dialect(reg)
	if err != nil {
		return nil, err
	}
	p, err := c.ConnectionPool(ctx, reg)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, p.Close)
	l, closeLocker, err := c.Locker()
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, closeLocker)
	h, err := c.HistoryRepo(d, l)
	if err != nil {
		return nil, fmt.Errorf("creating schema history repo: %w", err)
	}
	src, err := c.MigrationSource()
	if err != nil {
		return nil, err
	}
	e.uc, err = c.NewUseCase(p, d, h, src)
	if err != nil {
		return nil, fmt.Errorf("creating migration use case: %w", err)
	}
	return e, nil
}

// Close releases the resources of e in the reverse order of their
// creation.
func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	e.closers = nil
	return errors.Join(errs...)
}

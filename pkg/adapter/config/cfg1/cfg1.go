// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package cfg1 makes it possible to load configuration settings with
// version 1.x.y since all minor and patch versions (which are known)
// with the same major version, can be loaded with one implementation.
//
// Settings are kept as primitive fields (or pointers to them when
// a missing value must be detected) instead of the core models, so the
// file format can stay intact while other layers change freely.
// The loaded settings are passed to their components as mandatory
// arguments and functional options by the methods of Config.
package cfg1

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/momeni/sqlmig/pkg/adapter/config/settings"
	"github.com/momeni/sqlmig/pkg/adapter/config/vers"
	"github.com/momeni/sqlmig/pkg/adapter/db/historyrp"
	"github.com/momeni/sqlmig/pkg/adapter/db/postgres"
	"github.com/momeni/sqlmig/pkg/adapter/db/registry"
	"github.com/momeni/sqlmig/pkg/adapter/lock/redislock"
	"github.com/momeni/sqlmig/pkg/adapter/restful/gin"
	"github.com/momeni/sqlmig/pkg/adapter/source/fssrc"
	"github.com/momeni/sqlmig/pkg/core/cerr"
	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/repo"
	"github.com/momeni/sqlmig/pkg/core/usecase/migrationuc"
	"github.com/redis/go-redis/v9"
)

// These constants define the major, minor, and patch version of the
// configuration settings which are supported by the Config struct.
const (
	Major = 1
	Minor = 0
	Patch = 0
)

// Version is the semantic version of Config struct.
var Version = model.SemVer{Major, Minor, Patch}

// EnvDatabaseURL names the environment variable which overrides the
// database URL setting, so credentials can be kept out of the file.
const EnvDatabaseURL = "SQLMIG_DATABASE_URL"

// These are the lock backends.
const (
	LockDatabase = "database"
	LockRedis    = "redis"
)

// Config contains all settings of the sqlmig following the v1.x.y
// format.
type Config struct {
	// Config contains the configuration file version.
	vers.Config `yaml:",inline"`

	Database Database `yaml:"database" toml:"database"`
	History  History  `yaml:"history" toml:"history"`
	Source   Source   `yaml:"source" toml:"source"`
	Migrate  Migrate  `yaml:"migrate" toml:"migrate"`
	Baseline Baseline `yaml:"baseline" toml:"baseline"`
	Lock     Lock     `yaml:"lock" toml:"lock"`
	Server   Server   `yaml:"server" toml:"server"`
}

// Database contains the database connection settings. Either URL or
// Host must be given; the URL is built from Host, Port, Name, User, and
// the first line of PassFile otherwise (only for the postgres dialect).
type Database struct {
	Dialect  string `yaml:"dialect" toml:"dialect" validate:"required"`
	URL      string `yaml:"url,omitempty" toml:"url,omitempty" validate:"required_without=Host"`
	Host     string `yaml:"host,omitempty" toml:"host,omitempty" validate:"required_without=URL"`
	Port     int    `yaml:"port,omitempty" toml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Name     string `yaml:"name,omitempty" toml:"name,omitempty" validate:"required_with=Host"`
	User     string `yaml:"user,omitempty" toml:"user,omitempty"`
	PassFile string `yaml:"pass-file,omitempty" toml:"pass-file,omitempty"`

	// Schemas are the managed schemas. The history table is kept in
	// the first one, unless History.Schema is set.
	Schemas       []string `yaml:"schemas,omitempty" toml:"schemas,omitempty" validate:"dive,required"`
	CreateSchemas *bool    `yaml:"create-schemas" toml:"create-schemas"`

	DB2Z DB2Z `yaml:"db2z,omitempty" toml:"db2z,omitempty"`
}

// DB2Z contains the settings which are only used by the db2z dialect.
type DB2Z struct {
	Database        string `yaml:"database" toml:"database"`
	Tablespace      string `yaml:"tablespace,omitempty" toml:"tablespace,omitempty"`
	FailureSentinel string `yaml:"failure-sentinel,omitempty" toml:"failure-sentinel,omitempty"`
}

// History contains the schema history table settings.
type History struct {
	Schema         string             `yaml:"schema,omitempty" toml:"schema,omitempty"`
	Table          string             `yaml:"table,omitempty" toml:"table,omitempty" validate:"omitempty,max=128"`
	InstalledBy    string             `yaml:"installed-by,omitempty" toml:"installed-by,omitempty" validate:"omitempty,max=100"`
	CreateAttempts *int               `yaml:"create-attempts" toml:"create-attempts" validate:"omitnil,min=1"`
	CreateBackoff  *settings.Duration `yaml:"create-backoff" toml:"create-backoff"`
}

// Source describes where the migration scripts are found and how they
// are named. Locations are slash-separated paths relative to Root.
type Source struct {
	Root             string   `yaml:"root" toml:"root"`
	Locations        []string `yaml:"locations" toml:"locations" validate:"dive,required"`
	Prefix           string   `yaml:"prefix,omitempty" toml:"prefix,omitempty"`
	RepeatablePrefix string   `yaml:"repeatable-prefix,omitempty" toml:"repeatable-prefix,omitempty"`
	Separator        string   `yaml:"separator,omitempty" toml:"separator,omitempty"`
	Suffixes         []string `yaml:"suffixes,omitempty" toml:"suffixes,omitempty" validate:"dive,required"`
	Strict           bool     `yaml:"strict" toml:"strict"`
}

// Migrate contains the settings of the migrate operation (which are
// also used by info, validate, and repair).
type Migrate struct {
	// Target is a version, or one of latest, current, and next.
	Target              string   `yaml:"target" toml:"target"`
	OutOfOrder          bool     `yaml:"out-of-order" toml:"out-of-order"`
	CherryPick          []string `yaml:"cherry-pick,omitempty" toml:"cherry-pick,omitempty" validate:"dive,required"`
	FailOnMissingTarget *bool    `yaml:"fail-on-missing-target" toml:"fail-on-missing-target"`
	Group               bool     `yaml:"group" toml:"group"`
	Mixed               bool     `yaml:"mixed" toml:"mixed"`
	Ignore              Ignore   `yaml:"ignore" toml:"ignore"`

	ValidateOnMigrate      *bool `yaml:"validate-on-migrate" toml:"validate-on-migrate"`
	CleanOnValidationError bool  `yaml:"clean-on-validation-error" toml:"clean-on-validation-error"`
	CleanDisabled          *bool `yaml:"clean-disabled" toml:"clean-disabled"`
}

// Ignore lists the migration states which do not fail a validation.
type Ignore struct {
	Pending *bool `yaml:"pending" toml:"pending"`
	Ignored *bool `yaml:"ignored" toml:"ignored"`
	Missing *bool `yaml:"missing" toml:"missing"`
	Future  *bool `yaml:"future" toml:"future"`
}

// Baseline contains the baseline marker settings.
type Baseline struct {
	Version     string `yaml:"version" toml:"version"`
	Description string `yaml:"description" toml:"description" validate:"max=200"`
	OnMigrate   bool   `yaml:"on-migrate" toml:"on-migrate"`
}

// Lock selects how concurrent runs are serialized. The database
// backend uses the locking primitive of the dialect, while the redis
// backend holds a lock key in Redis for the whole run.
type Lock struct {
	Backend string `yaml:"backend" toml:"backend" validate:"omitempty,oneof=database redis"`
	Redis   Redis  `yaml:"redis,omitempty" toml:"redis,omitempty"`
}

// Redis contains the Redis client and lock settings.
type Redis struct {
	Addrs    []string           `yaml:"addrs" toml:"addrs" validate:"dive,hostname_port"`
	PassFile string             `yaml:"pass-file,omitempty" toml:"pass-file,omitempty"`
	DB       int                `yaml:"db" toml:"db" validate:"min=0"`
	Prefix   string             `yaml:"prefix,omitempty" toml:"prefix,omitempty"`
	TTL      *settings.Duration `yaml:"ttl" toml:"ttl"`
	Retry    *settings.Duration `yaml:"retry" toml:"retry"`
}

// Server contains the report server settings.
type Server struct {
	Listen   string `yaml:"listen" toml:"listen" validate:"omitempty,hostname_port"`
	Logger   *bool  `yaml:"logger" toml:"logger"`
	Recovery *bool  `yaml:"recovery" toml:"recovery"`

	ReadHeaderTimeout *settings.Duration `yaml:"read-header-timeout" toml:"read-header-timeout"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load unmarshals the data byte slice with the f format and loads
// a Config instance. Extra items in the data will be ignored and
// missing items will take their default values. Thereafter, loaded
// Config will be validated and normalized in order to ensure that
// provided settings are acceptable. The EnvDatabaseURL environment
// variable overrides the database URL of the data, if it is set.
func Load(f vers.Format, data []byte) (*Config, error) {
	c := &Config{}
	if err := vers.Unmarshal(f, data, c); err != nil {
		return nil, fmt.Errorf("unmarshalling %s: %w", f, err)
	}
	if u := os.Getenv(EnvDatabaseURL); u != "" {
		c.Database.URL = u
	}
	if err := c.ValidateAndNormalize(); err != nil {
		return nil, fmt.Errorf("validating configs: %w", err)
	}
	return c, nil
}

// ValidateAndNormalize validates the configuration settings and
// returns an error if they were not acceptable. It also replaces
// the missing optional settings with their default values.
// Invalid settings are reported as *cerr.ConfigurationError.
func (c *Config) ValidateAndNormalize() error {
	if err := c.Vers().Validate(Major, Minor); err != nil {
		return cerr.Configuration("versions.config", fmt.Errorf(
			"expecting version v%d.%d: %w", Major, Minor, err,
		))
	}
	if err := validate.Struct(c); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			return cerr.Configuration(
				strings.TrimPrefix(ves[0].Namespace(), "Config."), err,
			)
		}
		return err
	}
	settings.Default(&c.Database.CreateSchemas, true)
	if c.Source.Root == "" {
		c.Source.Root = "."
	}
	if len(c.Source.Locations) == 0 {
		c.Source.Locations = []string{"db/migration"}
	}
	settings.Default(&c.Migrate.FailOnMissingTarget, true)
	settings.Default(&c.Migrate.ValidateOnMigrate, true)
	settings.Default(&c.Migrate.CleanDisabled, true)
	settings.Default(&c.Migrate.Ignore.Pending, false)
	settings.Default(&c.Migrate.Ignore.Ignored, false)
	settings.Default(&c.Migrate.Ignore.Missing, false)
	settings.Default(&c.Migrate.Ignore.Future, true)
	if c.Baseline.Version == "" {
		c.Baseline.Version = "1"
	}
	if c.Baseline.Description == "" {
		c.Baseline.Description = "<< Baseline >>"
	}
	if c.Lock.Backend == "" {
		c.Lock.Backend = LockDatabase
	}
	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.1:8080"
	}
	settings.Default(&c.Server.Logger, true)
	settings.Default(&c.Server.Recovery, true)

	if _, err := c.Migrate.target(); err != nil {
		return cerr.Configuration("migrate.target", err)
	}
	if _, err := c.Baseline.version(); err != nil {
		return cerr.Configuration("baseline.version", err)
	}
	if c.Migrate.CleanOnValidationError && !*c.Migrate.ValidateOnMigrate {
		return cerr.Configuration("migrate.clean-on-validation-error",
			errors.New("validate-on-migrate must be enabled"),
		)
	}
	if c.Lock.Backend == LockRedis && len(c.Lock.Redis.Addrs) == 0 {
		return cerr.Configuration("lock.redis.addrs",
			errors.New("redis lock needs at least one address"),
		)
	}
	if c.Database.URL == "" && c.Database.Dialect != postgres.Name {
		return cerr.Configuration("database.url", fmt.Errorf(
			"the %s dialect needs a url", c.Database.Dialect,
		))
	}
	return nil
}

// Vers returns the configuration file version settings.
func (c *Config) Vers() *vers.Config {
	return &c.Config
}

func (m Migrate) target() (*model.Version, error) {
	v, err := model.ParseVersion(m.Target)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (b Baseline) version() (*model.Version, error) {
	v, err := model.ParseVersion(b.Version)
	if err != nil {
		return nil, err
	}
	if v.IsSentinel() {
		return nil, fmt.Errorf("%q is not a regular version", b.Version)
	}
	return v, nil
}

// ConnectionURL returns the URL which should be passed to the dialect
// driver. It is the URL setting if it is not empty, otherwise it is
// made from the host, port, name, user, and password file settings.
func (d Database) ConnectionURL() (string, error) {
	if d.URL != "" {
		return d.URL, nil
	}
	u := &url.URL{
		Scheme: "postgres",
		Host:   d.Host,
		Path:   "/" + d.Name,
	}
	if d.Port != 0 {
		u.Host = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	}
	if d.User != "" {
		u.User = url.User(d.User)
		if d.PassFile != "" {
			pass, err := readPassFile(d.PassFile)
			if err != nil {
				return "", err
			}
			u.User = url.UserPassword(d.User, pass)
		}
	}
	return u.String(), nil
}

func readPassFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading password file: %w", err)
	}
	line, _, _ := strings.Cut(string(b), "\n")
	return strings.TrimSpace(line), nil
}

// Dialect instantiates the configured dialect from the r registry.
func (c *Config) Dialect(r *registry.Registry) (registry.Dialect, error) {
	db := c.Database
	return r.Dialect(db.Dialect, registry.Settings{
		Database:        db.DB2Z.Database,
		Tablespace:      db.DB2Z.Tablespace,
		FailureSentinel: db.DB2Z.FailureSentinel,
	})
}

// ConnectionPool connects to the configured database with the driver
// of its dialect, as found in the r registry.
func (c *Config) ConnectionPool(
	ctx context.Context, r *registry.Registry,
) (registry.Pool, error) {
	u, err := c.Database.ConnectionURL()
	if err != nil {
		return nil, err
	}
	p, err := r.Connect(ctx, c.Database.Dialect, u)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s database: %w",
			c.Database.Dialect, err,
		)
	}
	return p, nil
}

// Locker returns the configured cross-process locker and a function
// which releases its resources. A nil locker is returned for the
// database backend, so the dialect locking is used.
func (c *Config) Locker() (repo.Locker, func() error, error) {
	if c.Lock.Backend != LockRedis {
		return nil, func() error { return nil }, nil
	}
	rc := c.Lock.Redis
	opts := &redis.UniversalOptions{Addrs: rc.Addrs, DB: rc.DB}
	if rc.PassFile != "" {
		pass, err := readPassFile(rc.PassFile)
		if err != nil {
			return nil, nil, err
		}
		opts.Password = pass
	}
	client := redis.NewUniversalClient(opts)
	lopts := make([]redislock.Option, 0, 3)
	if rc.Prefix != "" {
		lopts = append(lopts, redislock.WithPrefix(rc.Prefix))
	}
	if rc.TTL != nil {
		lopts = append(lopts, redislock.WithTTL(rc.TTL.Std(0)))
	}
	if rc.Retry != nil {
		lopts = append(lopts, redislock.WithRetry(rc.Retry.Std(0)))
	}
	l, err := redislock.New(client, lopts...)
	if err != nil {
		_ = client.Close()
		return nil, nil, cerr.Configuration("lock.redis", err)
	}
	return l, client.Close, nil
}

// HistoryRepo instantiates the schema history repository over the d
// dialect. The l locker may be nil in order to use the dialect lock.
func (c *Config) HistoryRepo(
	d repo.Dialect, l repo.Locker,
) (*historyrp.Repo, error) {
	h := c.History
	opts := make([]historyrp.Option, 0, 5)
	schema := h.Schema
	if schema == "" && len(c.Database.Schemas) > 0 {
		schema = c.Database.Schemas[0]
	}
	if schema != "" || h.Table != "" {
		table := h.Table
		if table == "" {
			table = historyrp.DefaultTable
		}
		opts = append(opts, historyrp.WithTable(schema, table))
	}
	if h.InstalledBy != "" {
		opts = append(opts, historyrp.WithInstalledBy(h.InstalledBy))
	}
	if h.CreateAttempts != nil || h.CreateBackoff != nil {
		attempts := 10
		if h.CreateAttempts != nil {
			attempts = *h.CreateAttempts
		}
		opts = append(opts, historyrp.WithRetry(
			attempts, h.CreateBackoff.Std(time.Second),
		))
	}
	if l != nil {
		opts = append(opts, historyrp.WithLocker(l))
	}
	v, err := c.Baseline.version()
	if err != nil {
		return nil, cerr.Configuration("baseline.version", err)
	}
	opts = append(opts, historyrp.WithBaseline(v, c.Baseline.Description))
	return historyrp.New(d, opts...)
}

// MigrationSource instantiates the fs.FS based migration source which
// reads the scripts from the Source.Root directory.
func (c *Config) MigrationSource() (*fssrc.Source, error) {
	s := c.Source
	opts := []fssrc.Option{
		fssrc.WithLocations(s.Locations...),
		fssrc.WithStrictNaming(s.Strict),
	}
	if s.Prefix != "" || s.RepeatablePrefix != "" ||
		s.Separator != "" || len(s.Suffixes) > 0 {
		opts = append(opts, fssrc.WithNaming(
			orDefault(s.Prefix, "V"),
			orDefault(s.RepeatablePrefix, "R"),
			orDefault(s.Separator, "__"),
			s.Suffixes...,
		))
	}
	src, err := fssrc.New(os.DirFS(s.Root), opts...)
	if err != nil {
		return nil, cerr.Configuration("source", err)
	}
	return src, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// MigrateOptions converts the settings into the functional options of
// the migration use cases.
func (c *Config) MigrateOptions() ([]migrationuc.Option, error) {
	m := c.Migrate
	target, err := m.target()
	if err != nil {
		return nil, cerr.Configuration("migrate.target", err)
	}
	bv, err := c.Baseline.version()
	if err != nil {
		return nil, cerr.Configuration("baseline.version", err)
	}
	patterns := make([]model.MigrationPattern, len(m.CherryPick))
	for i, p := range m.CherryPick {
		patterns[i] = model.MigrationPattern(p)
	}
	return []migrationuc.Option{
		migrationuc.WithSchemas(
			settings.Deref(c.Database.CreateSchemas), c.Database.Schemas...,
		),
		migrationuc.WithTarget(target),
		migrationuc.WithOutOfOrder(m.OutOfOrder),
		migrationuc.WithCherryPick(patterns...),
		migrationuc.WithFailOnMissingTarget(
			settings.Deref(m.FailOnMissingTarget),
		),
		migrationuc.WithIgnore(
			settings.Deref(m.Ignore.Pending),
			settings.Deref(m.Ignore.Ignored),
			settings.Deref(m.Ignore.Missing),
			settings.Deref(m.Ignore.Future),
		),
		migrationuc.WithGroup(m.Group),
		migrationuc.WithMixed(m.Mixed),
		migrationuc.WithValidateOnMigrate(
			settings.Deref(m.ValidateOnMigrate), m.CleanOnValidationError,
		),
		migrationuc.WithCleanEnabled(!settings.Deref(m.CleanDisabled)),
		migrationuc.WithBaseline(
			bv, c.Baseline.Description, c.Baseline.OnMigrate,
		),
	}, nil
}

// NewUseCase instantiates the migration use cases with the given
// collaborators and the configured options.
func (c *Config) NewUseCase(
	p repo.Pool, d migrationuc.Dialect, h repo.History, src repo.Source,
) (*migrationuc.UseCase, error) {
	opts, err := c.MigrateOptions()
	if err != nil {
		return nil, err
	}
	return migrationuc.New(p, d, h, src, opts...)
}

// NewEngine instantiates a new gin-gonic engine instance based on the
// `s` settings. Requests are logged with the l logger.
func (s Server) NewEngine(l *slog.Logger) *gin.Engine {
	middlewares := make([]gin.HandlerFunc, 0, 2)
	if *s.Logger {
		middlewares = append(middlewares, gin.Logger(l))
	}
	if *s.Recovery {
		middlewares = append(middlewares, gin.Recovery())
	}
	return gin.New(middlewares...)
}

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/momeni/sqlmig/internal/test/dbcontainer"
	"github.com/momeni/sqlmig/pkg/adapter/db/historyrp"
	"github.com/momeni/sqlmig/pkg/adapter/db/postgres"
	"github.com/momeni/sqlmig/pkg/adapter/source/fssrc"
	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/repo"
	"github.com/momeni/sqlmig/pkg/core/usecase/migrationuc"
	"github.com/stretchr/testify/suite"
)

type IntegrationPostgresTestSuite struct {
	suite.Suite

	Ctx  context.Context
	Pool *postgres.Pool
}

func TestIntegrationPostgresTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping the PostgreSQL container in short mode")
	}
	ctx := context.Background()
	_, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return // errors are already logged
	}
	suite.Run(t, &IntegrationPostgresTestSuite{Ctx: ctx, Pool: pool})
}

const plpgsql = `CREATE FUNCTION app.touch() RETURNS trigger AS $$
BEGIN
    NEW.updated_at := now();
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;
CREATE TRIGGER users_touch BEFORE UPDATE ON app.users
    FOR EACH ROW EXECUTE FUNCTION app.touch();`

var scripts = fstest.MapFS{
	"V1__users.sql": {Data: []byte(
		"CREATE TABLE app.users (id INT PRIMARY KEY, updated_at TIMESTAMPTZ);",
	)},
	"V2__touch.sql": {Data: []byte(plpgsql)},
	"V3__index.sql": {Data: []byte(
		"CREATE INDEX CONCURRENTLY users_updated ON app.users (updated_at);",
	)},
	"R__seed.sql": {Data: []byte(
		"INSERT INTO app.users (id) VALUES (1) ON CONFLICT DO NOTHING;",
	)},
}

func (s *IntegrationPostgresTestSuite) SetupTest() {
	err := s.Pool.Conn(s.Ctx, func(ctx context.Context, c repo.Conn) error {
		_, err := c.Exec(ctx, "DROP SCHEMA IF EXISTS app CASCADE")
		return err
	})
	s.Require().NoError(err, "dropping app schema")
}

func (s *IntegrationPostgresTestSuite) useCase(
	opts ...migrationuc.Option,
) *migrationuc.UseCase {
	d := postgres.NewDialect()
	h, err := historyrp.New(d, historyrp.WithTable("app", historyrp.DefaultTable))
	s.Require().NoError(err, "historyrp.New")
	src, err := fssrc.New(scripts)
	s.Require().NoError(err, "fssrc.New")
	opts = append([]migrationuc.Option{
		migrationuc.WithSchemas(true, "app"),
	}, opts...)
	uc, err := migrationuc.New(s.Pool, d, h, src, opts...)
	s.Require().NoError(err, "migrationuc.New")
	return uc
}

func (s *IntegrationPostgresTestSuite) TestMigrate() {
	uc := s.useCase()
	res, err := uc.Migrate(s.Ctx)
	s.Require().NoError(err, "Migrate")
	s.Require().Len(res.Migrations, 4)
	s.Equal("R__seed.sql", res.Migrations[3].Script)

	infos, err := uc.Info(s.Ctx)
	s.Require().NoError(err, "Info")
	s.Equal("3", infos.LastApplied().String())
	s.Empty(infos.Pending())
	s.NoError(uc.Validate(s.Ctx))

	err = s.Pool.Conn(s.Ctx, func(ctx context.Context, c repo.Conn) error {
		n, err := c.Exec(ctx, "UPDATE app.users SET id = 2 WHERE id = 1")
		s.Equal(int64(1), n)
		return err
	})
	s.Require().NoError(err, "firing the trigger")
}

func (s *IntegrationPostgresTestSuite) TestConcurrentMigrate() {
	const n = 4
	err := s.Pool.Conn(s.Ctx, func(ctx context.Context, c repo.Conn) error {
		_, err := c.Exec(ctx, "CREATE SCHEMA app")
		return err
	})
	s.Require().NoError(err, "creating app schema")
	var wg sync.WaitGroup
	results := make([]*migrationuc.Result, n)
	errs := make([]error, n)
	for i := range n {
		uc := s.useCase()
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = uc.Migrate(s.Ctx)
		}()
	}
	wg.Wait()
	applied := 0
	for i := range n {
		s.Require().NoError(errs[i], "Migrate #%d", i)
		applied += len(results[i].Migrations)
	}
	s.Equal(4, applied, "each migration must be applied once")
}

func (s *IntegrationPostgresTestSuite) TestClean() {
	uc := s.useCase(migrationuc.WithCleanEnabled(true))
	_, err := uc.Migrate(s.Ctx)
	s.Require().NoError(err, "Migrate")
	s.Require().NoError(uc.Clean(s.Ctx), "Clean")
	infos, err := uc.Info(s.Ctx)
	s.Require().NoError(err, "Info")
	s.Empty(infos.Applied())
	s.Equal(model.EmptyVersion, infos.LastApplied())
}

package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/momeni/sqlmig/pkg/adapter/db/registry"
	"github.com/momeni/sqlmig/pkg/adapter/db/sqlite"
	"github.com/momeni/sqlmig/pkg/core/cerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltInDialects(t *testing.T) {
	r := registry.New()
	assert.Equal(t, []string{"db2z", "postgres", "sqlite"}, r.IDs())
	for _, id := range []string{"postgres", "sqlite"} {
		d, err := r.Dialect(id, registry.Settings{})
		require.NoError(t, err)
		assert.Equal(t, id, d.Name())
		assert.True(t, r.HasDriver(id))
	}
	d, err := r.Dialect("db2z", registry.Settings{Database: "APPDB"})
	require.NoError(t, err)
	assert.Equal(t, "db2z", d.Name())
	assert.False(t, r.HasDriver("db2z"))
}

func TestConfigurationErrors(t *testing.T) {
	r := registry.New()
	var ce *cerr.ConfigurationError
	_, err := r.Dialect("oracle", registry.Settings{})
	assert.True(t, errors.As(err, &ce), "unknown dialect: %v", err)
	_, err = r.Dialect("db2z", registry.Settings{})
	assert.True(t, errors.As(err, &ce), "missing database: %v", err)
	_, err = r.Connect(context.Background(), "db2z", "db2://x")
	assert.True(t, errors.As(err, &ce), "no driver: %v", err)
}

func TestRegister(t *testing.T) {
	r := registry.New()
	lite := func(registry.Settings) (registry.Dialect, error) {
		return sqlite.NewDialect(), nil
	}
	assert.Error(t, r.Register("sqlite", registry.Entry{NewDialect: lite}))
	assert.Error(t, r.Register("embedded", registry.Entry{}))
	require.NoError(t, r.Register("embedded", registry.Entry{NewDialect: lite}))
	d, err := r.Dialect("embedded", registry.Settings{})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())
	assert.False(t, r.HasDriver("embedded"))
}

func TestConnectSQLite(t *testing.T) {
	r := registry.New()
	ctx := context.Background()
	p, err := r.Connect(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

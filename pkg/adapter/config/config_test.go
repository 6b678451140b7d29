package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/momeni/sqlmig/pkg/adapter/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("SQLMIG_DATABASE_URL", "")
	c, err := config.Load(write(t, "sqlmig.toml", `
[versions]
config = "1.0.0"

[database]
dialect = "sqlite"
url = ":memory:"
`))
	require.NoError(t, err, "loading toml file")
	assert.Equal(t, ":memory:", c.Database.URL)

	c, err = config.Load(write(t, "sqlmig.yaml", `
versions:
  config: 1.0.0
database:
  dialect: postgres
  host: localhost
  name: app
`))
	require.NoError(t, err, "loading yaml file")
	assert.Equal(t, "localhost", c.Database.Host)

	_, err = config.Load(write(t, "sqlmig.yml", `
versions:
  config: 2.0.0
`))
	assert.ErrorContains(t, err, "unexpected config version: 2.0.0")

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

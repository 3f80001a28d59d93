package restql

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/restql/dialect"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "restql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
dialect: postgres
dsn: postgres://localhost/app
default_limit: 50
soft_delete: deleted_at
slow_query_threshold: 200ms
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, dialect.Postgres, cfg.Dialect)
	assert.Equal(t, "postgres://localhost/app", cfg.DSN)
	assert.Equal(t, 50, cfg.DefaultLimit)
	assert.Equal(t, "deleted_at", cfg.SoftDelete)
	assert.Equal(t, "200ms", cfg.SlowQueryThreshold.String())
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "dialect: sqlite\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimitFallback, cfg.DefaultLimit)
	assert.Empty(t, cfg.SoftDelete)
	assert.Zero(t, cfg.SlowQueryThreshold)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("RESTQL_DIALECT", dialect.MySQL)
	t.Setenv("RESTQL_DSN", "user:pass@/app")
	t.Setenv("RESTQL_DEFAULT_LIMIT", "15")

	path := writeConfig(t, t.TempDir(), `
dialect: postgres
dsn: postgres://localhost/app
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, dialect.MySQL, cfg.Dialect)
	assert.Equal(t, "user:pass@/app", cfg.DSN)
	assert.Equal(t, 15, cfg.DefaultLimit)
}

func TestLoadConfigDotEnv(t *testing.T) {
	// Registers cleanup restoring the original value, then clears it so
	// the .env entry is not shadowed.
	t.Setenv("RESTQL_DSN", "")
	os.Unsetenv("RESTQL_DSN")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("RESTQL_DSN=sqlite://file.db\n"), 0o600))
	path := writeConfig(t, dir, "dialect: sqlite\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite://file.db", cfg.DSN)
}

func TestLoadConfigMissingDialect(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "dsn: postgres://localhost/app\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dialect")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "dialect: [unterminated\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":9090", cfg.GRPCAddr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "./data/facegate.db", cfg.Store.SQLitePath)
	assert.Equal(t, 128, cfg.Matcher.Dimension)
	assert.Equal(t, 0.6, cfg.Matcher.Tolerance)
	assert.Equal(t, 3, cfg.Matcher.MinAccessLevel)
	assert.Equal(t, 5*time.Second, cfg.Matcher.ScanTimeout)
	assert.Equal(t, 10*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, 30, cfg.Evidence.RetentionDays)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "facegate", cfg.Auth.Issuer)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Log.Compress)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facegate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: prod
store:
  driver: postgres
  postgres_url: postgres://file
matcher:
  tolerance: 0.45
  scan_timeout: 250ms
auth:
  signing_key: from-file
`), 0o600))

	t.Setenv("FACEGATE_STORE_POSTGRES_URL", "postgres://env")
	t.Setenv("FACEGATE_MATCHER_MIN_ACCESS_LEVEL", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://env", cfg.Store.PostgresURL)
	assert.Equal(t, 0.45, cfg.Matcher.Tolerance)
	assert.Equal(t, 250*time.Millisecond, cfg.Matcher.ScanTimeout)
	assert.Equal(t, 5, cfg.Matcher.MinAccessLevel)
	assert.Equal(t, "from-file", cfg.Auth.SigningKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoad_UnknownEnvFallsBackToDev(t *testing.T) {
	t.Setenv("FACEGATE_ENV", "staging")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Store.Driver = "mysql"
	cfg.Matcher.Dimension = 0
	cfg.Matcher.Tolerance = -0.1
	cfg.Auth.SigningKey = ""
	cfg.Log.Format = "xml"

	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"store.driver", "matcher.dimension", "matcher.tolerance", "auth.signing_key", "log.format"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_AuthDisabledNeedsNoKey(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Auth.Enabled = false
	assert.NoError(t, cfg.Validate())
}

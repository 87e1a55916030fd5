package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestEnvKey(t *testing.T) {
	cases := map[string]string{
		"DATABASE_URL":                 "store.database_url",
		"PORT":                         "server.port",
		"JWT_SECRET":                   "auth.jwt_secret",
		"LIBRA_SERVER_PORT":            "server.port",
		"LIBRA_STORE_DRIVER":           "store.driver",
		"LIBRA_BREAKER_FAILURE_RATIO":  "breaker.failure_ratio",
		"LIBRA_DISCOVERY_SEARCH_LIMIT": "discovery.search_limit",
		"LIBRA_UNKNOWN_FIELD":          "",
		"LIBRA_SERVER":                 "",
		"HOME":                         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestLoadAppliesEnvironment(t *testing.T) {
	t.Setenv(PathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("LIBRA_SERVER_PORT", "9090")
	t.Setenv("LIBRA_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/lib?sslmode=disable")
	t.Setenv("LIBRA_SERVER_READ_TIMEOUT", "3s")
	t.Setenv("LIBRA_BREAKER_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "postgres://u:p@db:5432/lib?sslmode=disable", cfg.Store.DatabaseURL)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.Breaker.Enabled)
	assert.Equal(t, 1000, cfg.Discovery.SearchLimit, "untouched defaults survive")
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: memory
  fixture_path: testdata/library.json
discovery:
  search_limit: 50
logging:
  level: debug
  format: console
`), 0o600))
	t.Setenv(PathEnvVar, path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "testdata/library.json", cfg.Store.FixturePath)
	assert.Equal(t, 50, cfg.Discovery.SearchLimit)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv(PathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("LIBRA_STORE_DRIVER", "mongo")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRequiresDatabaseURLForPostgres(t *testing.T) {
	cfg := Default()
	cfg.Store.DatabaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg.Store.Driver = "memory"
	assert.NoError(t, cfg.Validate())
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/ledger", cfg.Ledger.Dir)
	assert.Equal(t, "data/runs", cfg.Ledger.RunsDir)
	assert.Equal(t, "jsonfile", cfg.Cache.Driver)
	assert.Equal(t, "data/cache", cfg.Cache.Dir)
	assert.Equal(t, "https://places.googleapis.com/v1", cfg.Google.BaseURL)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, 2000, cfg.Anthropic.MaxTokens)
	assert.Equal(t, 5, cfg.Enrich.Concurrency)
	assert.InDelta(t, 2.0, cfg.Enrich.RequestsPerSecond, 0.001)
	assert.Equal(t, 4000, cfg.Enrich.MaxContentLength)
	assert.Equal(t, "Surfbreak PXM", cfg.Venue.Name)
	assert.InDelta(t, 15.8427193, cfg.Venue.Latitude, 1e-7)
	assert.InDelta(t, -97.0480236, cfg.Venue.Longitude, 1e-7)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
cache:
  driver: sqlite
log:
  level: debug
  format: console
server:
  port: 9090
enrich:
  concurrency: 10
venue:
  name: Casa Test
  latitude: 20.5
  longitude: -87.1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Enrich.Concurrency)
	assert.Equal(t, "Casa Test", cfg.Venue.Name)
	assert.InDelta(t, 20.5, cfg.Venue.Latitude, 1e-9)
	// Defaults still apply for unset values
	assert.Equal(t, "data/ledger", cfg.Ledger.Dir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
cache:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RETREAT_CACHE_DRIVER", "jsonfile")
	t.Setenv("RETREAT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "jsonfile", cfg.Cache.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("RETREAT_SERVER_PORT", "3000")
	t.Setenv("RETREAT_GOOGLE_KEY", "g-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "g-key", cfg.Google.Key)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Ledger.Dir = "data/ledger"
	cfg.Cache.Driver = "jsonfile"
	cfg.Cache.Dir = "data/cache"
	cfg.Enrich.Concurrency = 5
	cfg.Enrich.RequestsPerSecond = 2
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateEnrich(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("enrich"))

	cfg.Enrich.Concurrency = 0
	cfg.Cache.Driver = "redis"
	err := cfg.Validate("enrich")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enrich.concurrency must be between 1 and 50")
	assert.Contains(t, err.Error(), `cache.driver "redis"`)

	cfg = validDefaults()
	cfg.Enrich.Concurrency = 51
	assert.Error(t, cfg.Validate("enrich"))
	cfg.Enrich.Concurrency = 50
	assert.NoError(t, cfg.Validate("enrich"))
}

func TestValidateCredentials(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("places")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "google.key is required")

	err = cfg.Validate("classify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	err = cfg.Validate("notion")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion.token is required")
	assert.Contains(t, err.Error(), "notion.lead_db is required")

	err = cfg.Validate("salesforce")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "salesforce.client_id is required")

	cfg.Google.Key = "g"
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Notion.Token = "ntn_token"
	cfg.Notion.LeadDB = "lead-db-id"
	cfg.Salesforce.ClientID = "cid"
	cfg.Salesforce.Username = "ops@example.com"
	cfg.Salesforce.KeyPath = "/keys/sf.pem"
	for _, mode := range []string{"places", "classify", "notion", "salesforce", "ingest", "analyze", "lookup"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateMissingLedgerDir(t *testing.T) {
	cfg := validDefaults()
	cfg.Ledger.Dir = " "

	err := cfg.Validate("ingest")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ledger.dir is required")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

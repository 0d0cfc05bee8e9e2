package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"langhub.io/internal/auth"
)

// chdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "langhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	sys := cfg.System()
	assert.Equal(t, auth.DistributionCloud, sys.Distribution)
	assert.False(t, sys.AutoTranslateProviderConfigured)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeFile(t, `
distribution: self-hosted
auto_translate:
  provider: deepl
  api_key: secret
http:
  addr: ":9000"
auth:
  token_secret: from-file
  token_ttl: 30m
`)
	t.Setenv("LANGHUB_TOKEN_SECRET", "from-env")
	t.Setenv("LANGHUB_RATE_LIMIT_BURST", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "from-env", cfg.Auth.TokenSecret)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 7, cfg.RateLimit.Burst)
	assert.Equal(t, auth.SystemConfiguration{
		Distribution:                    auth.DistributionSelfHosted,
		AutoTranslateProviderConfigured: true,
	}, cfg.System())
}

func TestLoadUsesEnvPathAndDotenv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := writeFile(t, "distribution: cloud\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LANGHUB_HTTP_ADDR=:7070\n"), 0o600))
	t.Setenv("LANGHUB_CONFIG", path)
	t.Cleanup(func() { os.Unsetenv("LANGHUB_HTTP_ADDR") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
}

func TestProviderWithoutKeyIsNotConfigured(t *testing.T) {
	cfg := Default()
	cfg.AutoTranslate.Provider = "deepl"
	assert.False(t, cfg.System().AutoTranslateProviderConfigured)
	assert.ErrorContains(t, cfg.Validate(), "auto_translate.api_key")
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := Default()
	cfg.Distribution = "on-prem"
	cfg.HTTP.Addr = ""
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrInvalidInput)
	assert.ErrorContains(t, err, "http.addr is required")
	assert.ErrorContains(t, err, `log.level "loud"`)
}

func TestApplyEnvReportsMalformedValues(t *testing.T) {
	env := map[string]string{
		"LANGHUB_TOKEN_TTL":         "soon",
		"LANGHUB_PG_MAX_OPEN_CONNS": "many",
		"LANGHUB_HTTP_TRUST_PROXY":  "maybe",
	}
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "LANGHUB_TOKEN_TTL")
	assert.ErrorContains(t, err, "LANGHUB_PG_MAX_OPEN_CONNS")
	assert.ErrorContains(t, err, "LANGHUB_HTTP_TRUST_PROXY")
	assert.False(t, cfg.HTTP.TrustProxy)
}

func TestTrustProxyFromEnv(t *testing.T) {
	cfg := Default()
	require.False(t, cfg.HTTP.TrustProxy)
	err := cfg.applyEnv(func(k string) (string, bool) {
		if k == "LANGHUB_HTTP_TRUST_PROXY" {
			return " true ", true
		}
		return "", false
	})
	require.NoError(t, err)
	assert.True(t, cfg.HTTP.TrustProxy)
}

func TestLoadMissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

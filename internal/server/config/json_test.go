package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseJson_SourcesAndPrecedence(t *testing.T) {
	path := writeTempJSON(t, `{
		"endpoint_addr_http": ":9000",
		"database_dsn": "postgres://json",
		"secret_key": "json-secret",
		"token_validity_duration": "15m",
		"allowed_origins": ["http://ui"],
		"s3_bucket": "snapshots"
	}`)

	t.Run("loads from json", func(t *testing.T) {
		cfg, err := LoadConfig([]string{"-config", path})
		require.NoError(t, err)

		assert.Equal(t, ":9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, ":50051", cfg.EndpointAddrGRPC, "absent keys keep defaults")
		assert.Equal(t, "postgres://json", cfg.DatabaseDSN)
		assert.Equal(t, "json-secret", cfg.SecretKey)
		assert.Equal(t, 15*time.Minute, cfg.TokenValidityDuration)
		assert.Equal(t, []string{"http://ui"}, cfg.AllowedOrigins)
		assert.Equal(t, "snapshots", cfg.S3Bucket)
	})

	t.Run("flags beat json", func(t *testing.T) {
		cfg, err := LoadConfig([]string{"-c", path, "-a", ":7000", "-t", "2"})
		require.NoError(t, err)

		assert.Equal(t, ":7000", cfg.EndpointAddrHTTP)
		assert.Equal(t, 2*time.Minute, cfg.TokenValidityDuration)
		assert.Equal(t, "postgres://json", cfg.DatabaseDSN)
	})

	t.Run("no config flag", func(t *testing.T) {
		cfg := &Config{EndpointAddrHTTP: "keep"}
		require.NoError(t, parseJson(cfg, nil))
		assert.Equal(t, "keep", cfg.EndpointAddrHTTP)
	})
}

func TestParseJson_Errors(t *testing.T) {
	_, err := LoadConfig([]string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	require.Error(t, err)

	_, err = LoadConfig([]string{"-c", writeTempJSON(t, `{"token_validity_duration": true}`)})
	require.Error(t, err)
}

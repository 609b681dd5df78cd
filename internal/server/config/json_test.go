package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"http_addr":                       "www.example:9000",
		"public_base_url":                 "https://hooks.example",
		"database_dsn":                    "postgres://db",
		"secret_key":                      "my_secret_key",
		"access_token_validity_duration":  "1m",
		"refresh_token_validity_duration": "3m",
		"s3_bucket":                       "bucket",
		"google_client_id":                "client.apps.googleusercontent.com",
		"redis_addr":                      "redis:6379",
		"redis_db":                        2,
		"delivery_cache_ttl":              "2h",
		"fal_webhook_secret":              "fal-secret",
		"replicate_webhook_secret":        "whsec_c2VjcmV0",
		"webhook_tolerance":               60000000000,
		"admin_emails":                    []string{"root@example.com"},
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
		assert.Equal(t, "https://hooks.example", cfg.PublicBaseURL)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 1*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 3*time.Minute, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "client.apps.googleusercontent.com", cfg.GoogleClientID)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, 2, cfg.RedisDB)
		assert.Equal(t, 2*time.Hour, cfg.DeliveryCacheTTL)
		assert.Equal(t, "fal-secret", cfg.FalWebhookSecret)
		assert.Equal(t, "whsec_c2VjcmV0", cfg.ReplicateWebhookSecret)
		assert.Equal(t, time.Minute, cfg.WebhookTolerance)
		assert.Equal(t, []string{"root@example.com"}, cfg.AdminEmails)

		// untouched keys keep their defaults
		assert.Equal(t, "us-east-1", cfg.S3Region)
		assert.Equal(t, "https://queue.fal.run", cfg.FalBaseURL)
	})

	t.Run("no config flag leaves config unchanged", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{HTTPAddr: "defaults:1234", SecretKey: "key", AccessTokenValidityDuration: 2 * time.Minute}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, 2*time.Minute, cfg.AccessTokenValidityDuration)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "absent.json")}

		require.Panics(t, func() { parseJson(&Config{}) })
	})
}

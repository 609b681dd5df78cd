package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-w", "https://api.example.com", "-d", "db", "-s", "secret",
			"-t", "1", "-r", "3", "-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
			"-k", "pricing.yaml", "-l", "zap", "-m", "redis:6379",
		}, expected: &Config{
			HTTPAddr:                     "127.0.0.1:9090",
			PublicBaseURL:                "https://api.example.com",
			DatabaseDSN:                  "db",
			SecretKey:                    "secret",
			AccessTokenValidityDuration:  1 * time.Minute,
			RefreshTokenValidityDuration: 3 * time.Minute,
			S3RootUser:                   "user",
			S3RootPassword:               "password",
			S3Bucket:                     "bucket",
			S3Region:                     "us-west-1",
			S3BaseEndpoint:               "http://endpoint",
			PricingFile:                  "pricing.yaml",
			LogBackend:                   "zap",
			RedisAddr:                    "redis:6379",
		}},
		{name: "unknown flags are filtered out", args: []string{"cmd", "-x", "1", "-t", "2"},
			expected: &Config{AccessTokenValidityDuration: 2 * time.Minute}},
		{name: "non-numeric duration panics", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}

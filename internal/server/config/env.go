package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/photoforge/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv loads the dotenv file named by -env (or ./.env when present) into
// the process environment and overlays every set variable onto config.
// Variables already present in the environment win over the file.
func parseEnv(config *Config) error {
	if err := loadDotenv(flagx.EnvFileFlags()); err != nil {
		return err
	}

	envString("HTTP_ADDR", &config.HTTPAddr)
	envString("PUBLIC_BASE_URL", &config.PublicBaseURL)
	envString("DATABASE_DSN", &config.DatabaseDSN)
	envString("SECRET_KEY", &config.SecretKey)
	envString("S3_ROOT_USER", &config.S3RootUser)
	envString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	envString("S3_BUCKET", &config.S3Bucket)
	envString("S3_REGION", &config.S3Region)
	envString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	envString("GOOGLE_CLIENT_ID", &config.GoogleClientID)
	envString("REDIS_ADDR", &config.RedisAddr)
	envString("REDIS_PASSWORD", &config.RedisPassword)
	envString("FAL_KEY", &config.FalKey)
	envString("FAL_BASE_URL", &config.FalBaseURL)
	envString("FAL_WEBHOOK_SECRET", &config.FalWebhookSecret)
	envString("REPLICATE_API_TOKEN", &config.ReplicateToken)
	envString("REPLICATE_BASE_URL", &config.ReplicateBaseURL)
	envString("REPLICATE_WEBHOOK_SECRET", &config.ReplicateWebhookSecret)
	envString("PRICING_FILE", &config.PricingFile)
	envString("LOG_BACKEND", &config.LogBackend)

	if v, ok := os.LookupEnv("ADMIN_EMAILS"); ok && v != "" {
		config.AdminEmails = splitList(v)
	}

	if v, ok := os.LookupEnv("REDIS_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		config.RedisDB = db
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration},
		{"REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration},
		{"S3_PRESIGN_TTL", &config.S3PresignValidityDuration},
		{"DELIVERY_CACHE_TTL", &config.DeliveryCacheTTL},
		{"WEBHOOK_TOLERANCE", &config.WebhookTolerance},
		{"SHUTDOWN_TIMEOUT", &config.ShutdownTimeout},
	}
	for _, d := range durations {
		if err := envDuration(d.key, d.dst); err != nil {
			return err
		}
	}

	return nil
}

func loadDotenv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %q (%w)", key, v, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/photoforge/internal/flagx"
	"github.com/dmitrijs2005/photoforge/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file. Duration
// fields accept "1m" style strings or integer nanoseconds. Zero values leave
// the corresponding Config field untouched.
type JsonConfig struct {
	HTTPAddr                     string         `json:"http_addr"`
	PublicBaseURL                string         `json:"public_base_url"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	S3PresignValidityDuration    timex.Duration `json:"s3_presign_validity_duration"`
	GoogleClientID               string         `json:"google_client_id"`
	RedisAddr                    string         `json:"redis_addr"`
	RedisPassword                string         `json:"redis_password"`
	RedisDB                      int            `json:"redis_db"`
	DeliveryCacheTTL             timex.Duration `json:"delivery_cache_ttl"`
	FalKey                       string         `json:"fal_key"`
	FalBaseURL                   string         `json:"fal_base_url"`
	FalWebhookSecret             string         `json:"fal_webhook_secret"`
	ReplicateToken               string         `json:"replicate_token"`
	ReplicateBaseURL             string         `json:"replicate_base_url"`
	ReplicateWebhookSecret       string         `json:"replicate_webhook_secret"`
	WebhookTolerance             timex.Duration `json:"webhook_tolerance"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout"`
	PricingFile                  string         `json:"pricing_file"`
	LogBackend                   string         `json:"log_backend"`
	AdminEmails                  []string       `json:"admin_emails"`
}

// parseJson overlays values from the JSON file named by -c/-config onto
// config. Without the flag nothing is loaded. An unreadable or malformed
// file panics, as a half-applied config is worse than none.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setDuration(&config.S3PresignValidityDuration, c.S3PresignValidityDuration)
	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != 0 {
		config.RedisDB = c.RedisDB
	}
	setDuration(&config.DeliveryCacheTTL, c.DeliveryCacheTTL)
	setString(&config.FalKey, c.FalKey)
	setString(&config.FalBaseURL, c.FalBaseURL)
	setString(&config.FalWebhookSecret, c.FalWebhookSecret)
	setString(&config.ReplicateToken, c.ReplicateToken)
	setString(&config.ReplicateBaseURL, c.ReplicateBaseURL)
	setString(&config.ReplicateWebhookSecret, c.ReplicateWebhookSecret)
	setDuration(&config.WebhookTolerance, c.WebhookTolerance)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	setString(&config.PricingFile, c.PricingFile)
	setString(&config.LogBackend, c.LogBackend)
	if len(c.AdminEmails) > 0 {
		config.AdminEmails = c.AdminEmails
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}

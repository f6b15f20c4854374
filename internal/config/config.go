// Package config loads Breeze's runtime configuration in layers —
// defaults, an optional YAML file, then environment variables — using
// koanf, replacing the flag-only configuration the control plane's
// teacher repo used for its single-binary local mode.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default timeout values, mirroring spec.md §9's per-request deadline
// guidance; unlike the teacher's DB-sourced timeout.Config these are
// fixed at process start from the environment, never hot-reloaded from
// a settings row.
const (
	DefaultAPITimeout       = 10 * time.Second
	DefaultAgentIdleTimeout = 90 * time.Second
	DefaultShutdownDrain    = 10 * time.Second
)

// Config is Breeze's full runtime configuration, populated from
// spec.md §6's environment table.
type Config struct {
	Addr     string // HTTP listen address, e.g. ":8443"
	LogLevel string

	DatabaseURL string
	RedisURL    string
	RedisDB     int

	JWTSecret         string
	JWTSecretPrevious string
	JWTIssuer         string

	AppEncryptionKey       string // 32-byte raw key; Validate rejects any other length
	MFAEncryptionKey       string // 32-byte key; encrypts TOTP seeds at rest
	EnrollmentKeyPepper    string
	MFARecoveryCodePepper  string
	AgentEnrollmentSecret  string

	ForceHTTPS        bool
	MetricsScrapeToken string

	CloudflareAPIToken string
	CloudflareZoneID   string

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	APITimeout       time.Duration
	AgentIdleTimeout time.Duration
	ShutdownDrain    time.Duration
}

// defaults seeds every non-zero default so a minimal environment
// (just DATABASE_URL/REDIS_URL/secrets) still produces a usable config.
func defaults() map[string]any {
	return map[string]any{
		"addr":      ":8443",
		"log_level": "info",
		"jwt_issuer": "breeze",
		"redis_db":  0,
		"force_https": true,
		"api_timeout_seconds":        int(DefaultAPITimeout / time.Second),
		"agent_idle_timeout_seconds": int(DefaultAgentIdleTimeout / time.Second),
		"shutdown_drain_seconds":     int(DefaultShutdownDrain / time.Second),
	}
}

// Load builds a Config from, in increasing precedence: built-in
// defaults, an optional YAML file at path (skipped silently if path is
// empty or the file does not exist), and BREEZE_-prefixed environment
// variables (BREEZE_DATABASE_URL, BREEZE_JWT_SECRET, ...).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	envProvider := env.Provider("BREEZE_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "BREEZE_")
		return strings.ToLower(s)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{
		Addr:     k.String("addr"),
		LogLevel: k.String("log_level"),

		DatabaseURL: k.String("database_url"),
		RedisURL:    k.String("redis_url"),
		RedisDB:     k.Int("redis_db"),

		JWTSecret:         k.String("jwt_secret"),
		JWTSecretPrevious: k.String("jwt_secret_previous"),
		JWTIssuer:         k.String("jwt_issuer"),

		AppEncryptionKey:      k.String("app_encryption_key"),
		MFAEncryptionKey:      k.String("mfa_encryption_key"),
		EnrollmentKeyPepper:   k.String("enrollment_key_pepper"),
		MFARecoveryCodePepper: k.String("mfa_recovery_code_pepper"),
		AgentEnrollmentSecret: k.String("agent_enrollment_secret"),

		ForceHTTPS:         k.Bool("force_https"),
		MetricsScrapeToken: k.String("metrics_scrape_token"),

		CloudflareAPIToken: k.String("cloudflare_api_token"),
		CloudflareZoneID:   k.String("cloudflare_zone_id"),

		S3Bucket:          k.String("s3_bucket"),
		S3Region:          k.String("s3_region"),
		S3Endpoint:        k.String("s3_endpoint"),
		S3AccessKeyID:     k.String("s3_access_key_id"),
		S3SecretAccessKey: k.String("s3_secret_access_key"),

		APITimeout:       time.Duration(k.Int("api_timeout_seconds")) * time.Second,
		AgentIdleTimeout: time.Duration(k.Int("agent_idle_timeout_seconds")) * time.Second,
		ShutdownDrain:    time.Duration(k.Int("shutdown_drain_seconds")) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every setting required to run the control
// plane safely is present. It does not create any filesystem state —
// unlike the teacher's Config.Validate, Breeze owns no local data
// directory; Postgres and Redis are the only stateful dependencies.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("BREEZE_DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("BREEZE_REDIS_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("BREEZE_JWT_SECRET is required")
	}
	if len(c.AppEncryptionKey) != 32 {
		return fmt.Errorf("BREEZE_APP_ENCRYPTION_KEY must be exactly 32 bytes")
	}
	if len(c.MFAEncryptionKey) != 32 {
		return fmt.Errorf("BREEZE_MFA_ENCRYPTION_KEY must be exactly 32 bytes")
	}
	if c.EnrollmentKeyPepper == "" {
		return fmt.Errorf("BREEZE_ENROLLMENT_KEY_PEPPER is required")
	}
	if c.MFARecoveryCodePepper == "" {
		return fmt.Errorf("BREEZE_MFA_RECOVERY_CODE_PEPPER is required")
	}
	return nil
}

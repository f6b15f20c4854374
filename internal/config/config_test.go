package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	env := map[string]string{
		"BREEZE_DATABASE_URL":           "postgres://localhost/breeze",
		"BREEZE_REDIS_URL":              "localhost:6379",
		"BREEZE_JWT_SECRET":             "test-secret",
		"BREEZE_APP_ENCRYPTION_KEY":     "01234567890123456789012345678901",
		"BREEZE_MFA_ENCRYPTION_KEY":     "01234567890123456789012345678901",
		"BREEZE_ENROLLMENT_KEY_PEPPER":  "pepper",
		"BREEZE_MFA_RECOVERY_CODE_PEPPER": "pepper2",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8443", cfg.Addr)
	assert.Equal(t, "breeze", cfg.JWTIssuer)
	assert.True(t, cfg.ForceHTTPS)
	assert.Equal(t, DefaultAPITimeout, cfg.APITimeout)
}

func TestLoad_MissingRequired(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate_RejectsShortKeys(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BREEZE_APP_ENCRYPTION_KEY", "tooshort")

	_, err := Load("")
	assert.ErrorContains(t, err, "32 bytes")
}

package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/mail")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_RequiredDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}

func TestLoad_RequiredJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/mail")
	os.Unsetenv("JWT_SECRET")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, "localhost", cfg.SMTPDomain)
	assert.True(t, cfg.SMTPIntakeEnabled)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 10.0, cfg.RateLimitRequests)
	assert.Equal(t, 20, cfg.RateLimitBurst)
}

func TestLoad_ParsesOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("SMTP_INTAKE_ENABLED", "false")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("ALLOWED_ORIGINS", "https://mairie.example.fr, https://admin.example.fr")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.APIPort)
	assert.False(t, cfg.SMTPIntakeEnabled)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"https://mairie.example.fr", "https://admin.example.fr"}, cfg.AllowedOrigins)
}

func TestLoad_InvalidPort(t *testing.T) {
	setRequired(t)
	t.Setenv("API_PORT", "not-a-port")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_PortRange(t *testing.T) {
	cfg := &Config{
		DatabaseURL: "postgres://localhost/mail",
		JWTSecret:   "test-secret",
		APIPort:     70000,
		SMTPPort:    2525,
		SessionTTL:  time.Hour,
	}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "APIPort")
}

func TestValidateProduction_ShortJWTSecret(t *testing.T) {
	cfg := &Config{
		DatabaseURL:    "postgres://localhost/mail",
		JWTSecret:      "short",
		AllowedOrigins: []string{"https://mairie.example.fr"},
	}

	err := cfg.ValidateProduction()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidateProduction_RequiresAllowedOrigins(t *testing.T) {
	cfg := &Config{
		DatabaseURL: "postgres://localhost/mail",
		JWTSecret:   "0123456789abcdef0123456789abcdef",
	}

	err := cfg.ValidateProduction()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ALLOWED_ORIGINS is required")
}

func TestValidateProduction_RejectsWildcardOrigin(t *testing.T) {
	cfg := &Config{
		DatabaseURL:    "postgres://localhost/mail",
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		AllowedOrigins: []string{"*"},
	}

	err := cfg.ValidateProduction()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "wildcard")
}

func TestValidateProduction_RejectsDisabledSSL(t *testing.T) {
	cfg := &Config{
		DatabaseURL:    "postgres://localhost/mail?sslmode=disable",
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		AllowedOrigins: []string{"https://mairie.example.fr"},
	}

	err := cfg.ValidateProduction()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sslmode=disable")
}

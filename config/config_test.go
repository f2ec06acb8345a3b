package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TOKEN_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, "mongodb://localhost:27017/quizdesk", cfg.MongoURI)
	assert.Empty(t, cfg.RedisAddr, "redis is opt-in")
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL())
	assert.Equal(t, 168*time.Hour, cfg.RefreshTokenTTL())
	assert.Equal(t, 5*time.Minute, cfg.IdleThreshold())
	assert.Equal(t, time.Minute, cfg.SweepInterval())
}

func TestLoad_MissingSecretFailsStartup(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_SECRET")
}

func TestLoad_ShortSecretFailsStartup(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_SECRET")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TOKEN_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.HTTPPort)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.True(t, cfg.DevMode)
}

func TestValidate(t *testing.T) {
	base := Config{
		TokenSecret:         testSecret,
		AccessTokenTTLMin:   15,
		RefreshTokenTTLHour: 168,
		IdleThresholdSec:    300,
		SweepIntervalSec:    60,
	}
	require.NoError(t, base.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short secret", func(c *Config) { c.TokenSecret = strings.Repeat("x", 31) }},
		{"zero access ttl", func(c *Config) { c.AccessTokenTTLMin = 0 }},
		{"zero refresh ttl", func(c *Config) { c.RefreshTokenTTLHour = 0 }},
		{"zero idle threshold", func(c *Config) { c.IdleThresholdSec = 0 }},
		{"zero sweep interval", func(c *Config) { c.SweepIntervalSec = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCORSOriginList(t *testing.T) {
	cfg := Config{CORSOrigins: "http://localhost:3000, https://app.example.com ,"}
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.CORSOriginList())

	assert.Nil(t, (&Config{}).CORSOriginList())
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const minTokenSecretLen = 32

// Config holds all server configuration. Tags use mapstructure for
// viper unmarshalling; every key is also bound to the environment.
type Config struct {
	HTTPPort  string `mapstructure:"HTTP_PORT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`
	DevMode   bool   `mapstructure:"DEV_MODE"`

	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`

	// RedisAddr is optional: when empty the ephemeral cache runs on the
	// in-process backend from the start.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	TokenSecret         string `mapstructure:"TOKEN_SECRET"`
	AccessTokenTTLMin   int    `mapstructure:"ACCESS_TOKEN_TTL_MIN"`
	RefreshTokenTTLHour int    `mapstructure:"REFRESH_TOKEN_TTL_HOUR"`

	IdleThresholdSec int `mapstructure:"IDLE_THRESHOLD_SEC"`
	SweepIntervalSec int `mapstructure:"SWEEP_INTERVAL_SEC"`
	PingIntervalSec  int `mapstructure:"PING_INTERVAL_SEC"`
	PingTimeoutSec   int `mapstructure:"PING_TIMEOUT_SEC"`

	// CORSOrigins is a comma-separated allow-list.
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMin) * time.Minute
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLHour) * time.Hour
}

func (c *Config) IdleThreshold() time.Duration {
	return time.Duration(c.IdleThresholdSec) * time.Second
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSec) * time.Second
}

func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.PingIntervalSec) * time.Second
}

func (c *Config) PingTimeout() time.Duration {
	return time.Duration(c.PingTimeoutSec) * time.Second
}

func (c *Config) CORSOriginList() []string {
	if c.CORSOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// Load reads configuration from an optional config file, environment
// variables and defaults. The token secret is validated here: a missing
// or short secret is a hard startup failure, not a per-call error.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/quizdesk/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("DEV_MODE", false)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/quizdesk")
	v.SetDefault("MONGO_DB_NAME", "quizdesk")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TOKEN_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 15)
	v.SetDefault("REFRESH_TOKEN_TTL_HOUR", 168) // 7 days
	v.SetDefault("IDLE_THRESHOLD_SEC", 300)
	v.SetDefault("SWEEP_INTERVAL_SEC", 60)
	v.SetDefault("PING_INTERVAL_SEC", 25)
	v.SetDefault("PING_TIMEOUT_SEC", 60)
	v.SetDefault("CORS_ORIGINS", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate enforces the startup invariants.
func (c *Config) Validate() error {
	if len(c.TokenSecret) < minTokenSecretLen {
		return fmt.Errorf("TOKEN_SECRET must be at least %d characters, got %d", minTokenSecretLen, len(c.TokenSecret))
	}
	if c.AccessTokenTTLMin <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL_MIN must be positive")
	}
	if c.RefreshTokenTTLHour <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL_HOUR must be positive")
	}
	if c.IdleThresholdSec <= 0 || c.SweepIntervalSec <= 0 {
		return fmt.Errorf("idle threshold and sweep interval must be positive")
	}
	return nil
}

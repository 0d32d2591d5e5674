package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/loyaltyhub/points-ledger/internal/tier"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port           int    `envconfig:"PORT" default:"8080"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	Version        string `envconfig:"VERSION" default:"dev"`
	TierThresholds string `envconfig:"TIER_THRESHOLDS" default:""`
	EarnTTLDays    int    `envconfig:"EARN_TTL_DAYS" default:"365"`
	SweepInterval  int    `envconfig:"SWEEP_INTERVAL_HOURS" default:"24"`
	LockTimeoutMS  int    `envconfig:"LOCK_TIMEOUT_MS" default:"5000"`
	NATSURL        string `envconfig:"NATS_URL" default:""`
	AdminTokenHash string `envconfig:"ADMIN_TOKEN_HASH" default:""`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// TierDefinitions parses the configured tier ladder, falling back to the
// built-in defaults when TIER_THRESHOLDS is unset.
func (c *Config) TierDefinitions() ([]tier.Definition, error) {
	if c.TierThresholds == "" {
		return tier.DefaultDefinitions(), nil
	}
	return tier.ParseDefinitions(c.TierThresholds)
}

// EarnTTL returns the default earn expiry as a duration.
func (c *Config) EarnTTL() time.Duration {
	return time.Duration(c.EarnTTLDays) * 24 * time.Hour
}

// LockTimeout returns the per-member lock acquisition timeout.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMS) * time.Millisecond
}

// SweepEvery returns the interval between expiration sweeps.
func (c *Config) SweepEvery() time.Duration {
	return time.Duration(c.SweepInterval) * time.Hour
}

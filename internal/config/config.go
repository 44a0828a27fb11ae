// Package config loads runtime configuration. Values come from an
// optional YAML file with environment variables taking precedence, so
// a container deployment can run on env vars alone.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	// Vendor access.
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Regions string `yaml:"regions"`

	// Operator HTTP surface.
	ListenAddr string `yaml:"listen_addr"`

	// Backing services. An empty RedisAddr falls back to the in-memory
	// cache; an empty PostgresDSN falls back to the state file.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	StatePath     string `yaml:"state_path"`

	// Calendar boundaries are evaluated in this zone.
	Timezone string `yaml:"timezone"`

	// Quota budget.
	DailyQuota   int `yaml:"daily_quota"`
	MonthlyLimit int `yaml:"monthly_limit"`

	// Emergency governor thresholds.
	EmergencyThreshold   int           `yaml:"emergency_threshold"`
	CriticalThreshold    int           `yaml:"critical_threshold"`
	EmergencyMinInterval time.Duration `yaml:"emergency_min_interval"`
	CriticalCooldown     time.Duration `yaml:"critical_cooldown"`

	// Scheduling.
	Tick        time.Duration `yaml:"tick"`
	MaxAttempts int           `yaml:"max_attempts"`
	BackoffBase time.Duration `yaml:"backoff_base"`

	// Cache and transport.
	OddsTTL     time.Duration `yaml:"odds_ttl"`
	CatalogTTL  time.Duration `yaml:"catalog_ttl"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	MinCallGap  time.Duration `yaml:"min_call_gap"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Regions:              "eu",
		ListenAddr:           ":8080",
		StatePath:            "moneta-state.json",
		DailyQuota:           16,
		MonthlyLimit:         500,
		EmergencyThreshold:   50,
		CriticalThreshold:    10,
		EmergencyMinInterval: 2 * time.Hour,
		CriticalCooldown:     24 * time.Hour,
		Tick:                 time.Minute,
		MaxAttempts:          3,
		BackoffBase:          2 * time.Second,
		OddsTTL:              24 * time.Hour,
		CatalogTTL:           72 * time.Hour,
		HTTPTimeout:          15 * time.Second,
		MinCallGap:           time.Second,
		LogLevel:             "info",
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// if non-empty, then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.APIKey, "MONETA_API_KEY", "ODDS_API_KEY")
	setString(&c.BaseURL, "MONETA_BASE_URL")
	setString(&c.Regions, "MONETA_REGIONS")
	setString(&c.ListenAddr, "MONETA_LISTEN_ADDR")
	setString(&c.RedisAddr, "MONETA_REDIS_ADDR", "REDIS_URL")
	setString(&c.RedisPassword, "MONETA_REDIS_PASSWORD", "REDIS_PASSWORD")
	setString(&c.PostgresDSN, "MONETA_POSTGRES_DSN")
	setString(&c.StatePath, "MONETA_STATE_PATH")
	setString(&c.Timezone, "MONETA_TIMEZONE")
	setString(&c.LogLevel, "MONETA_LOG_LEVEL")

	setInt(&c.DailyQuota, "MONETA_DAILY_QUOTA")
	setInt(&c.MonthlyLimit, "MONETA_MONTHLY_LIMIT")
	setInt(&c.EmergencyThreshold, "MONETA_EMERGENCY_THRESHOLD")
	setInt(&c.CriticalThreshold, "MONETA_CRITICAL_THRESHOLD")
	setInt(&c.MaxAttempts, "MONETA_MAX_ATTEMPTS")

	setDuration(&c.EmergencyMinInterval, "MONETA_EMERGENCY_MIN_INTERVAL")
	setDuration(&c.CriticalCooldown, "MONETA_CRITICAL_COOLDOWN")
	setDuration(&c.Tick, "MONETA_TICK")
	setDuration(&c.BackoffBase, "MONETA_BACKOFF_BASE")
	setDuration(&c.OddsTTL, "MONETA_ODDS_TTL")
	setDuration(&c.CatalogTTL, "MONETA_CATALOG_TTL")
	setDuration(&c.HTTPTimeout, "MONETA_HTTP_TIMEOUT")
	setDuration(&c.MinCallGap, "MONETA_MIN_CALL_GAP")
}

// Validate rejects configurations that would misbehave at runtime.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required (MONETA_API_KEY)")
	}
	if c.DailyQuota <= 0 {
		return fmt.Errorf("daily_quota must be positive, got %d", c.DailyQuota)
	}
	if c.MonthlyLimit < c.DailyQuota {
		return fmt.Errorf("monthly_limit %d is below daily_quota %d", c.MonthlyLimit, c.DailyQuota)
	}
	if c.CriticalThreshold >= c.EmergencyThreshold {
		return fmt.Errorf("critical_threshold %d must be below emergency_threshold %d",
			c.CriticalThreshold, c.EmergencyThreshold)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %v", c.Tick)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.StatePath == "" && c.PostgresDSN == "" {
		return fmt.Errorf("either state_path or postgres_dsn must be set")
	}
	return nil
}

// Location resolves the configured time zone. Empty means the process
// zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func setString(dst *string, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			*dst = v
			return
		}
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if parsed, err := strconv.Atoi(v); err == nil {
		*dst = parsed
	} else {
		fmt.Printf("⚠ Invalid %s '%s', keeping %d\n", key, v, *dst)
	}
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if parsed, err := time.ParseDuration(v); err == nil {
		*dst = parsed
	} else {
		fmt.Printf("⚠ Invalid %s '%s', keeping %v\n", key, v, *dst)
	}
}

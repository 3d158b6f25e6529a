package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Database   DatabaseConfig   `yaml:"database"`
	Slots      SlotsConfig      `yaml:"slots"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Coins      CoinsConfig      `yaml:"coins"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Logging    LoggingConfig    `yaml:"logging"`

	// Warnings collects problems Load recovered from, for logging once the
	// logger exists.
	Warnings []string `yaml:"-"`
}

// DisabledSchedule turns off a cron-driven job.
const DisabledSchedule = "-"

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// GatewayConfig describes how to reach the hardware device gateway.
type GatewayConfig struct {
	BaseURL        string        `yaml:"base_url"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
	HTTPProxy      string        `yaml:"http_proxy"`
	// MinConfidence rejects fingerprint matches scored below it; 0 disables the check.
	MinConfidence int `yaml:"min_confidence"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres, sqlite or mysql
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	SeedDenominations      bool   `yaml:"seed_denominations"`
}

// SlotsConfig holds the slot partition and sanitization timing.
type SlotsConfig struct {
	// Layout maps a profile name to a contiguous slot range such as "7-12".
	Layout               map[string]string `yaml:"layout"`
	SanitizeDwellSeconds int               `yaml:"sanitize_dwell_seconds"`
	SanitizeDwell        time.Duration     `yaml:"-"`
}

// SessionsConfig controls expiry of sessions whose paid time ran out.
type SessionsConfig struct {
	// AutoStopSetting is nil when auto_stop is absent, which enables it.
	AutoStopSetting      *bool         `yaml:"auto_stop"`
	AutoStop             bool          `yaml:"-"`
	SweepIntervalSeconds int           `yaml:"sweep_interval_seconds"`
	SweepInterval        time.Duration `yaml:"-"`
}

// CoinsConfig controls polling of the coin acceptor.
type CoinsConfig struct {
	PollEnabled         bool          `yaml:"poll_enabled"`
	PollIntervalSeconds int           `yaml:"poll_interval_seconds"`
	PollInterval        time.Duration `yaml:"-"`
	// Cron specs for resetting denomination usage counters; "-" disables one.
	DailyResetSpec   string `yaml:"daily_reset_spec"`
	MonthlyResetSpec string `yaml:"monthly_reset_spec"`
	YearlyResetSpec  string `yaml:"yearly_reset_spec"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// LoggingConfig selects log level, format and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DefaultLayout is the 16-slot partition used when none is configured.
func DefaultLayout() map[string]string {
	return map[string]string{
		"open":   "1-3",
		"secure": "4-6",
		"phone":  "7-12",
		"laptop": "13-16",
	}
}

// Load reads the configuration from the given path. Values from a .env file
// or the process environment override the file for the gateway URL and DSN.
func Load(path string) (*Config, error) {
	var warnings []string
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		warnings = append(warnings, fmt.Sprintf("could not read .env: %v", err))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	cfg.Warnings = warnings
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("KIOSK_GATEWAY_URL"); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := os.Getenv("KIOSK_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("KIOSK_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = "http://localhost:8000"
	}
	if cfg.Gateway.TimeoutSeconds <= 0 {
		cfg.Gateway.TimeoutSeconds = 10
	}
	cfg.Gateway.Timeout = time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if len(cfg.Slots.Layout) == 0 {
		cfg.Slots.Layout = DefaultLayout()
	}
	if cfg.Slots.SanitizeDwellSeconds <= 0 {
		cfg.Slots.SanitizeDwellSeconds = 15
	}
	cfg.Slots.SanitizeDwell = time.Duration(cfg.Slots.SanitizeDwellSeconds) * time.Second

	if cfg.Sessions.SweepIntervalSeconds <= 0 {
		cfg.Sessions.SweepIntervalSeconds = 30
	}
	cfg.Sessions.AutoStop = cfg.Sessions.AutoStopSetting == nil || *cfg.Sessions.AutoStopSetting
	cfg.Sessions.SweepInterval = time.Duration(cfg.Sessions.SweepIntervalSeconds) * time.Second

	if cfg.Coins.PollIntervalSeconds <= 0 {
		cfg.Coins.PollIntervalSeconds = 2
	}
	cfg.Coins.PollInterval = time.Duration(cfg.Coins.PollIntervalSeconds) * time.Second
	if cfg.Coins.DailyResetSpec == "" {
		cfg.Coins.DailyResetSpec = "0 0 * * *"
	}
	if cfg.Coins.MonthlyResetSpec == "" {
		cfg.Coins.MonthlyResetSpec = "0 0 1 * *"
	}
	if cfg.Coins.YearlyResetSpec == "" {
		cfg.Coins.YearlyResetSpec = "0 0 1 1 *"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.Warnings = append(cfg.Warnings, "worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

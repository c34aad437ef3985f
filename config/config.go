/*
Package config loads the server configuration.

SOURCES (later wins):
  1. .env in the working directory, if present (exported into the process)
  2. YAML file, with ${ENV_VAR} placeholders expanded
  3. Command-line flags, applied by cmd/server

Money values under pricing must be quoted strings so they decode as
decimals, never floats.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/carwash-backoffice/calendar"
	"github.com/warp/carwash-backoffice/notify"
	"github.com/warp/carwash-backoffice/pricing"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "configs/config.yaml"

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	// Timezone is the IANA name shift dates are computed in.
	Timezone string `yaml:"timezone"`

	Telegram struct {
		BotToken       string  `yaml:"bot_token"`
		RatePerSecond  float64 `yaml:"rate_per_second"`
		Burst          int     `yaml:"burst"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
	} `yaml:"telegram"`

	Redis struct {
		Address            string `yaml:"address"`
		Password           string `yaml:"password"`
		DB                 int    `yaml:"db"`
		SettingsTTLSeconds int    `yaml:"settings_ttl_seconds"`
	} `yaml:"redis"`

	Sheets struct {
		Enabled             bool   `yaml:"enabled"`
		CredentialsFile     string `yaml:"credentials_file"`
		SpreadsheetID       string `yaml:"spreadsheet_id"`
		SyncIntervalMinutes int    `yaml:"sync_interval_minutes"`
	} `yaml:"sheets"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`

	Pricing struct {
		Transfer pricing.TransferPrices `yaml:"transfer"`
	} `yaml:"pricing"`
}

// Load reads .env and the YAML file at path (DefaultPath when empty).
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${ENV_VAR} placeholders and fills defaults.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/carwash.db"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Moscow"
	}
	if c.Sheets.SyncIntervalMinutes <= 0 {
		c.Sheets.SyncIntervalMinutes = 60
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9090
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if _, err := calendar.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if c.Sheets.Enabled && (c.Sheets.CredentialsFile == "" || c.Sheets.SpreadsheetID == "") {
		return errors.New("sheets.enabled requires credentials_file and spreadsheet_id")
	}
	if c.Metrics.Enabled && c.Metrics.Port == c.Server.Port {
		return fmt.Errorf("metrics.port must differ from server.port (%d)", c.Server.Port)
	}
	t := c.Pricing.Transfer
	for _, p := range []struct {
		name  string
		price decimal.Decimal
	}{
		{"comfort_planned", t.ComfortPlanned},
		{"comfort_urgent", t.ComfortUrgent},
		{"business_planned", t.BusinessPlanned},
		{"business_urgent", t.BusinessUrgent},
		{"van_planned", t.VanPlanned},
		{"van_urgent", t.VanUrgent},
	} {
		if p.price.IsNegative() {
			return fmt.Errorf("pricing.transfer.%s is negative", p.name)
		}
	}
	return nil
}

// EnsureDataDir creates the directory of the database file.
func (c *Config) EnsureDataDir() error {
	if c.Database.Path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(c.Database.Path), 0o755)
}

// Location returns the configured timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := calendar.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Server.Port) }

func (c *Config) MetricsAddr() string { return fmt.Sprintf(":%d", c.Metrics.Port) }

func (c *Config) SettingsTTL() time.Duration {
	return time.Duration(c.Redis.SettingsTTLSeconds) * time.Second
}

func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Sheets.SyncIntervalMinutes) * time.Minute
}

// NotifyConfig maps the telegram section onto the sender config. Zero
// values are defaulted by the notify package.
func (c *Config) NotifyConfig() notify.Config {
	return notify.Config{
		Token:   c.Telegram.BotToken,
		Rate:    c.Telegram.RatePerSecond,
		Burst:   c.Telegram.Burst,
		Timeout: time.Duration(c.Telegram.TimeoutSeconds) * time.Second,
	}
}

// Package daemon holds the runtime configuration shared by the CLI and the
// HTTP server.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Config is the contents of ~/.pvplan/config.toml.
type Config struct {
	API        APIConfig        `toml:"api"`
	Metrics    MetricsConfig    `toml:"metrics"`
	License    LicenseConfig    `toml:"license"`
	Log        LogConfig        `toml:"log"`
	Simulation SimulationConfig `toml:"simulation"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Host           string  `toml:"host" validate:"required"`
	Port           int     `toml:"port" validate:"min=1,max=65535"`
	RequestTimeout string  `toml:"request_timeout"`
	RateLimitRPS   float64 `toml:"rate_limit_rps" validate:"gte=0"` // 0 = unlimited
	RateLimitBurst int     `toml:"rate_limit_burst" validate:"gte=0"`
}

// Addr returns host:port.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Timeout parses RequestTimeout, falling back to 30s.
func (c APIConfig) Timeout() time.Duration {
	return ParseDuration(c.RequestTimeout, 30*time.Second)
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// LicenseConfig configures the license registry.
type LicenseConfig struct {
	Enabled   bool   `toml:"enabled"`
	Database  string `toml:"database"` // relative paths resolve against Home()
	CacheSize int    `toml:"cache_size" validate:"gte=0"`
	CacheTTL  string `toml:"cache_ttl"`
}

// CacheDuration parses CacheTTL, falling back to 30s.
func (c LicenseConfig) CacheDuration() time.Duration {
	return ParseDuration(c.CacheTTL, 30*time.Second)
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level      string `toml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Env        string `toml:"env"`
	File       string `toml:"file"` // empty = stderr
	MaxSizeMB  int    `toml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `toml:"max_backups" validate:"gte=0"`
}

// SimulationConfig holds defaults for computations.
type SimulationConfig struct {
	DefaultPersonalVolume float64 `toml:"default_personal_volume" validate:"gte=0"`
	MaxDepth              int     `toml:"max_depth" validate:"gte=0"` // 0 = unlimited
	BatchWorkers          int     `toml:"batch_workers" validate:"gte=0,lte=256"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           8484,
			RequestTimeout: "30s",
			RateLimitRPS:   0,
			RateLimitBurst: 20,
		},
		Metrics: MetricsConfig{Enabled: true},
		License: LicenseConfig{
			Enabled:   false,
			Database:  "pvplan.db",
			CacheSize: 1024,
			CacheTTL:  "30s",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Simulation: SimulationConfig{
			DefaultPersonalVolume: 0,
			MaxDepth:              100,
			BatchWorkers:          4,
		},
	}
}

// Home returns $PVPLAN_HOME or ~/.pvplan.
func Home() string {
	if env := os.Getenv("PVPLAN_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pvplan")
}

// ConfigPath returns the default config file location.
func ConfigPath() string {
	return filepath.Join(Home(), "config.toml")
}

// LicenseDBPath resolves the license database path.
func (c Config) LicenseDBPath() string {
	if filepath.IsAbs(c.License.Database) {
		return c.License.Database
	}
	return filepath.Join(Home(), c.License.Database)
}

// Load reads the config at path. A missing file yields DefaultConfig.
// Keys absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = ConfigPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("decode config: %w", err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the config to path, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}

// fillDefaults replaces zero values that are never valid settings.
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.API.Host == "" {
		c.API.Host = def.API.Host
	}
	if c.API.Port <= 0 {
		c.API.Port = def.API.Port
	}
	if c.API.RequestTimeout == "" {
		c.API.RequestTimeout = def.API.RequestTimeout
	}
	if c.License.Database == "" {
		c.License.Database = def.License.Database
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = def.Log.MaxSizeMB
	}
	if c.Simulation.BatchWorkers <= 0 {
		c.Simulation.BatchWorkers = def.Simulation.BatchWorkers
	}
}

// ParseDuration parses s, returning fallback when s is empty or invalid.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

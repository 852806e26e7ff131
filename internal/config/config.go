package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultCachePath       = "~/.config/trade_cal.parquet"
	DefaultCredentialsPath = "~/.config/user_info.toml"
	DefaultProviderURL     = "http://api.tushare.pro"
)

type Config struct {
	CachePath       string `yaml:"cache_path,omitempty"`
	CredentialsPath string `yaml:"credentials_path,omitempty"`

	Provider ProviderConfig `yaml:"provider,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
}

type ProviderConfig struct {
	URL            string `yaml:"url,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
	// RetryDelaySeconds is the pause before re-querying after an empty
	// result. Negative retries immediately.
	RetryDelaySeconds int `yaml:"retry_delay_seconds,omitempty"`
	RatePerMinute     int `yaml:"rate_per_minute,omitempty"`
	MaxAttempts       int `yaml:"max_attempts,omitempty"`
}

type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
	// RefreshAt is "HH:MM" Asia/Shanghai.
	RefreshAt      string `yaml:"refresh_at,omitempty"`
	RefreshEnabled *bool  `yaml:"refresh_enabled,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
	// File enables a rotating log file in addition to stderr.
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
}

func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func (p ProviderConfig) RetryDelay() time.Duration {
	if p.RetryDelaySeconds < 0 {
		return -1
	}
	return time.Duration(p.RetryDelaySeconds) * time.Second
}

func (s ServerConfig) Refresh() bool {
	return s.RefreshEnabled == nil || *s.RefreshEnabled
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	if err := NormalizeAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	cfg = Config{}
	applyEnvOverrides(&cfg)
	if err := NormalizeAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ReadFile returns the file's settings as written: no defaults, no env
// overrides, no validation. A missing file yields the zero Config.
func ReadFile(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory. Zero fields are omitted.
func Save(path string, cfg Config) error {
	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADECAL_CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	if v := os.Getenv("TRADECAL_CREDENTIALS"); v != "" {
		cfg.CredentialsPath = v
	}
	if v := os.Getenv("TUSHARE_API_URL"); v != "" {
		cfg.Provider.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.CachePath == "" {
		cfg.CachePath = DefaultCachePath
	}
	if cfg.CredentialsPath == "" {
		cfg.CredentialsPath = DefaultCredentialsPath
	}
	if cfg.Provider.URL == "" {
		cfg.Provider.URL = DefaultProviderURL
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = 30
	}
	if cfg.Provider.RetryDelaySeconds == 0 {
		cfg.Provider.RetryDelaySeconds = 60
	}
	if cfg.Provider.MaxAttempts == 0 {
		cfg.Provider.MaxAttempts = 3
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8080"
	}
	if cfg.Server.RefreshAt == "" {
		cfg.Server.RefreshAt = "08:30"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 50
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}
}

// NormalizeAndValidate applies defaults and checks invariants.
func NormalizeAndValidate(cfg *Config) error {
	applyDefaults(cfg)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	if cfg.Provider.TimeoutSeconds < 0 {
		return fmt.Errorf("provider.timeout_seconds must be >= 0")
	}
	if cfg.Provider.MaxAttempts < 1 {
		return fmt.Errorf("provider.max_attempts must be >= 1")
	}
	if cfg.Provider.RatePerMinute < 0 {
		return fmt.Errorf("provider.rate_per_minute must be >= 0")
	}
	if _, err := time.Parse("15:04", cfg.Server.RefreshAt); err != nil || len(cfg.Server.RefreshAt) != 5 {
		return fmt.Errorf("server.refresh_at must be HH:MM, got %q", cfg.Server.RefreshAt)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}
	switch cfg.Log.Level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}
	return nil
}

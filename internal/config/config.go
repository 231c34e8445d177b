package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete InsightWire configuration
type Config struct {
	Paths   PathsConfig   `mapstructure:"paths"`
	Session SessionConfig `mapstructure:"session"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Logging LoggingConfig `mapstructure:"logging"`
	TUI     TUIConfig     `mapstructure:"tui"`
}

// PathsConfig controls where InsightWire stores data
type PathsConfig struct {
	// StorageRoot is the directory under which session files live.
	// Relative session ids are resolved to <StorageRoot>/sessions/<id>.
	// Supports ~ for home directory expansion. If empty, defaults to
	// the user config directory.
	StorageRoot string `mapstructure:"storage_root"`
}

// SessionConfig controls the session worker behavior
type SessionConfig struct {
	// LockTimeoutSeconds bounds session lock acquisition (default: 30)
	LockTimeoutSeconds int `mapstructure:"lock_timeout_seconds"`
	// PollIntervalMs is the worker's inbound poll interval (default: 100)
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	// StopTimeoutSeconds bounds the wait for the worker goroutine to exit
	// during Stop (default: 5)
	StopTimeoutSeconds int `mapstructure:"stop_timeout_seconds"`
	// IdleTimeoutMinutes stops the worker after this long with no inbound
	// commands; the next call restarts it transparently (0 = never)
	IdleTimeoutMinutes int `mapstructure:"idle_timeout_minutes"`
}

// RetryConfig controls the retry policy applied around manager calls
type RetryConfig struct {
	// MaxAttempts is the total number of attempts for lock-contended calls (default: 3)
	MaxAttempts int `mapstructure:"max_attempts"`
	// BaseDelayMs is multiplied by the attempt number for linear backoff (default: 1000)
	BaseDelayMs int `mapstructure:"base_delay_ms"`
}

// ScrapeConfig controls message scraping defaults
type ScrapeConfig struct {
	// DefaultLimit is the per-channel message limit (default: 100)
	DefaultLimit int `mapstructure:"default_limit"`
	// ChannelCacheTTLMinutes caches the channel listing in the TUI (default: 10)
	ChannelCacheTTLMinutes int `mapstructure:"channel_cache_ttl_minutes"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether file logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
}

// TUIConfig controls the terminal UI behavior
type TUIConfig struct {
	// MaxTableRows limits how many scraped rows the results view renders
	// at once (default: 500)
	MaxTableRows int `mapstructure:"max_table_rows"`
}

// LockTimeout returns the lock acquisition timeout as a time.Duration
func (s *SessionConfig) LockTimeout() time.Duration {
	return time.Duration(s.LockTimeoutSeconds) * time.Second
}

// PollInterval returns the worker poll interval as a time.Duration
func (s *SessionConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// StopTimeout returns the Stop join timeout as a time.Duration
func (s *SessionConfig) StopTimeout() time.Duration {
	return time.Duration(s.StopTimeoutSeconds) * time.Second
}

// IdleTimeout returns the worker idle shutdown timeout (0 means disabled)
func (s *SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutMinutes) * time.Minute
}

// BaseDelay returns the retry backoff base as a time.Duration
func (r *RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMs) * time.Millisecond
}

// ChannelCacheTTL returns the channel listing cache TTL as a time.Duration
func (s *ScrapeConfig) ChannelCacheTTL() time.Duration {
	return time.Duration(s.ChannelCacheTTLMinutes) * time.Minute
}

// ResolveStorageRoot returns the resolved storage root directory.
// If StorageRoot is empty, data lives under the user config directory.
func (p *PathsConfig) ResolveStorageRoot() string {
	if p.StorageRoot == "" {
		return ConfigDir()
	}

	path := p.StorageRoot
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err == nil {
			path = abs
		}
	}

	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			StorageRoot: "", // Empty means use the user config directory
		},
		Session: SessionConfig{
			LockTimeoutSeconds: 30,
			PollIntervalMs:     100,
			StopTimeoutSeconds: 5,
			IdleTimeoutMinutes: 0, // Never stop on idle by default
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelayMs: 1000,
		},
		Scrape: ScrapeConfig{
			DefaultLimit:           100,
			ChannelCacheTTLMinutes: 10,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		TUI: TUIConfig{
			MaxTableRows: 500,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("paths.storage_root", defaults.Paths.StorageRoot)

	viper.SetDefault("session.lock_timeout_seconds", defaults.Session.LockTimeoutSeconds)
	viper.SetDefault("session.poll_interval_ms", defaults.Session.PollIntervalMs)
	viper.SetDefault("session.stop_timeout_seconds", defaults.Session.StopTimeoutSeconds)
	viper.SetDefault("session.idle_timeout_minutes", defaults.Session.IdleTimeoutMinutes)

	viper.SetDefault("retry.max_attempts", defaults.Retry.MaxAttempts)
	viper.SetDefault("retry.base_delay_ms", defaults.Retry.BaseDelayMs)

	viper.SetDefault("scrape.default_limit", defaults.Scrape.DefaultLimit)
	viper.SetDefault("scrape.channel_cache_ttl_minutes", defaults.Scrape.ChannelCacheTTLMinutes)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)

	viper.SetDefault("tui.max_table_rows", defaults.TUI.MaxTableRows)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "insightwire")
	}
	// Fall back to ~/.config/insightwire
	home, err := os.UserHomeDir()
	if err != nil {
		return ".insightwire"
	}
	return filepath.Join(home, ".config", "insightwire")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete driverpool configuration
type Config struct {
	Pool    PoolConfig    `mapstructure:"pool"`
	Device  DeviceConfig  `mapstructure:"device"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PoolConfig controls session creation and teardown behavior
type PoolConfig struct {
	// MaxDriverCount is the maximum number of drivers visible to one
	// worker's scope. Creation beyond this limit fails immediately.
	MaxDriverCount int `mapstructure:"max_driver_count"`
	// InitRetryCount is the number of retries after a failed creation
	// attempt. 0 means exactly one attempt, no retries.
	InitRetryCount int `mapstructure:"init_retry_count"`
	// InitRetryIntervalSec is the pause between creation attempts in seconds
	InitRetryIntervalSec int `mapstructure:"init_retry_interval_sec"`
	// DriverCloseTimeoutSec bounds the quit call during teardown in seconds
	DriverCloseTimeoutSec int `mapstructure:"driver_close_timeout_sec"`
	// CloseBeforeQuit issues a soft close of UI surfaces before quit.
	// Workaround for drivers that leak profiles on a bare quit.
	CloseBeforeQuit bool `mapstructure:"close_before_quit"`
}

// DeviceConfig controls physical-device handling
type DeviceConfig struct {
	// ConnectOnRegister establishes the remote device connection as
	// part of RegisterDevice instead of leaving it to the caller.
	ConnectOnRegister bool `mapstructure:"connect_on_register"`
}

// LoggingConfig controls pool logging behavior
type LoggingConfig struct {
	// Enabled controls whether pool logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory for the pool log file. Empty means stderr.
	Dir string `mapstructure:"dir"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			MaxDriverCount:        3,
			InitRetryCount:        1,
			InitRetryIntervalSec:  1,
			DriverCloseTimeoutSec: 30,
			CloseBeforeQuit:       false,
		},
		Device: DeviceConfig{
			ConnectOnRegister: false,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Dir:     "",
		},
	}
}

// InitRetryInterval returns the inter-retry pause as a time.Duration
func (c *PoolConfig) InitRetryInterval() time.Duration {
	return time.Duration(c.InitRetryIntervalSec) * time.Second
}

// DriverCloseTimeout returns the teardown quit bound as a time.Duration
func (c *PoolConfig) DriverCloseTimeout() time.Duration {
	return time.Duration(c.DriverCloseTimeoutSec) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Pool defaults
	viper.SetDefault("pool.max_driver_count", defaults.Pool.MaxDriverCount)
	viper.SetDefault("pool.init_retry_count", defaults.Pool.InitRetryCount)
	viper.SetDefault("pool.init_retry_interval_sec", defaults.Pool.InitRetryIntervalSec)
	viper.SetDefault("pool.driver_close_timeout_sec", defaults.Pool.DriverCloseTimeoutSec)
	viper.SetDefault("pool.close_before_quit", defaults.Pool.CloseBeforeQuit)

	// Device defaults
	viper.SetDefault("device.connect_on_register", defaults.Device.ConnectOnRegister)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
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
		return filepath.Join(xdg, "driverpool")
	}
	// Fall back to ~/.config/driverpool
	home, err := os.UserHomeDir()
	if err != nil {
		return ".driverpool"
	}
	return filepath.Join(home, ".config", "driverpool")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

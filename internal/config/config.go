// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// appDirName is the per-user directory holding the encryption key.
const appDirName = "RAMN"

// keyFileName matches the name the key store writes.
const keyFileName = ".ramn_key"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath      string  `env:"DB_PATH"      envDefault:"accounts.db"`
	ProfileDir  string  `env:"PROFILE_DIR"  envDefault:"profiles"`
	KeyDir      string  `env:"KEY_DIR"`
	ListenAddr  string  `env:"LISTEN_ADDR"  envDefault:"127.0.0.1:8765"`
	LogLevel    string  `env:"LOG_LEVEL"    envDefault:"info"`
	MetadataRPS float64 `env:"METADATA_RPS" envDefault:"5"`
	Headless    bool    `env:"HEADLESS"     envDefault:"false"`

	// InstallBrowser downloads the browser driver at startup when missing.
	InstallBrowser bool `env:"BROWSER_INSTALL" envDefault:"false"`

	LoginTimeout  time.Duration `env:"LOGIN_TIMEOUT"  envDefault:"10m"`
	LockInterval  time.Duration `env:"LOCK_INTERVAL"  envDefault:"1s"`
	BurstDuration time.Duration `env:"BURST_DURATION" envDefault:"8s"`
	BurstInterval time.Duration `env:"BURST_INTERVAL" envDefault:"200ms"`
	LaunchStagger time.Duration `env:"LAUNCH_STAGGER" envDefault:"1.5s"`
}

// Load reads an optional .env file, then RAMN_-prefixed environment
// variables, and returns a validated Config. KeyDir defaults to
// %LOCALAPPDATA% when set, else the user config directory.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "RAMN_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.KeyDir == "" {
		dir, err := defaultKeyDir()
		if err != nil {
			return nil, err
		}
		cfg.KeyDir = dir
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MetadataRPS <= 0 {
		return fmt.Errorf("RAMN_METADATA_RPS must be positive, got %v", c.MetadataRPS)
	}
	for name, d := range map[string]time.Duration{
		"RAMN_LOGIN_TIMEOUT":  c.LoginTimeout,
		"RAMN_LOCK_INTERVAL":  c.LockInterval,
		"RAMN_BURST_DURATION": c.BurstDuration,
		"RAMN_BURST_INTERVAL": c.BurstInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.LaunchStagger < 0 {
		return fmt.Errorf("RAMN_LAUNCH_STAGGER must not be negative, got %s", c.LaunchStagger)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("RAMN_LOG_LEVEL has invalid level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// KeyPath returns the location of the encryption key file.
func (c *Config) KeyPath() string {
	return filepath.Join(c.KeyDir, appDirName, keyFileName)
}

// LegacyKeyPath returns where earlier releases kept the key: next to the
// database.
func (c *Config) LegacyKeyPath() string {
	return filepath.Join(filepath.Dir(c.DBPath), keyFileName)
}

func defaultKeyDir() (string, error) {
	if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
		return dir, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve key directory (set RAMN_KEY_DIR): %w", err)
	}
	return dir, nil
}

// Package config loads and saves the application preferences.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moffa90/go-focus/backup"
	"github.com/moffa90/go-focus/focus"
)

// Config represents the overall application configuration.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Settings SettingsConfig `yaml:"settings"`
	Registry RegistryConfig `yaml:"registry"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DeviceConfig describes how to reach the keyboard.
type DeviceConfig struct {
	Port            string        `yaml:"port"`
	Baud            int           `yaml:"baud"`
	CommandInterval time.Duration `yaml:"command_interval"`
	UnibodyProducts []string      `yaml:"unibody_products"`
}

// SettingsConfig holds the backup preferences.
type SettingsConfig struct {
	BackupFolder string `yaml:"backup_folder"`

	// BackupFrequency is the retention setting: 0..12 keep that many months
	// plus one, 13 keeps every backup.
	BackupFrequency    int           `yaml:"backup_frequency"`
	AutoBackupInterval time.Duration `yaml:"autobackup_interval"`
}

// RegistryConfig locates the neuron registry database.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds the log level (debug, info, warn, error).
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig holds the Prometheus listen address. Empty disables metrics.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Baud:            focus.DefaultBaudRate,
			CommandInterval: 10 * time.Millisecond,
			UnibodyProducts: append([]string(nil), focus.DefaultUnibodyProducts...),
		},
		Settings: SettingsConfig{
			BackupFolder:       filepath.Join("~", "Dygma", "Backups"),
			BackupFrequency:    backup.ForeverFrequency,
			AutoBackupInterval: 24 * time.Hour,
		},
		Registry: RegistryConfig{
			Path: "neurons.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration from path. Keys missing from the file keep
// their default values, and a missing file yields Default().
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes c to path as YAML.
func (c *Config) Save(path string) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Device.Baud == 0 {
		c.Device.Baud = def.Device.Baud
	}
	if len(c.Device.UnibodyProducts) == 0 {
		c.Device.UnibodyProducts = def.Device.UnibodyProducts
	}
	if c.Settings.BackupFolder == "" {
		c.Settings.BackupFolder = def.Settings.BackupFolder
	}
	if c.Settings.AutoBackupInterval == 0 {
		c.Settings.AutoBackupInterval = def.Settings.AutoBackupInterval
	}
	if c.Registry.Path == "" {
		c.Registry.Path = def.Registry.Path
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Device.Baud <= 0 {
		return fmt.Errorf("device.baud must be positive, got %d", c.Device.Baud)
	}
	if c.Device.CommandInterval < 0 {
		return fmt.Errorf("device.command_interval must not be negative, got %s", c.Device.CommandInterval)
	}
	if c.Settings.BackupFrequency < 0 || c.Settings.BackupFrequency > backup.ForeverFrequency {
		return fmt.Errorf("settings.backup_frequency must be between 0 and %d, got %d",
			backup.ForeverFrequency, c.Settings.BackupFrequency)
	}
	if c.Settings.AutoBackupInterval < 0 {
		return fmt.Errorf("settings.autobackup_interval must not be negative, got %s", c.Settings.AutoBackupInterval)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel converts Logging.Level for log/slog.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Logging.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// BackupFolder returns the backup folder with a leading ~ expanded.
func (c *Config) BackupFolder() backup.Folder {
	return backup.Folder{Dir: expandHome(c.Settings.BackupFolder)}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

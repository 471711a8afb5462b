package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Device connection settings
	Device DeviceConfig `mapstructure:"device"`

	// Sync behavior
	Sync SyncConfig `mapstructure:"sync"`

	// Logging
	Log LogConfig `mapstructure:"log"`

	// Optional run journal
	Journal JournalConfig `mapstructure:"journal"`
}

// DeviceConfig for dashcam communication.
type DeviceConfig struct {
	// Address is the dashcam IP address or hostname.
	Address string `mapstructure:"address"`

	// Timeout bounds connection establishment and response headers.
	Timeout time.Duration `mapstructure:"timeout"`
}

// SyncConfig for synchronization behavior.
type SyncConfig struct {
	Destination string `mapstructure:"destination"`

	// Keep is the retention period as <n>[dw]; empty retains forever.
	Keep string `mapstructure:"keep"`

	// Grouping is none, daily, weekly, monthly or yearly.
	Grouping string `mapstructure:"grouping"`

	// Priority is the download ordering: date, rdate or type.
	Priority string `mapstructure:"priority"`

	// MaxUsedDiskPercent halts downloads once the destination
	// filesystem is this full.
	MaxUsedDiskPercent int `mapstructure:"max_used_disk_percent"`

	DryRun bool `mapstructure:"dry_run"`
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json

	// Cron suppresses routine output except normal/manual downloads
	// and unexpected errors.
	Cron bool `mapstructure:"cron"`

	// Quiet drops everything below error severity.
	Quiet bool `mapstructure:"quiet"`
}

// JournalConfig for the optional per-run SQLite journal.
type JournalConfig struct {
	// Path of the journal database; empty disables journaling.
	Path string `mapstructure:"path"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Timeout: 10 * time.Second,
		},
		Sync: SyncConfig{
			Destination:        ".",
			Grouping:           "none",
			Priority:           "date",
			MaxUsedDiskPercent: 90,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Device.Address == "" {
		return errors.New("device.address is required")
	}

	if c.Device.Timeout <= 0 {
		return errors.New("device.timeout must be positive")
	}

	if c.Sync.Destination == "" {
		return errors.New("sync.destination is required")
	}

	if c.Sync.Keep != "" {
		if _, err := ParseKeep(c.Sync.Keep); err != nil {
			return err
		}
	}

	validGroupings := map[string]bool{
		"none": true, "daily": true, "weekly": true, "monthly": true, "yearly": true,
	}
	if !validGroupings[c.Sync.Grouping] {
		return fmt.Errorf("invalid grouping: %s", c.Sync.Grouping)
	}

	validPriorities := map[string]bool{"date": true, "rdate": true, "type": true}
	if !validPriorities[c.Sync.Priority] {
		return fmt.Errorf("invalid priority: %s", c.Sync.Priority)
	}

	if c.Sync.MaxUsedDiskPercent < 5 || c.Sync.MaxUsedDiskPercent > 98 {
		return fmt.Errorf("max_used_disk_percent must be between 5 and 98, got %d",
			c.Sync.MaxUsedDiskPercent)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// ParseKeep parses a retention period of the form <n>[dw], where the unit
// defaults to days. The range must be at least one.
func ParseKeep(keep string) (time.Duration, error) {
	if keep == "" {
		return 0, errors.New("empty retention period")
	}

	digits := keep
	unit := byte('d')
	switch last := keep[len(keep)-1]; last {
	case 'd', 'w':
		unit = last
		digits = keep[:len(keep)-1]
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("retention period must be <number>[dw], got %q", keep)
	}
	if n < 1 {
		return 0, errors.New("retention period must be at least one")
	}

	days := n
	if unit == 'w' {
		days = n * 7
	}

	return time.Duration(days) * 24 * time.Hour, nil
}

// CutoffDate computes the retention cutoff for a keep period: recordings
// dated strictly before it are outdated. The second return is false when no
// retention is configured.
func (c *Config) CutoffDate(now time.Time) (time.Time, bool, error) {
	if c.Sync.Keep == "" {
		return time.Time{}, false, nil
	}

	keep, err := ParseKeep(c.Sync.Keep)
	if err != nil {
		return time.Time{}, false, err
	}

	cutoff := now.Add(-keep)
	y, m, d := cutoff.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, cutoff.Location()), true, nil
}

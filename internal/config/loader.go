package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Loader reads configuration from file and environment.
type Loader struct {
	configPath string
}

// NewLoader creates a config loader. An empty path searches the default
// locations instead.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load merges defaults, an optional config file, and DASHSYNC_* environment
// variables (e.g. DASHSYNC_DEVICE_ADDRESS, DASHSYNC_SYNC_KEEP), then
// validates the result. Flag overrides are applied by the CLI layer
// afterwards, before a second Validate.
func (l *Loader) Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("device.address", defaults.Device.Address)
	v.SetDefault("device.timeout", defaults.Device.Timeout)
	v.SetDefault("sync.destination", defaults.Sync.Destination)
	v.SetDefault("sync.keep", defaults.Sync.Keep)
	v.SetDefault("sync.grouping", defaults.Sync.Grouping)
	v.SetDefault("sync.priority", defaults.Sync.Priority)
	v.SetDefault("sync.max_used_disk_percent", defaults.Sync.MaxUsedDiskPercent)
	v.SetDefault("sync.dry_run", false)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("log.cron", false)
	v.SetDefault("log.quiet", false)
	v.SetDefault("journal.path", "")

	if l.configPath != "" {
		v.SetConfigFile(l.configPath)
	} else {
		v.SetConfigName("dashsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/dashsync")
	}

	v.SetEnvPrefix("DASHSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderDefaults(t *testing.T) {
	cfg, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	require.Error(t, err, "explicit config path must exist")
	assert.Nil(t, cfg)

	cfg, err = NewLoader("").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Sync, cfg.Sync)
	assert.Equal(t, 10*time.Second, cfg.Device.Timeout)
}

func TestLoaderReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashsync.yaml")

	content := `
device:
  address: 192.168.1.99
  timeout: 5s
sync:
  destination: /mnt/dashcam
  keep: 2w
  grouping: weekly
  priority: type
log:
  level: debug
  format: json
journal:
  path: /var/lib/dashsync/runs.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.99", cfg.Device.Address)
	assert.Equal(t, 5*time.Second, cfg.Device.Timeout)
	assert.Equal(t, "/mnt/dashcam", cfg.Sync.Destination)
	assert.Equal(t, "2w", cfg.Sync.Keep)
	assert.Equal(t, "weekly", cfg.Sync.Grouping)
	assert.Equal(t, "type", cfg.Sync.Priority)
	assert.Equal(t, 90, cfg.Sync.MaxUsedDiskPercent, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/var/lib/dashsync/runs.db", cfg.Journal.Path)

	require.NoError(t, cfg.Validate())
}

func TestLoaderEnvOverride(t *testing.T) {
	t.Setenv("DASHSYNC_DEVICE_ADDRESS", "dashcam.local")
	t.Setenv("DASHSYNC_SYNC_KEEP", "3d")

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, "dashcam.local", cfg.Device.Address)
	assert.Equal(t, "3d", cfg.Sync.Keep)
}

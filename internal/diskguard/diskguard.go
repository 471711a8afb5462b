// Package diskguard is the admission check run before every download: once
// the filesystem hosting the destination passes the configured used-space
// threshold, the rest of the plan is abandoned.
package diskguard

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/TheMichaelB/dashsync/internal/events"
	"github.com/TheMichaelB/dashsync/internal/models"
)

// usageFunc matches disk.Usage; injectable for tests.
type usageFunc func(path string) (*disk.UsageStat, error)

// Guard checks destination disk usage against a threshold.
type Guard struct {
	maxUsedPercent float64
	usage          usageFunc
	logger         *events.Logger
}

// New creates a guard for the given maximum used-space percentage.
func New(maxUsedPercent int, logger *events.Logger) *Guard {
	return &Guard{
		maxUsedPercent: float64(maxUsedPercent),
		usage:          disk.Usage,
		logger:         logger.WithField("component", "diskguard"),
	}
}

// NewWithUsage creates a guard with a custom usage probe, for testing.
func NewWithUsage(maxUsedPercent int, usage func(string) (*disk.UsageStat, error), logger *events.Logger) *Guard {
	g := New(maxUsedPercent, logger)
	g.usage = usage
	return g
}

// Check returns a DiskFullError when the filesystem hosting path is over
// the threshold. It runs before each transfer, not once per run, so a long
// plan halts as space is consumed.
func (g *Guard) Check(path string) error {
	stat, err := g.usage(path)
	if err != nil {
		return fmt.Errorf("read disk usage: %w", err)
	}

	if stat.UsedPercent > g.maxUsedPercent {
		return &models.DiskFullError{
			Path:        path,
			UsedPercent: stat.UsedPercent,
			MaxPercent:  g.maxUsedPercent,
		}
	}

	g.logger.WithFields(map[string]interface{}{
		"used_percent": fmt.Sprintf("%.1f", stat.UsedPercent),
		"max_percent":  g.maxUsedPercent,
	}).Debug("Disk usage within limits")

	return nil
}

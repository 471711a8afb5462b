// Package grouping manages the destination directory layout: the optional
// time-bucketed subdirectories completed recordings land in, retention
// pruning, and cleanup of stale temporary files.
package grouping

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/TheMichaelB/dashsync/internal/models"
)

// Scheme selects the directory bucket completed recordings are placed in.
type Scheme string

const (
	None    Scheme = "none"
	Daily   Scheme = "daily"
	Weekly  Scheme = "weekly"
	Monthly Scheme = "monthly"
	Yearly  Scheme = "yearly"
)

// ParseScheme validates a grouping scheme name.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case None, Daily, Weekly, Monthly, Yearly:
		return Scheme(s), nil
	case "":
		return None, nil
	}
	return "", fmt.Errorf("unknown grouping scheme: %q", s)
}

// Dir returns the bucket directory name for a recording timestamp, or ""
// for the flat layout. Weekly buckets anchor on the Monday of the ISO week,
// so every recording of one week shares a directory regardless of weekday.
func (s Scheme) Dir(ts time.Time) string {
	switch s {
	case Daily:
		return ts.Format("2006-01-02")
	case Weekly:
		offset := (int(ts.Weekday()) + 6) % 7 // days since Monday
		return ts.AddDate(0, 0, -offset).Format("2006-01-02")
	case Monthly:
		return ts.Format("2006-01")
	case Yearly:
		return ts.Format("2006")
	default:
		return ""
	}
}

// Place computes the final path of a file relative to the destination root.
// The result is a pure function of the recording timestamp and the scheme.
func Place(entry models.FileEntry, scheme Scheme) string {
	dir := scheme.Dir(entry.Key.Timestamp)
	if dir == "" {
		return entry.Name
	}
	return filepath.Join(dir, entry.Name)
}

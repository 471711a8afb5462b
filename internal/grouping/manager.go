package grouping

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/TheMichaelB/dashsync/internal/codec"
	"github.com/TheMichaelB/dashsync/internal/events"
	"github.com/TheMichaelB/dashsync/internal/models"
)

// Manager applies retention pruning and temp-file cleanup to one
// destination root.
type Manager struct {
	root   string
	dryRun bool
	logger *events.Logger
}

// NewManager creates a manager for the destination root.
func NewManager(root string, dryRun bool, logger *events.Logger) *Manager {
	return &Manager{
		root:   root,
		dryRun: dryRun,
		logger: logger.WithField("component", "grouping"),
	}
}

// Prune removes the given outdated local files and any grouping directory
// left empty afterwards. Entries are expected to cover every file kind of
// each pruned recording key; the planner guarantees that.
func (m *Manager) Prune(entries []models.FileEntry) (int, error) {
	removed := 0
	dirs := make(map[string]struct{})

	for _, entry := range entries {
		path := filepath.Join(m.root, entry.Location)

		if m.dryRun {
			m.logger.WithField("path", entry.Location).Info("DRY RUN Would remove outdated recording file")
			continue
		}

		m.logger.WithField("path", entry.Location).Info("Removing outdated recording file")

		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("remove outdated file: %w", err)
		}
		removed++

		if dir := filepath.Dir(path); dir != m.root {
			dirs[dir] = struct{}{}
		}
	}

	for dir := range dirs {
		m.removeIfEmpty(dir)
	}

	return removed, nil
}

// CleanStaleTemps removes leftover temporary files whose recordings are no
// longer on the device; those can never complete. Temps for names still
// present remotely are kept so a future run resumes them.
func (m *Manager) CleanStaleTemps(temps []models.FileEntry, remoteNames map[string]bool) {
	for _, temp := range temps {
		if remoteNames[temp.Name] {
			continue
		}

		path := filepath.Join(m.root, temp.Location)

		if m.dryRun {
			m.logger.WithField("path", temp.Location).Debug("DRY RUN Would remove stale temporary file")
			continue
		}

		m.logger.WithField("path", temp.Location).Debug("Removing stale temporary file")

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			m.logger.WithError(err).Warn("Could not remove stale temporary file")
			continue
		}

		if dir := filepath.Dir(path); dir != m.root {
			m.removeIfEmpty(dir)
		}
	}
}

// removeIfEmpty deletes a grouping directory once its last file is gone.
// The destination root itself is never removed; the lock file lives there.
func (m *Manager) removeIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}

	if err := os.Remove(dir); err != nil {
		m.logger.WithError(err).Debug("Could not remove empty grouping directory")
		return
	}

	m.logger.WithField("dir", dir).Debug("Removed empty grouping directory")
}

// TempPath returns the absolute temporary path for a file at its final
// relative location.
func TempPath(root, finalRel string) string {
	dir, name := filepath.Split(finalRel)
	return filepath.Join(root, dir, codec.TempName(name))
}

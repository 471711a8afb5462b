// Package catalog reads the destination directory into structured local
// file entries: completed recordings at their canonical names, and
// dot-prefixed temporary files from interrupted downloads, reported with
// their on-disk byte counts so the executor can resume them.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/TheMichaelB/dashsync/internal/codec"
	"github.com/TheMichaelB/dashsync/internal/events"
	"github.com/TheMichaelB/dashsync/internal/models"
)

// Catalog holds the scanned state of one destination directory.
type Catalog struct {
	complete map[string]models.FileEntry
	partial  map[string]models.FileEntry
}

// Complete returns the completed entry for a canonical filename.
func (c *Catalog) Complete(name string) (models.FileEntry, bool) {
	entry, ok := c.complete[name]
	return entry, ok
}

// Partial returns the in-progress entry for a canonical filename.
func (c *Catalog) Partial(name string) (models.FileEntry, bool) {
	entry, ok := c.partial[name]
	return entry, ok
}

// Entries returns all completed entries.
func (c *Catalog) Entries() []models.FileEntry {
	entries := make([]models.FileEntry, 0, len(c.complete))
	for _, entry := range c.complete {
		entries = append(entries, entry)
	}
	return entries
}

// Partials returns all in-progress entries.
func (c *Catalog) Partials() []models.FileEntry {
	entries := make([]models.FileEntry, 0, len(c.partial))
	for _, entry := range c.partial {
		entries = append(entries, entry)
	}
	return entries
}

// Len returns the number of completed entries.
func (c *Catalog) Len() int { return len(c.complete) }

// Scan walks the destination root and one level of grouping subdirectories.
// Both levels are always scanned so recordings stay visible after a grouping
// scheme change. Files that are neither recordings nor their temporaries
// (the lock file among them) are ignored.
func Scan(root string, logger *events.Logger) (*Catalog, error) {
	log := logger.WithField("component", "catalog")

	cat := &Catalog{
		complete: make(map[string]models.FileEntry),
		partial:  make(map[string]models.FileEntry),
	}

	dirents, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read destination directory: %w", err)
	}

	for _, dirent := range dirents {
		if dirent.IsDir() {
			subdir := dirent.Name()
			subents, err := os.ReadDir(filepath.Join(root, subdir))
			if err != nil {
				return nil, fmt.Errorf("read grouping directory %s: %w", subdir, err)
			}
			for _, subent := range subents {
				if subent.IsDir() {
					continue
				}
				cat.add(subdir, subent, log)
			}
			continue
		}
		cat.add("", dirent, log)
	}

	log.WithFields(map[string]interface{}{
		"complete": len(cat.complete),
		"partial":  len(cat.partial),
	}).Debug("Scanned destination")

	return cat, nil
}

func (c *Catalog) add(dir string, dirent os.DirEntry, log *events.Logger) {
	name := dirent.Name()

	if target, ok := codec.IsTempName(name); ok {
		entry, err := codec.Parse(target)
		if err != nil {
			return
		}

		info, err := dirent.Info()
		if err != nil {
			return
		}

		entry.Size = info.Size()
		entry.Partial = true
		entry.Location = filepath.Join(dir, name)
		c.partial[target] = entry
		return
	}

	entry, err := codec.Parse(name)
	if err != nil {
		log.WithField("file", name).Debug("Ignoring non-recording file")
		return
	}

	info, err := dirent.Info()
	if err != nil {
		return
	}

	entry.Size = info.Size()
	entry.Location = filepath.Join(dir, name)
	c.complete[name] = entry
}

// Package planner diffs the remote and local catalogs into an ordered
// download plan and a retention prune set. Planning is pure: given the same
// catalogs, policy and cutoff it always produces the same plan, regardless
// of input order.
package planner

import (
	"sort"
	"time"

	"github.com/TheMichaelB/dashsync/internal/catalog"
	"github.com/TheMichaelB/dashsync/internal/codec"
	"github.com/TheMichaelB/dashsync/internal/models"
)

// Plan is the outcome of one planning pass.
type Plan struct {
	// Downloads are the missing-or-incomplete remote files, in transfer
	// order.
	Downloads []models.FileEntry

	// Prune are the local files, including leftover temporaries, of every
	// recording key older than the retention cutoff.
	Prune []models.FileEntry

	// RemoteNames indexes every filename the device currently exposes,
	// including derived sidecar names. Temporary files outside this set
	// belong to recordings the device has rotated away.
	RemoteNames map[string]bool
}

// Build computes the plan. The remote slice holds the parsed listing
// entries; sidecar files the device does not list (thumbnails,
// accelerometer and GPS data) are derived from each listed video. When
// hasCutoff is false no pruning occurs and all remote recordings are
// candidates.
func Build(remote []models.FileEntry, local *catalog.Catalog, priority models.Priority, cutoff time.Time, hasCutoff bool) Plan {
	wanted := expand(remote)

	plan := Plan{
		RemoteNames: make(map[string]bool, len(wanted)),
	}
	for name := range wanted {
		plan.RemoteNames[name] = true
	}

	for _, entry := range wanted {
		// Recordings older than the cutoff would be pruned right after
		// downloading; skip them outright.
		if hasCutoff && entry.Key.Date().Before(cutoff) {
			continue
		}

		if existing, ok := local.Complete(entry.Name); ok {
			if !entry.SizeKnown() || existing.Size == entry.Size {
				continue
			}
		}

		plan.Downloads = append(plan.Downloads, entry)
	}

	sortDownloads(plan.Downloads, priority)

	if hasCutoff {
		plan.Prune = prunable(local, cutoff)
	}

	return plan
}

// expand turns the listing into the full set of files worth having locally,
// keyed by canonical name. Listed entries keep their reported sizes; derived
// sidecars carry SizeUnknown.
func expand(remote []models.FileEntry) map[string]models.FileEntry {
	wanted := make(map[string]models.FileEntry, len(remote)*3)

	for _, entry := range remote {
		wanted[entry.Name] = entry
	}

	for _, entry := range remote {
		if entry.Kind != models.KindVideo {
			continue
		}
		for _, kin := range codec.Kin(entry) {
			if _, ok := wanted[kin.Name]; !ok {
				wanted[kin.Name] = kin
			}
		}
	}

	return wanted
}

// prunable collects every local file of recording keys dated strictly
// before the cutoff. A key's files all share its date, so removal is
// naturally all-or-nothing per key.
func prunable(local *catalog.Catalog, cutoff time.Time) []models.FileEntry {
	var outdated []models.FileEntry

	for _, entry := range local.Entries() {
		if entry.Key.Date().Before(cutoff) {
			outdated = append(outdated, entry)
		}
	}
	for _, entry := range local.Partials() {
		if entry.Key.Date().Before(cutoff) {
			outdated = append(outdated, entry)
		}
	}

	sort.Slice(outdated, func(i, j int) bool {
		return outdated[i].Compare(outdated[j]) < 0
	})

	return outdated
}

// sortDownloads orders the plan by the active priority policy, falling back
// to the recording-key/file-kind comparison for full determinism.
func sortDownloads(downloads []models.FileEntry, priority models.Priority) {
	sort.Slice(downloads, func(i, j int) bool {
		a, b := downloads[i], downloads[j]

		switch priority {
		case models.PriorityRDate:
			if c := a.Key.Timestamp.Compare(b.Key.Timestamp); c != 0 {
				return c > 0
			}
		case models.PriorityType:
			if ca, cb := a.Key.Type.Class(), b.Key.Type.Class(); ca != cb {
				return ca < cb
			}
		}

		return a.Compare(b) < 0
	})
}

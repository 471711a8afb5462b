package planner

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/dashsync/internal/catalog"
	"github.com/TheMichaelB/dashsync/internal/codec"
	"github.com/TheMichaelB/dashsync/internal/events"
	"github.com/TheMichaelB/dashsync/internal/models"
	"github.com/TheMichaelB/dashsync/test/testutil"
)

func remoteEntry(t *testing.T, name string, size int64) models.FileEntry {
	t.Helper()
	entry, err := codec.Parse(name)
	require.NoError(t, err)
	entry.Size = size
	return entry
}

func scanDir(t *testing.T, root string) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Scan(root, events.Discard())
	require.NoError(t, err)
	return cat
}

func names(entries []models.FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestBuildExpandsSidecars(t *testing.T) {
	remote := []models.FileEntry{remoteEntry(t, "20181029_131513_NF.mp4", 1000)}
	plan := Build(remote, scanDir(t, t.TempDir()), models.PriorityDate, time.Time{}, false)

	assert.Equal(t, []string{
		"20181029_131513_NF.mp4",
		"20181029_131513_NF.thm",
		"20181029_131513_N.3gf",
		"20181029_131513_N.gps",
	}, names(plan.Downloads))

	for _, name := range names(plan.Downloads) {
		assert.True(t, plan.RemoteNames[name], name)
	}

	// The listed video keeps its reported size; sidecars are unknown.
	assert.Equal(t, int64(1000), plan.Downloads[0].Size)
	for _, d := range plan.Downloads[1:] {
		assert.False(t, d.SizeKnown(), d.Name)
	}
}

func TestBuildSkipsComplete(t *testing.T) {
	root := t.TempDir()
	testutil.WriteLocal(t, root, "20181029_131513_NF.mp4", 1000)
	testutil.WriteLocal(t, root, "20181029_131513_NF.thm", 32)
	testutil.WriteLocal(t, root, "20181029_131513_N.3gf", 16)
	testutil.WriteLocal(t, root, "20181029_131513_N.gps", 16)

	remote := []models.FileEntry{remoteEntry(t, "20181029_131513_NF.mp4", 1000)}
	plan := Build(remote, scanDir(t, root), models.PriorityDate, time.Time{}, false)

	assert.Empty(t, plan.Downloads, "everything present and sized")
}

func TestBuildRedownloadsSizeMismatch(t *testing.T) {
	root := t.TempDir()
	// Local video is short of the listed size, its sidecars are fine.
	testutil.WriteLocal(t, root, "20181029_131513_NF.mp4", 500)
	testutil.WriteLocal(t, root, "20181029_131513_NF.thm", 32)
	testutil.WriteLocal(t, root, "20181029_131513_N.3gf", 16)
	testutil.WriteLocal(t, root, "20181029_131513_N.gps", 16)

	remote := []models.FileEntry{remoteEntry(t, "20181029_131513_NF.mp4", 1000)}
	plan := Build(remote, scanDir(t, root), models.PriorityDate, time.Time{}, false)

	assert.Equal(t, []string{"20181029_131513_NF.mp4"}, names(plan.Downloads))
}

func TestBuildSidecarExistenceSuffices(t *testing.T) {
	root := t.TempDir()
	testutil.WriteLocal(t, root, "20181029_131513_NF.mp4", 1000)
	// Unlisted sidecars have no authoritative size; any on-disk copy counts.
	testutil.WriteLocal(t, root, "20181029_131513_NF.thm", 1)
	testutil.WriteLocal(t, root, "20181029_131513_N.3gf", 1)
	testutil.WriteLocal(t, root, "20181029_131513_N.gps", 1)

	remote := []models.FileEntry{remoteEntry(t, "20181029_131513_NF.mp4", 1000)}
	plan := Build(remote, scanDir(t, root), models.PriorityDate, time.Time{}, false)

	assert.Empty(t, plan.Downloads)
}

func TestBuildPartialStaysPlanned(t *testing.T) {
	root := t.TempDir()
	testutil.WriteLocal(t, root, ".20181029_131513_NF.mp4", 400)

	remote := []models.FileEntry{remoteEntry(t, "20181029_131513_NF.mp4", 1000)}
	plan := Build(remote, scanDir(t, root), models.PriorityDate, time.Time{}, false)

	// A temp file is not a completed download; the video is still wanted.
	assert.Contains(t, names(plan.Downloads), "20181029_131513_NF.mp4")
}

func TestBuildCutoffSkipsOutdatedRemotes(t *testing.T) {
	remote := []models.FileEntry{
		remoteEntry(t, "20181025_090000_NF.mp4", 100),
		remoteEntry(t, "20181029_131513_NF.mp4", 100),
	}
	cutoff := time.Date(2018, 10, 27, 0, 0, 0, 0, time.UTC)

	plan := Build(remote, scanDir(t, t.TempDir()), models.PriorityDate, cutoff, true)

	got := names(plan.Downloads)
	assert.NotContains(t, got, "20181025_090000_NF.mp4")
	assert.Contains(t, got, "20181029_131513_NF.mp4")
}

func TestBuildPruneSet(t *testing.T) {
	root := t.TempDir()
	testutil.WriteLocal(t, root, "20181020_090000_NF.mp4", 100)
	testutil.WriteLocal(t, root, "20181020_090000_NF.thm", 10)
	testutil.WriteLocal(t, root, ".20181020_100000_NF.mp4", 50)
	testutil.WriteLocal(t, root, "20181029_131513_NF.mp4", 100)

	cutoff := time.Date(2018, 10, 27, 0, 0, 0, 0, time.UTC)
	plan := Build(nil, scanDir(t, root), models.PriorityDate, cutoff, true)

	assert.Equal(t, []string{
		"20181020_090000_NF.mp4",
		"20181020_090000_NF.thm",
		"20181020_100000_NF.mp4",
	}, names(plan.Prune), "outdated files and temps, never recent ones")
}

func TestBuildNoPruneWithoutCutoff(t *testing.T) {
	root := t.TempDir()
	// Present locally, absent from the device. Device rotation never
	// propagates to the archive.
	testutil.WriteLocal(t, root, "20181020_090000_NF.mp4", 100)

	plan := Build(nil, scanDir(t, root), models.PriorityDate, time.Time{}, false)
	assert.Empty(t, plan.Prune)
}

func TestPriorityOrdering(t *testing.T) {
	remote := []models.FileEntry{
		remoteEntry(t, "20181029_131513_NF.mp4", 100),
		remoteEntry(t, "20181028_080000_PF.mp4", 100),
		remoteEntry(t, "20181028_090000_MF.mp4", 100),
		remoteEntry(t, "20181030_070000_EF.mp4", 100),
	}

	videoOrder := func(priority models.Priority) []string {
		plan := Build(remote, scanDir(t, t.TempDir()), priority, time.Time{}, false)
		var videos []string
		for _, d := range plan.Downloads {
			if d.Kind == models.KindVideo {
				videos = append(videos, d.Name)
			}
		}
		return videos
	}

	assert.Equal(t, []string{
		"20181028_080000_PF.mp4",
		"20181028_090000_MF.mp4",
		"20181029_131513_NF.mp4",
		"20181030_070000_EF.mp4",
	}, videoOrder(models.PriorityDate), "oldest first")

	assert.Equal(t, []string{
		"20181030_070000_EF.mp4",
		"20181029_131513_NF.mp4",
		"20181028_090000_MF.mp4",
		"20181028_080000_PF.mp4",
	}, videoOrder(models.PriorityRDate), "newest first")

	assert.Equal(t, []string{
		"20181028_090000_MF.mp4",
		"20181030_070000_EF.mp4",
		"20181029_131513_NF.mp4",
		"20181028_080000_PF.mp4",
	}, videoOrder(models.PriorityType), "manual, event, normal, parking")
}

func TestBuildDeterministicUnderShuffle(t *testing.T) {
	remote := []models.FileEntry{
		remoteEntry(t, "20181029_131513_NF.mp4", 100),
		remoteEntry(t, "20181029_131513_NR.mp4", 100),
		remoteEntry(t, "20181028_080000_PF.mp4", 100),
		remoteEntry(t, "20181028_090000_MF.mp4", 100),
		remoteEntry(t, "20181030_070000_EF.mp4", 100),
	}

	cat := scanDir(t, t.TempDir())
	reference := Build(remote, cat, models.PriorityType, time.Time{}, false)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := append([]models.FileEntry(nil), remote...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		plan := Build(shuffled, cat, models.PriorityType, time.Time{}, false)
		assert.Equal(t, names(reference.Downloads), names(plan.Downloads))
	}
}

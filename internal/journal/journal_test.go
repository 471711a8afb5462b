package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/dashsync/internal/events"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(filepath.Join(t.TempDir(), "runs.db"), events.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndReadRuns(t *testing.T) {
	j := openTestJournal(t)

	started := time.Date(2018, 10, 29, 3, 0, 0, 0, time.UTC)
	first := RunRecord{
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Outcome:    "synced",
		Downloaded: 12,
		Skipped:    1,
		Pruned:     4,
		Bytes:      123456789,
	}
	second := RunRecord{
		StartedAt:  started.Add(time.Hour),
		FinishedAt: started.Add(time.Hour + time.Second),
		Outcome:    "offline",
		Error:      "device unreachable",
	}

	require.NoError(t, j.RecordRun(first))
	require.NoError(t, j.RecordRun(second))

	runs, err := j.LastRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Equal(t, "offline", runs[0].Outcome)
	assert.Equal(t, "device unreachable", runs[0].Error)
	assert.Equal(t, "synced", runs[1].Outcome)
	assert.Equal(t, 12, runs[1].Downloaded)
	assert.Equal(t, 1, runs[1].Skipped)
	assert.Equal(t, 4, runs[1].Pruned)
	assert.Equal(t, int64(123456789), runs[1].Bytes)
	assert.True(t, runs[1].StartedAt.Equal(started))
}

func TestLastRunsLimit(t *testing.T) {
	j := openTestJournal(t)

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, j.RecordRun(RunRecord{
			StartedAt:  now.Add(time.Duration(i) * time.Minute),
			FinishedAt: now.Add(time.Duration(i)*time.Minute + time.Second),
			Outcome:    "synced",
		}))
	}

	runs, err := j.LastRuns(3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	j, err := Open(path, events.Discard())
	require.NoError(t, err)
	require.NoError(t, j.RecordRun(RunRecord{
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Outcome:    "synced",
	}))
	require.NoError(t, j.Close())

	j, err = Open(path, events.Discard())
	require.NoError(t, err)
	defer j.Close()

	runs, err := j.LastRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

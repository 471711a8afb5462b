package grouping

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/dashsync/internal/models"
)

func TestParseScheme(t *testing.T) {
	for _, s := range []string{"none", "daily", "weekly", "monthly", "yearly"} {
		got, err := ParseScheme(s)
		require.NoError(t, err)
		assert.Equal(t, Scheme(s), got)
	}

	got, err := ParseScheme("")
	require.NoError(t, err)
	assert.Equal(t, None, got)

	_, err = ParseScheme("hourly")
	assert.Error(t, err)
}

func TestDir(t *testing.T) {
	ts := time.Date(2018, 10, 29, 13, 15, 13, 0, time.UTC) // a Monday

	assert.Equal(t, "", None.Dir(ts))
	assert.Equal(t, "2018-10-29", Daily.Dir(ts))
	assert.Equal(t, "2018-10-29", Weekly.Dir(ts))
	assert.Equal(t, "2018-10", Monthly.Dir(ts))
	assert.Equal(t, "2018", Yearly.Dir(ts))
}

func TestWeeklyAnchorsOnMonday(t *testing.T) {
	// Every day of one calendar week maps to the same Monday bucket.
	monday := time.Date(2018, 10, 29, 0, 0, 0, 0, time.UTC)
	for day := 0; day < 7; day++ {
		ts := monday.AddDate(0, 0, day).Add(9 * time.Hour)
		assert.Equal(t, "2018-10-29", Weekly.Dir(ts), ts.Weekday())
	}

	// Sunday belongs to the preceding Monday, not the following one.
	sunday := time.Date(2018, 10, 28, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2018-10-22", Weekly.Dir(sunday))
}

func TestPlace(t *testing.T) {
	entry := models.FileEntry{
		Key: models.RecordingKey{
			Timestamp: time.Date(2018, 10, 30, 13, 15, 13, 0, time.UTC),
			Type:      models.TypeNormal,
		},
		Kind: models.KindVideo,
		Name: "20181030_131513_NF.mp4",
	}

	assert.Equal(t, "20181030_131513_NF.mp4", Place(entry, None))
	assert.Equal(t, filepath.Join("2018-10-30", "20181030_131513_NF.mp4"), Place(entry, Daily))
	assert.Equal(t, filepath.Join("2018-10-29", "20181030_131513_NF.mp4"), Place(entry, Weekly))
	assert.Equal(t, filepath.Join("2018-10", "20181030_131513_NF.mp4"), Place(entry, Monthly))
}

func TestTempPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("/dest", "2018-10-29", ".20181029_131513_NF.mp4"),
		TempPath("/dest", filepath.Join("2018-10-29", "20181029_131513_NF.mp4")))
	assert.Equal(t,
		filepath.Join("/dest", ".20181029_131513_NF.mp4"),
		TempPath("/dest", "20181029_131513_NF.mp4"))
}

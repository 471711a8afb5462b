package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/dashsync/internal/models"
)

func TestAcquireAndRelease(t *testing.T) {
	root := t.TempDir()

	l, err := Acquire(root)
	require.NoError(t, err)

	// Held lock blocks a second acquisition.
	_, err = Acquire(root)
	assert.ErrorIs(t, err, models.ErrAlreadyRunning)

	require.NoError(t, l.Release())

	// Released lock can be taken again.
	l2, err := Acquire(root)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestLockFileSurvivesRelease(t *testing.T) {
	root := t.TempDir()

	l, err := Acquire(root)
	require.NoError(t, err)
	require.NoError(t, l.Release())

	_, err = os.Stat(filepath.Join(root, FileName))
	assert.NoError(t, err, "lock file is never removed")
}

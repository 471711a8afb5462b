package main

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/dashsync/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "unreachable device exits clean",
			err:  &models.RemoteError{Kind: models.RemoteUnreachable, Addr: "cam", Err: errors.New("refused")},
			want: exitOK,
		},
		{
			name: "timeout exits clean",
			err:  &models.RemoteError{Kind: models.RemoteTimeout, Addr: "cam", Err: errors.New("deadline")},
			want: exitOK,
		},
		{
			name: "protocol error",
			err:  &models.RemoteError{Kind: models.RemoteProtocol, Addr: "cam", Err: errors.New("bad body")},
			want: exitProtocol,
		},
		{
			name: "server error",
			err:  &models.RemoteError{Kind: models.RemoteServer, Addr: "cam", Err: errors.New("HTTP 500")},
			want: exitProtocol,
		},
		{
			name: "destination not a directory",
			err:  models.ErrDestinationNotDir,
			want: exitFilesystem,
		},
		{
			name: "permission denied",
			err:  &fs.PathError{Op: "open", Path: "/dest", Err: fs.ErrPermission},
			want: exitFilesystem,
		},
		{
			name: "anything else",
			err:  errors.New("boom"),
			want: exitUnexpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", formatBytes(0))
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KiB", formatBytes(1024))
	assert.Equal(t, "1.5 MiB", formatBytes(3*512*1024))
	assert.Equal(t, "2.0 GiB", formatBytes(2*1024*1024*1024))
}

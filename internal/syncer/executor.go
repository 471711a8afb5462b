package syncer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/TheMichaelB/dashsync/internal/events"
	"github.com/TheMichaelB/dashsync/internal/grouping"
	"github.com/TheMichaelB/dashsync/internal/models"
)

// download transfers one file into its final grouped location. The transfer
// writes to a hidden temporary next to the target and renames on success,
// so a crash leaves nothing masquerading as complete. A nonzero temp from a
// previous run is resumed with a range request; if the device ignores the
// range, the temp restarts from zero.
//
// TransferError returns mean "skip this file"; anything else is fatal to
// the run.
func (e *Engine) download(ctx context.Context, entry models.FileEntry) (int64, error) {
	finalRel := grouping.Place(entry, e.scheme)
	finalAbs := filepath.Join(e.root, finalRel)

	log := e.recordingLogger(entry).WithField("file", finalRel)

	if e.cfg.Sync.DryRun {
		log.Info("DRY RUN Would download recording file")
		return 0, nil
	}

	if err := os.MkdirAll(filepath.Dir(finalAbs), 0o755); err != nil {
		return 0, fmt.Errorf("create grouping directory: %w", err)
	}

	tempAbs := grouping.TempPath(e.root, finalRel)

	f, err := os.OpenFile(tempAbs, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open temporary file: %w", err)
	}

	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("seek temporary file: %w", err)
	}
	if offset > 0 {
		log.WithField("offset", offset).Debug("Resuming partial download")
	}

	body, info, err := e.client.FetchRecording(ctx, entry.Name, offset)
	if err != nil {
		f.Close()
		return 0, err
	}
	defer body.Close()

	if offset > 0 && !info.Resumed {
		log.Debug("Device ignored range request; restarting from zero")
		if err := f.Truncate(0); err != nil {
			f.Close()
			return 0, fmt.Errorf("truncate temporary file: %w", err)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return 0, fmt.Errorf("rewind temporary file: %w", err)
		}
		offset = 0
	}

	barTotal := info.Length
	if barTotal >= 0 {
		barTotal += offset
	}
	task := e.progress.Start(entry.Name, barTotal)
	if offset > 0 {
		task.Increment(int(offset))
	}

	started := time.Now()
	written, err := io.Copy(io.MultiWriter(f, &progressWriter{task: task}), body)
	if err != nil {
		// The temp keeps every byte the transport acknowledged; the next
		// run resumes from here.
		f.Close()
		task.Complete()
		return written, &models.TransferError{Name: entry.Name, Err: err}
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return written, fmt.Errorf("sync temporary file: %w", err)
	}
	if err := f.Close(); err != nil {
		return written, fmt.Errorf("close temporary file: %w", err)
	}

	if err := os.Rename(tempAbs, finalAbs); err != nil {
		return written, fmt.Errorf("rename temporary file: %w", err)
	}
	task.Complete()

	elapsed := time.Since(started)
	log.WithFields(map[string]interface{}{
		"size":       offset + written,
		"throughput": throughput(written, elapsed),
	}).Info("Downloaded recording file")

	return written, nil
}

// recordingLogger tags normal and manual recordings as routine so cron mode
// still reports them; everything else stays on the default stream.
func (e *Engine) recordingLogger(entry models.FileEntry) *events.Logger {
	switch entry.Key.Type.Class() {
	case models.ClassNormal, models.ClassManual:
		return e.logger.WithCategory(events.CategoryRoutine)
	default:
		return e.logger
	}
}

// throughput formats an observed transfer rate for diagnosing flaky links.
func throughput(bytes int64, elapsed time.Duration) string {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f KiB/s", float64(bytes)/1024/secs)
}

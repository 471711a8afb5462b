package syncer

// ProgressReporter receives per-transfer progress. The CLI layer installs a
// terminal implementation for interactive runs; the default reporter does
// nothing.
type ProgressReporter interface {
	// Start begins tracking one transfer. Total may be negative when the
	// device does not report a length.
	Start(name string, total int64) ProgressTask

	// Wait blocks until all rendering has flushed.
	Wait()
}

// ProgressTask tracks one file transfer.
type ProgressTask interface {
	Increment(n int)
	Complete()
}

type noopReporter struct{}

func (noopReporter) Start(string, int64) ProgressTask { return noopTask{} }
func (noopReporter) Wait()                            {}

type noopTask struct{}

func (noopTask) Increment(int) {}
func (noopTask) Complete()     {}

// progressWriter feeds byte counts into a task as data is written.
type progressWriter struct {
	task ProgressTask
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.task.Increment(len(p))
	return len(p), nil
}

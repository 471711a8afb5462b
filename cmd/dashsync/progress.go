package main

import (
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/TheMichaelB/dashsync/internal/syncer"
)

// progressReporter renders per-file download bars in interactive runs.
type progressReporter struct {
	progress *mpb.Progress
}

func newProgressReporter() *progressReporter {
	return &progressReporter{
		progress: mpb.New(mpb.WithWidth(64)),
	}
}

func (r *progressReporter) Start(name string, total int64) syncer.ProgressTask {
	if total < 0 {
		total = 0
	}

	bar := r.progress.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1}),
			decor.Counters(decor.SizeB1024(0), "% .1f / % .1f", decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Percentage(decor.WCSyncSpace), "done"),
			decor.AverageSpeed(decor.SizeB1024(0), "% .1f", decor.WCSyncSpace),
		),
	)

	return &progressTask{bar: bar}
}

func (r *progressReporter) Wait() {
	r.progress.Wait()
}

type progressTask struct {
	bar *mpb.Bar
}

func (t *progressTask) Increment(n int) {
	t.bar.IncrBy(n)
}

func (t *progressTask) Complete() {
	t.bar.SetTotal(-1, true)
}

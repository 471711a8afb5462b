// Package syncer orchestrates one sync run: lock, scan, list, plan,
// sequential downloads behind the disk guard, retention pruning, and stale
// temp cleanup. Runs are stateless and safely re-entrant; anything that
// fails is simply retried by the next scheduled invocation.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TheMichaelB/dashsync/internal/catalog"
	"github.com/TheMichaelB/dashsync/internal/config"
	"github.com/TheMichaelB/dashsync/internal/diskguard"
	"github.com/TheMichaelB/dashsync/internal/events"
	"github.com/TheMichaelB/dashsync/internal/grouping"
	"github.com/TheMichaelB/dashsync/internal/journal"
	"github.com/TheMichaelB/dashsync/internal/lock"
	"github.com/TheMichaelB/dashsync/internal/models"
	"github.com/TheMichaelB/dashsync/internal/planner"
	"github.com/TheMichaelB/dashsync/internal/transport"
)

// Outcome classifies how a run ended. Offline and locked are expected
// steady states, not failures.
type Outcome string

const (
	OutcomeSynced   Outcome = "synced"
	OutcomeOffline  Outcome = "offline"
	OutcomeLocked   Outcome = "locked"
	OutcomeDiskFull Outcome = "disk-full"
)

// Result summarizes one run.
type Result struct {
	Outcome Outcome

	// Planned counts files selected for download; PlannedPrune counts
	// files selected for removal. In a dry run these are the whole story.
	Planned      int
	PlannedPrune int

	Downloaded int
	Skipped    int
	Pruned     int
	Bytes      int64
}

// Engine runs the synchronization.
type Engine struct {
	cfg      *config.Config
	root     string
	scheme   grouping.Scheme
	priority models.Priority

	client   *transport.Client
	guard    *diskguard.Guard
	manager  *grouping.Manager
	journal  *journal.Journal
	progress ProgressReporter
	logger   *events.Logger
	now      func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithGuard replaces the disk guard.
func WithGuard(g *diskguard.Guard) Option {
	return func(e *Engine) { e.guard = g }
}

// WithJournal enables run journaling.
func WithJournal(j *journal.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithProgress installs a progress reporter.
func WithProgress(p ProgressReporter) Option {
	return func(e *Engine) { e.progress = p }
}

// WithClock replaces the time source, for retention tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine from validated configuration.
func New(cfg *config.Config, logger *events.Logger, opts ...Option) (*Engine, error) {
	root, err := filepath.Abs(cfg.Sync.Destination)
	if err != nil {
		return nil, fmt.Errorf("resolve destination: %w", err)
	}

	scheme, err := grouping.ParseScheme(cfg.Sync.Grouping)
	if err != nil {
		return nil, err
	}

	priority, err := models.ParsePriority(cfg.Sync.Priority)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		root:     root,
		scheme:   scheme,
		priority: priority,
		client:   transport.NewClient(cfg.Device.Address, cfg.Device.Timeout, logger),
		guard:    diskguard.New(cfg.Sync.MaxUsedDiskPercent, logger),
		manager:  grouping.NewManager(root, cfg.Sync.DryRun, logger),
		progress: noopReporter{},
		logger:   logger.WithField("component", "syncer"),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Run performs one synchronization pass.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := e.now()
	res := &Result{Outcome: OutcomeSynced}

	if err := e.verifyDestination(); err != nil {
		return nil, err
	}

	lk, err := lock.Acquire(e.root)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyRunning) {
			e.logger.Debug("Another instance is syncing this destination; nothing to do")
			res.Outcome = OutcomeLocked
			return res, nil
		}
		return nil, err
	}
	defer func() { _ = lk.Release() }()

	cutoff, hasCutoff, err := e.cfg.CutoffDate(start)
	if err != nil {
		return nil, err
	}
	if hasCutoff {
		e.logger.WithField("cutoff", cutoff.Format("2006-01-02")).Info("Retention cutoff date")
	}

	local, err := catalog.Scan(e.root, e.logger)
	if err != nil {
		return nil, err
	}

	remote, err := e.client.Listing(ctx)
	if err != nil {
		var rerr *models.RemoteError
		if errors.As(err, &rerr) && rerr.Expected() {
			e.logger.WithCategory(events.CategoryOffline).WithError(err).
				Warn("Dashcam not reachable; will retry on the next scheduled run")
			res.Outcome = OutcomeOffline
			e.record(start, res, nil)
			return res, nil
		}
		e.record(start, res, err)
		return nil, err
	}

	plan := planner.Build(remote, local, e.priority, cutoff, hasCutoff)
	res.Planned = len(plan.Downloads)
	res.PlannedPrune = len(plan.Prune)

	e.logger.WithFields(map[string]interface{}{
		"downloads": res.Planned,
		"prune":     res.PlannedPrune,
	}).Info("Computed sync plan")

	if err := e.runDownloads(ctx, plan.Downloads, res); err != nil {
		e.record(start, res, err)
		return nil, err
	}

	// Pruning runs strictly after the download phase, whether it finished
	// or was halted by the disk guard; it never races a transfer.
	pruned, err := e.manager.Prune(plan.Prune)
	res.Pruned = pruned
	if err != nil {
		e.record(start, res, err)
		return nil, err
	}

	e.manager.CleanStaleTemps(local.Partials(), plan.RemoteNames)

	e.progress.Wait()
	e.record(start, res, nil)

	e.logger.WithFields(map[string]interface{}{
		"downloaded": res.Downloaded,
		"skipped":    res.Skipped,
		"pruned":     res.Pruned,
		"bytes":      res.Bytes,
	}).Info("Sync finished")

	return res, nil
}

// runDownloads transfers planned files in order, one at a time. The disk
// guard is consulted before each file; tripping it abandons the remainder
// of the plan without creating a partial file for the halted item.
func (e *Engine) runDownloads(ctx context.Context, downloads []models.FileEntry, res *Result) error {
	for _, entry := range downloads {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.guard.Check(e.root); err != nil {
			var full *models.DiskFullError
			if errors.As(err, &full) {
				e.logger.WithCategory(events.CategoryUnexpected).WithError(err).
					Error("Halting downloads: destination disk over threshold")
				res.Outcome = OutcomeDiskFull
				return nil
			}
			return err
		}

		n, err := e.download(ctx, entry)
		res.Bytes += n
		if err != nil {
			var terr *models.TransferError
			if errors.As(err, &terr) {
				// One bad file must not block the rest of the plan; the
				// leftover temp resumes on a future run.
				e.logger.WithError(err).Warn("Skipping file after transfer failure")
				res.Skipped++
				continue
			}
			return err
		}

		if !e.cfg.Sync.DryRun {
			res.Downloaded++
		}
	}

	return nil
}

// verifyDestination ensures the destination exists and is a directory.
func (e *Engine) verifyDestination() error {
	info, err := os.Stat(e.root)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(e.root, 0o755); mkErr != nil {
			return fmt.Errorf("create destination: %w", mkErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat destination: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", models.ErrDestinationNotDir, e.root)
	}
	return nil
}

// record writes the run summary to the journal, if one is configured.
// Journaling never mutates anything in a dry run.
func (e *Engine) record(start time.Time, res *Result, runErr error) {
	if e.journal == nil || e.cfg.Sync.DryRun {
		return
	}

	rec := journal.RunRecord{
		StartedAt:  start,
		FinishedAt: e.now(),
		Outcome:    string(res.Outcome),
		Downloaded: res.Downloaded,
		Skipped:    res.Skipped,
		Pruned:     res.Pruned,
		Bytes:      res.Bytes,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}

	if err := e.journal.RecordRun(rec); err != nil {
		e.logger.WithError(err).Warn("Could not record run in journal")
	}
}

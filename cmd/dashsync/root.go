package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TheMichaelB/dashsync/internal/config"
	"github.com/TheMichaelB/dashsync/internal/events"
	"github.com/TheMichaelB/dashsync/internal/journal"
	"github.com/TheMichaelB/dashsync/internal/models"
	"github.com/TheMichaelB/dashsync/internal/syncer"
)

const version = "1.0.0"

// Exit codes surfaced to the scheduler. Expected steady states (device
// offline, another instance running) exit zero so cron does not page anyone
// for a parked car.
const (
	exitOK         = 0
	exitProtocol   = 1
	exitFilesystem = 2
	exitUnexpected = 3
)

var (
	cfgFile string

	flagDest        string
	flagKeep        string
	flagGrouping    string
	flagPriority    string
	flagMaxUsedDisk int
	flagTimeout     float64
	flagJournal     string
	flagVerbose     int
	flagQuiet       bool
	flagCron        bool
	flagDryRun      bool
)

var rootCmd = &cobra.Command{
	Use:   "dashsync <address>",
	Short: "Synchronize dashcam recordings with a local directory",
	Long: `Dashsync downloads recordings from a dashcam's embedded HTTP server
into a local directory, incrementally and resumably. It is designed for
unattended, repeated invocation from a scheduler against a device that is
only intermittently reachable.`,
	Example: `  dashsync 192.168.1.99 -d /mnt/recordings -k 2w -g daily
  dashsync dashcam.local --priority type --cron`,
	Version:       version,
	Args:          cobra.ExactArgs(1),
	RunE:          runRoot,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.Flags()

	f.StringVar(&cfgFile, "config", "", "config file (default searches ./dashsync.yaml)")
	f.StringVarP(&flagDest, "destination", "d", "", "destination directory (default current directory)")
	f.StringVarP(&flagKeep, "keep", "k", "", "retention period as <n>[dw]; older recordings are removed")
	f.StringVarP(&flagGrouping, "grouping", "g", "", "group recordings in subdirectories: none, daily, weekly, monthly, yearly")
	f.StringVarP(&flagPriority, "priority", "p", "", "download ordering: date, rdate, type")
	f.IntVarP(&flagMaxUsedDisk, "max-used-disk", "u", 0, "stop downloading when destination disk is over this percent used")
	f.Float64VarP(&flagTimeout, "timeout", "t", 0, "connection timeout in seconds")
	f.StringVar(&flagJournal, "journal", "", "path of an optional SQLite run journal")
	f.CountVarP(&flagVerbose, "verbose", "v", "increase verbosity")
	f.BoolVarP(&flagQuiet, "quiet", "q", false, "only report unexpected errors; overrides verbosity")
	f.BoolVar(&flagCron, "cron", false, "cron mode: only report normal/manual downloads and unexpected errors")
	f.BoolVar(&flagDryRun, "dry-run", false, "report what would be done without doing it")
}

// exitError carries a process exit code up to main.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func run() int {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.err != nil {
				printError("%v", ee.err)
			}
			return ee.code
		}
		printError("%v", err)
		return exitUnexpected
	}
	return exitOK
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return &exitError{code: exitUnexpected, err: err}
	}

	logger := newLogger(cfg)

	eng, err := newEngine(cfg, logger)
	if err != nil {
		return &exitError{code: exitUnexpected, err: err}
	}

	res, err := eng.Run(context.Background())
	if err != nil {
		return &exitError{code: classify(err), err: err}
	}

	report(cfg, res)

	if res.Outcome == syncer.OutcomeDiskFull {
		return &exitError{code: exitFilesystem}
	}
	return nil
}

// buildConfig merges config file, environment and flags, flags winning.
func buildConfig(cmd *cobra.Command, address string) (*config.Config, error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, err
	}

	cfg.Device.Address = address

	flags := cmd.Flags()
	if flags.Changed("destination") {
		cfg.Sync.Destination = flagDest
	}
	if flags.Changed("keep") {
		cfg.Sync.Keep = flagKeep
	}
	if flags.Changed("grouping") {
		cfg.Sync.Grouping = flagGrouping
	}
	if flags.Changed("priority") {
		cfg.Sync.Priority = flagPriority
	}
	if flags.Changed("max-used-disk") {
		cfg.Sync.MaxUsedDiskPercent = flagMaxUsedDisk
	}
	if flags.Changed("timeout") {
		cfg.Device.Timeout = time.Duration(flagTimeout * float64(time.Second))
	}
	if flags.Changed("journal") {
		cfg.Journal.Path = flagJournal
	}
	if flagDryRun {
		cfg.Sync.DryRun = true
	}
	if flagCron {
		cfg.Log.Cron = true
	}
	if flagQuiet {
		cfg.Log.Quiet = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newLogger derives severity from verbosity flags. Cron mode logs at info
// so routine download lines pass; the category filter in the logger drops
// everything else below error.
func newLogger(cfg *config.Config) *events.Logger {
	var level events.LogLevel
	switch {
	case cfg.Log.Quiet:
		level = events.ErrorLevel
	case flagVerbose >= 2:
		level = events.DebugLevel
	case flagVerbose == 1:
		level = events.InfoLevel
	case cfg.Log.Cron:
		level = events.InfoLevel
	default:
		level = events.ParseLevel(cfg.Log.Level)
	}

	return events.New(level, cfg.Log.Format, cfg.Log.Cron, os.Stderr)
}

func newEngine(cfg *config.Config, logger *events.Logger) (*syncer.Engine, error) {
	var opts []syncer.Option

	if cfg.Journal.Path != "" && !cfg.Sync.DryRun {
		j, err := journal.Open(cfg.Journal.Path, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, syncer.WithJournal(j))
	}

	if interactive(cfg) {
		opts = append(opts, syncer.WithProgress(newProgressReporter()))
	}

	return syncer.New(cfg, logger, opts...)
}

// interactive reports whether progress bars should render.
func interactive(cfg *config.Config) bool {
	return !cfg.Log.Quiet && !cfg.Log.Cron && !cfg.Sync.DryRun &&
		term.IsTerminal(int(os.Stdout.Fd()))
}

func report(cfg *config.Config, res *syncer.Result) {
	if cfg.Log.Quiet || cfg.Log.Cron {
		return
	}

	switch res.Outcome {
	case syncer.OutcomeLocked:
		printWarning("Another instance is already syncing this destination.")
	case syncer.OutcomeOffline:
		printWarning("Dashcam is not reachable; nothing to do.")
	case syncer.OutcomeDiskFull:
		printError("Downloads halted: destination disk over the usage threshold.")
	default:
		if cfg.Sync.DryRun {
			fmt.Printf("Dry run: would download %d file(s), remove %d outdated file(s).\n",
				res.Planned, res.PlannedPrune)
			return
		}
		printSuccess("Synced: %d downloaded, %d skipped, %d pruned (%s transferred).",
			res.Downloaded, res.Skipped, res.Pruned, formatBytes(res.Bytes))
	}
}

// classify maps a run error to the scheduler-facing exit code.
func classify(err error) int {
	var rerr *models.RemoteError
	if errors.As(err, &rerr) {
		if rerr.Expected() {
			return exitOK
		}
		return exitProtocol
	}

	if errors.Is(err, models.ErrDestinationNotDir) || errors.Is(err, fs.ErrPermission) {
		return exitFilesystem
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return exitFilesystem
	}

	return exitUnexpected
}

package domain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"pragmatic.dev/pkg/pragmatic/internal/adapter"
	"pragmatic.dev/pkg/pragmatic/internal/controller"
	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

// DefaultWatchDebounce groups bursts of file events into one re-run.
const DefaultWatchDebounce = 300 * time.Millisecond

// AuditArgs contains the arguments for an audit run.
type AuditArgs struct {
	// Root is any path inside the project; the go.mod directory is searched upward.
	Root    m.Path
	Config  Config
	Checks  []m.CheckKind
	Reports m.Path // directory for the persisted report, empty to skip saving
	Watch   bool
	// Debounce overrides DefaultWatchDebounce when positive.
	Debounce time.Duration
}

// ViewArgs contains the arguments for viewing a stored report.
type ViewArgs struct {
	Reports m.Path
}

// Workflow ties discovery, the checks, report storage and the UI together.
type Workflow interface {
	Audit(ctx context.Context, args AuditArgs) (m.Report, error)
	View(ctx context.Context, args ViewArgs) error
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.GoFileAdapter
	adapter.ReportStore
	controller.UI
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	goAdapter adapter.GoFileAdapter,
	reportStore adapter.ReportStore,
	ui controller.UI,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		GoFileAdapter:   goAdapter,
		ReportStore:     reportStore,
		UI:              ui,
	}
}

func (w *workflow) Audit(ctx context.Context, args AuditArgs) (m.Report, error) {
	root, err := w.FindProjectRoot(args.Root)
	if err != nil {
		slog.Error("Failed to find project root", "path", args.Root, "error", err)
		return m.Report{}, fmt.Errorf("find project root: %w", err)
	}

	if err := w.Start(ctx, controller.WithAuditMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return m.Report{}, err
	}
	defer w.Close(ctx)

	report, err := w.auditOnce(ctx, root, args)
	if err != nil || !args.Watch {
		return report, err
	}

	return w.watch(ctx, root, args, report)
}

func (w *workflow) auditOnce(ctx context.Context, root m.Path, args AuditArgs) (m.Report, error) {
	reg, err := NewRegistry(w.SourceFSAdapter, w.GoFileAdapter, root)
	if err != nil {
		slog.Error("Failed to index project", "root", root, "error", err)
		return m.Report{}, fmt.Errorf("index project: %w", err)
	}

	checks := args.Checks
	if len(checks) == 0 {
		checks = m.AllChecks
	}

	w.DisplayAuditStart(ctx, root, checks)

	report, err := NewAuditor(reg, args.Config).Run(ctx, checks...)
	if err != nil {
		return report, fmt.Errorf("audit: %w", err)
	}

	for _, check := range report.Checks {
		w.DisplayCheckResult(ctx, check, report.FindingsFor(check))
	}

	if err := w.DisplayReport(ctx, report); err != nil {
		slog.Error("Failed to display report", "error", err)
		return report, fmt.Errorf("display: %w", err)
	}

	if args.Reports != "" {
		if err := w.SaveReport(args.Reports, report); err != nil {
			return report, fmt.Errorf("save report: %w", err)
		}
	}

	return report, nil
}

// watch re-runs the audit whenever a Go file below root changes, until ctx
// is done. Audit failures during watching are logged and do not stop the
// loop.
func (w *workflow) watch(ctx context.Context, root m.Path, args AuditArgs, last m.Report) (m.Report, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("Failed to create file watcher", "error", err)
		return last, fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := w.addWatchDirs(watcher, root); err != nil {
		return last, err
	}

	debounce := args.Debounce
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		changed string
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}

			return last, nil

		case event, ok := <-watcher.Events:
			if !ok {
				return last, nil
			}

			if event.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					_ = w.addWatchDirs(watcher, m.Path(event.Name))
				}
			}

			if filepath.Ext(event.Name) != goExt || (event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write)) {
				continue
			}

			changed = event.Name

			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}

			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return last, nil
			}

			slog.Warn("file watcher error", "error", err)

		case <-fire:
			fire = nil

			w.DisplayWatchEvent(ctx, changed)

			report, err := w.auditOnce(ctx, root, args)
			if err != nil {
				slog.Error("Audit re-run failed", "trigger", changed, "error", err)
				continue
			}

			last = report
		}
	}
}

func (w *workflow) addWatchDirs(watcher *fsnotify.Watcher, dir m.Path) error {
	return w.Walk(dir, true, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() {
			return nil
		}

		if err := watcher.Add(path); err != nil {
			slog.Error("Failed to watch directory", "dir", path, "error", err)
			return fmt.Errorf("watch %s: %w", path, err)
		}

		return nil
	})
}

func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	report, err := w.LoadReport(args.Reports)
	if err != nil {
		slog.Error("Failed to load report", "dir", args.Reports, "error", err)
		return fmt.Errorf("load report: %w", err)
	}

	if err := w.Start(ctx, controller.WithViewMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	if err := w.DisplayReport(ctx, report); err != nil {
		w.Close(ctx)
		slog.Error("Failed to display report", "error", err)

		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)
	w.Close(ctx)

	return nil
}

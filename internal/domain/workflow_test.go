package domain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pragmatic.dev/pkg/pragmatic/internal/adapter"
	"pragmatic.dev/pkg/pragmatic/internal/controller"
	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

// recordingUI captures what the workflow shows.
type recordingUI struct {
	mu       sync.Mutex
	modes    []controller.StartOption
	starts   []m.Path
	results  map[m.CheckKind]int
	reports  []m.Report
	events   []string
	reported chan m.Report
}

func newRecordingUI() *recordingUI {
	return &recordingUI{results: make(map[m.CheckKind]int), reported: make(chan m.Report, 16)}
}

func (r *recordingUI) Start(ctx context.Context, options ...controller.StartOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.modes = append(r.modes, options...)

	return ctx.Err()
}

func (r *recordingUI) Close(context.Context) {}

func (r *recordingUI) Wait(context.Context) {}

func (r *recordingUI) DisplayAuditStart(_ context.Context, root m.Path, _ []m.CheckKind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.starts = append(r.starts, root)
}

func (r *recordingUI) DisplayCheckResult(_ context.Context, check m.CheckKind, findings []m.Finding) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.results[check] = len(findings)
}

func (r *recordingUI) DisplayReport(_ context.Context, report m.Report) error {
	r.mu.Lock()
	r.reports = append(r.reports, report)
	r.mu.Unlock()

	r.reported <- report

	return nil
}

func (r *recordingUI) DisplayWatchEvent(_ context.Context, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, path)
}

func newTestWorkflow(ui controller.UI) Workflow {
	return NewWorkflow(adapter.NewLocalSourceFSAdapter(), adapter.NewLocalGoFileAdapter(), adapter.NewReportStore(), ui)
}

func TestWorkflow_AuditAndView(t *testing.T) {
	root := writeProject(t, map[string]string{
		"shop/orders/filters.go": "package orders\n\ntype FilterSet struct{}\n\ntype OrderFilterSet struct {\n\tFilterSet\n}\n",
	})
	reports := m.Path(filepath.Join(t.TempDir(), "reports"))

	ui := newRecordingUI()
	wf := newTestWorkflow(ui)

	report, err := wf.Audit(context.Background(), AuditArgs{
		Root:    m.Path(filepath.Join(root, "shop", "orders")),
		Config:  DefaultConfig("shop"),
		Checks:  []m.CheckKind{m.CheckFilters},
		Reports: reports,
	})
	require.NoError(t, err)

	assert.Equal(t, m.Path(root), report.Root)
	assert.Equal(t, []m.Path{m.Path(root)}, ui.starts)
	assert.Equal(t, map[m.CheckKind]int{m.CheckFilters: 1}, ui.results)
	require.Len(t, ui.reports, 1)

	require.NoError(t, wf.View(context.Background(), ViewArgs{Reports: reports}))
	require.Len(t, ui.reports, 2)
	assert.Equal(t, report.Findings, ui.reports[1].Findings)
	assert.Equal(t, report.Checks, ui.reports[1].Checks)
}

func TestWorkflow_ViewWithoutReport(t *testing.T) {
	wf := newTestWorkflow(newRecordingUI())

	err := wf.View(context.Background(), ViewArgs{Reports: m.Path(t.TempDir())})
	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrNoReport))
}

func TestWorkflow_AuditOutsideProject(t *testing.T) {
	wf := newTestWorkflow(newRecordingUI())

	_, err := wf.Audit(context.Background(), AuditArgs{Root: m.Path(filepath.Join(t.TempDir(), "missing")), Config: DefaultConfig("shop")})
	require.Error(t, err)
}

func TestWorkflow_AuditWatch(t *testing.T) {
	root := writeProject(t, map[string]string{
		"shop/orders/signals.go":      "package orders\n\nfunc OnOrderCreated() {}\n",
		"shop/orders/signals_test.go": "package orders\n\nimport \"testing\"\n\nfunc TestOnOrderCreated(t *testing.T) {}\n",
	})

	ui := newRecordingUI()
	wf := newTestWorkflow(ui)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		report m.Report
		err    error
	}

	done := make(chan result, 1)

	go func() {
		report, err := wf.Audit(ctx, AuditArgs{
			Root:     m.Path(root),
			Config:   DefaultConfig("shop"),
			Checks:   []m.CheckKind{m.CheckSignals},
			Watch:    true,
			Debounce: 20 * time.Millisecond,
		})
		done <- result{report, err}
	}()

	select {
	case first := <-ui.reported:
		assert.True(t, first.Passed())
	case <-time.After(5 * time.Second):
		t.Fatal("initial audit did not complete")
	}

	// give the watcher time to register directories before changing a file
	time.Sleep(100 * time.Millisecond)

	signals := filepath.Join(root, "shop", "orders", "signals.go")
	require.NoError(t, os.WriteFile(signals, []byte("package orders\n\nfunc OnOrderCreated() {}\n\nfunc OnOrderPaid() {}\n"), 0o600))

	select {
	case second := <-ui.reported:
		assert.False(t, second.Passed())
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not re-run the audit")
	}

	cancel()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.False(t, res.report.Passed())
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	ui.mu.Lock()
	defer ui.mu.Unlock()
	assert.Contains(t, ui.events, signals)
}

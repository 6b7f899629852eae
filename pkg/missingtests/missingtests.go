// Package missingtests lets a project assert its own test coverage
// conventions from a regular go test run:
//
//	func TestConventions(t *testing.T) {
//		missingtests.Check(t, missingtests.Config{CheckModules: []string{"shop"}})
//	}
//
// Each selected check runs as a subtest and every finding is reported with
// t.Errorf.
package missingtests

import (
	"context"
	"fmt"
	"testing"

	"pragmatic.dev/pkg/pragmatic/internal/adapter"
	"pragmatic.dev/pkg/pragmatic/internal/domain"
	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

// Config selects what is audited. Nil slices keep the defaults.
type Config struct {
	// Root is any path inside the project. Defaults to the working directory.
	Root string
	// CheckModules are the dotted root packages to inspect.
	CheckModules   []string
	ExcludeModules []string
	FilterSetBases []string
	FilterBases    []string
	// Checks restricts the run to the named checks; empty runs all of them.
	Checks []string
}

// Check audits the project and fails t for every missing test.
func Check(t *testing.T, cfg Config) {
	t.Helper()

	report, err := audit(context.Background(), cfg)
	if err != nil {
		t.Fatalf("missing tests audit: %v", err)
	}

	for _, check := range report.Checks {
		findings := report.FindingsFor(check)

		t.Run(string(check), func(t *testing.T) {
			t.Helper()

			for _, finding := range findings {
				t.Errorf("%s", finding.Message)
			}
		})
	}
}

func audit(ctx context.Context, cfg Config) (m.Report, error) {
	root := cfg.Root
	if root == "" {
		root = "."
	}

	checks := make([]m.CheckKind, 0, len(cfg.Checks))

	for _, name := range cfg.Checks {
		kind, err := m.ParseCheckKind(name)
		if err != nil {
			return m.Report{}, err
		}

		checks = append(checks, kind)
	}

	fsAdapter := adapter.NewLocalSourceFSAdapter()

	projectRoot, err := fsAdapter.FindProjectRoot(m.Path(root))
	if err != nil {
		return m.Report{}, fmt.Errorf("find project root: %w", err)
	}

	reg, err := domain.NewRegistry(fsAdapter, adapter.NewLocalGoFileAdapter(), projectRoot)
	if err != nil {
		return m.Report{}, fmt.Errorf("index project: %w", err)
	}

	return domain.NewAuditor(reg, auditConfig(cfg)).Run(ctx, checks...)
}

func auditConfig(cfg Config) domain.Config {
	out := domain.DefaultConfig(cfg.CheckModules...)

	if cfg.ExcludeModules != nil {
		out.ExcludeModules = cfg.ExcludeModules
	}

	if cfg.FilterSetBases != nil {
		out.FilterSetBases = cfg.FilterSetBases
	}

	if cfg.FilterBases != nil {
		out.FilterBases = cfg.FilterBases
	}

	return out
}

package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

const suiteSuffix = "Suite"

// Config selects what the auditor inspects.
type Config struct {
	// CheckModules are the dotted root packages to inspect, e.g. shop or shop.orders.
	CheckModules []string
	// ExcludeModules are name fragments of modules that never carry obligations.
	ExcludeModules []string
	// FilterSetBases mark filter-set types; their filter methods need their own tests.
	FilterSetBases []string
	// FilterBases mark plain filter types.
	FilterBases []string
	// Threads bounds concurrent parsing during preload.
	Threads int
}

// DefaultConfig returns a Config with the conventional exclusions and bases.
func DefaultConfig(checkModules ...string) Config {
	return Config{
		CheckModules:   checkModules,
		ExcludeModules: append([]string(nil), DefaultExcludeModules...),
		FilterSetBases: []string{"FilterSet"},
		FilterBases:    []string{"Filter"},
		Threads:        4,
	}
}

// Auditor runs naming-convention coverage checks over a module registry.
type Auditor interface {
	CheckFilters(ctx context.Context) ([]m.Finding, error)
	CheckManagers(ctx context.Context) ([]m.Finding, error)
	CheckSignals(ctx context.Context) ([]m.Finding, error)
	CheckPermissions(ctx context.Context) ([]m.Finding, error)
	CheckCommentedAsserts(ctx context.Context) ([]m.Finding, error)
	Run(ctx context.Context, checks ...m.CheckKind) (m.Report, error)
}

type auditor struct {
	ModuleRegistry
	cfg Config
}

// NewAuditor creates an Auditor bound to reg.
func NewAuditor(reg ModuleRegistry, cfg Config) Auditor {
	return &auditor{ModuleRegistry: reg, cfg: cfg}
}

// testRef is a discovered test together with the module declaring it.
type testRef struct {
	module *m.Module
	test   m.TestFunc
}

func (t testRef) qualifiedName() string {
	if t.test.Receiver != "" {
		return t.module.Name + "." + t.test.Receiver + "." + t.test.Name
	}

	return t.module.Name + "." + t.test.Name
}

// Run executes the requested checks in order; all checks when none are given.
// A module that fails to load aborts the run.
func (a *auditor) Run(ctx context.Context, checks ...m.CheckKind) (m.Report, error) {
	if len(checks) == 0 {
		checks = m.AllChecks
	}

	report := m.Report{
		Root:        a.Root(),
		GeneratedAt: time.Now(),
		Checks:      checks,
		Findings:    []m.Finding{},
	}

	candidates := SubmoduleNames(a, a.cfg.CheckModules, a.cfg.CheckModules, nil)
	if err := a.Preload(ctx, candidates, a.cfg.Threads); err != nil {
		slog.Error("Failed to preload modules", "error", err)
		return report, err
	}

	for _, check := range checks {
		var (
			findings []m.Finding
			err      error
		)

		switch check {
		case m.CheckFilters:
			findings, err = a.CheckFilters(ctx)
		case m.CheckManagers:
			findings, err = a.CheckManagers(ctx)
		case m.CheckSignals:
			findings, err = a.CheckSignals(ctx)
		case m.CheckPermissions:
			findings, err = a.CheckPermissions(ctx)
		case m.CheckAsserts:
			findings, err = a.CheckCommentedAsserts(ctx)
		default:
			err = fmt.Errorf("unknown check %q", check)
		}

		if err != nil {
			slog.Error("Check aborted", "check", check, "error", err)
			return report, fmt.Errorf("%s check: %w", check, err)
		}

		slog.Info("check completed", "check", check, "findings", len(findings))
		report.Findings = append(report.Findings, findings...)
	}

	return report, nil
}

// loadModules imports every named module, stopping at the first failure.
func (a *auditor) loadModules(names []string) ([]*m.Module, error) {
	modules := make([]*m.Module, 0, len(names))

	for _, name := range names {
		mod, err := a.Load(name)
		if err != nil {
			return nil, err
		}

		modules = append(modules, mod)
	}

	return modules, nil
}

// testsBySubmodule returns the tests of every module under the check roots
// whose name contains submodule. Suite runners are skipped.
func (a *auditor) testsBySubmodule(submodule string) ([]testRef, error) {
	names := SubmoduleNames(a, a.cfg.CheckModules, []string{submodule}, nil)

	modules, err := a.loadModules(names)
	if err != nil {
		return nil, err
	}

	var refs []testRef

	for _, mod := range modules {
		for _, test := range mod.Tests {
			if isSuiteRunner(test) {
				continue
			}

			refs = append(refs, testRef{module: mod, test: test})
		}
	}

	return refs, nil
}

// rootFor returns the longest check root prefixing module, falling back to
// the module's first segment.
func (a *auditor) rootFor(module string) string {
	best := ""

	for _, root := range a.cfg.CheckModules {
		if strings.HasPrefix(module, root+".") && len(root) > len(best) {
			best = root
		}
	}

	if best != "" {
		return best
	}

	if idx := strings.Index(module, "."); idx > 0 {
		return module[:idx]
	}

	return module
}

// isSuiteRunner reports whether test is a top-level TestXxxSuite entry point
// handing over to a testify suite.
func isSuiteRunner(test m.TestFunc) bool {
	return test.Receiver == "" && strings.HasSuffix(test.Name, suiteSuffix)
}

func embedsAny(decl m.TypeDecl, bases []string) bool {
	for _, embed := range decl.Embeds {
		for _, base := range bases {
			if embed == base {
				return true
			}
		}
	}

	return false
}

func sortedKeys[V any](in map[string]V) []string {
	keys := make([]string, 0, len(in))
	for key := range in {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func formatSet(items []string) string {
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)

	return "{" + strings.Join(sorted, ", ") + "}"
}

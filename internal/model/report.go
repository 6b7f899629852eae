// Package model defines the data structures shared by the coverage auditor.
package model

import (
	"fmt"
	"time"
)

// CheckKind identifies one coverage check.
type CheckKind string

const (
	// CheckFilters verifies filter classes and filter methods have tests.
	CheckFilters CheckKind = "filters"
	// CheckManagers verifies manager and queryset types have tests.
	CheckManagers CheckKind = "managers"
	// CheckSignals verifies signal handlers and their tests match exactly.
	CheckSignals CheckKind = "signals"
	// CheckPermissions verifies every permission usage is covered by a test.
	CheckPermissions CheckKind = "permissions"
	// CheckAsserts reports commented-out assertions left in test files.
	CheckAsserts CheckKind = "asserts"
)

// AllChecks lists every check in execution order.
var AllChecks = []CheckKind{CheckFilters, CheckManagers, CheckSignals, CheckPermissions, CheckAsserts}

// ParseCheckKind converts a user supplied name into a CheckKind.
func ParseCheckKind(name string) (CheckKind, error) {
	for _, kind := range AllChecks {
		if string(kind) == name {
			return kind, nil
		}
	}

	return "", fmt.Errorf("unknown check %q", name)
}

// Finding is a single coverage mismatch. Every finding fails the audit.
type Finding struct {
	Check   CheckKind `yaml:"check"`
	Subject string    `yaml:"subject"`
	Message string    `yaml:"message"`
	Module  string    `yaml:"module,omitempty"`
	File    Path      `yaml:"file,omitempty"` // file the lines refer to, when known
	Lines   []int     `yaml:"lines,omitempty"`
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s", f.Check, f.Message)
}

// Report is the outcome of an audit run.
type Report struct {
	Root        Path        `yaml:"root"`
	GeneratedAt time.Time   `yaml:"generated_at"`
	Checks      []CheckKind `yaml:"checks"`
	Findings    []Finding   `yaml:"findings"`
}

// Passed reports whether the run produced no findings.
func (r Report) Passed() bool {
	return len(r.Findings) == 0
}

// FindingsFor returns the findings produced by one check.
func (r Report) FindingsFor(kind CheckKind) []Finding {
	var out []Finding

	for _, finding := range r.Findings {
		if finding.Check == kind {
			out = append(out, finding)
		}
	}

	return out
}

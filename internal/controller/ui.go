// Package controller provides output adapters for displaying audit results.
package controller

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeAudit StartMode = iota
	ModeView
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithAuditMode sets the UI to audit mode: results are printed as they come.
func WithAuditMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeAudit
	}
}

// WithViewMode sets the UI to view mode: a stored report is browsed.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

func newStartConfig(options []StartOption) StartConfig {
	cfg := StartConfig{mode: ModeAudit}
	for _, option := range options {
		option(&cfg)
	}

	return cfg
}

// UI defines the interface for displaying audit progress and reports.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayAuditStart(ctx context.Context, root m.Path, checks []m.CheckKind)
	DisplayCheckResult(ctx context.Context, check m.CheckKind, findings []m.Finding)
	DisplayReport(ctx context.Context, report m.Report) error
	DisplayWatchEvent(ctx context.Context, path string)
}

// NewUI picks the interactive TUI for terminals and SimpleUI otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func formatLines(lines []int) string {
	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = strconv.Itoa(line)
	}

	return strings.Join(parts, ", ")
}

func formatChecks(checks []m.CheckKind) string {
	parts := make([]string, len(checks))
	for i, check := range checks {
		parts[i] = string(check)
	}

	return strings.Join(parts, ", ")
}

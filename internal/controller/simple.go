package controller

import (
	"bytes"
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

// SimpleUI implements UI using cobra Command's output.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// DisplayAuditStart announces the project and the checks about to run.
func (s *SimpleUI) DisplayAuditStart(ctx context.Context, root m.Path, checks []m.CheckKind) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Auditing %s (checks: %s)\n", root, formatChecks(checks))
}

// DisplayCheckResult prints the finding count of a finished check.
func (s *SimpleUI) DisplayCheckResult(ctx context.Context, check m.CheckKind, findings []m.Finding) {
	if err := ctx.Err(); err != nil {
		return
	}

	status := "ok"
	if len(findings) > 0 {
		status = fmt.Sprintf("%d finding(s)", len(findings))
	}

	s.printf("  %-12s %s\n", check, status)
}

// DisplayReport prints all findings as a table.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if report.Passed() {
		s.printf("\nNo missing tests found.\n")
		return nil
	}

	s.printf("\n%s", renderFindingsTable(report.Findings))

	return nil
}

// DisplayWatchEvent announces a re-run triggered by a file change.
func (s *SimpleUI) DisplayWatchEvent(ctx context.Context, path string) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\nChange detected in %s, re-running checks\n", path)
}

func renderFindingsTable(findings []m.Finding) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Check", "Module", "File", "Lines", "Message"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_LEFT,
	})

	for _, finding := range findings {
		table.Append([]string{string(finding.Check), finding.Module, string(finding.File), formatLines(finding.Lines), finding.Message})
	}

	table.SetFooter([]string{"", "", "", "Total", fmt.Sprintf("%d", len(findings))})

	table.Render()

	return tableBuffer.String()
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

package controller

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	checkStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
	barStyle     = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.NormalBorder(), false, false, true, false)
	footerStyle  = lipgloss.NewStyle().Padding(0, 1).Faint(true)
	findingBadge = "•"
)

// TUI implements UI using Bubble Tea. Audits print styled output as they
// progress; viewing a stored report opens a scrollable pager.
type TUI struct {
	output io.Writer
	mode   StartMode
	opts   []tea.ProgramOption
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start initializes the UI.
func (p *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mode = newStartConfig(options).mode

	return nil
}

// Close finalizes the UI.
func (p *TUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait returns immediately: the pager blocks inside DisplayReport.
func (p *TUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// DisplayAuditStart prints the audit banner.
func (p *TUI) DisplayAuditStart(ctx context.Context, root m.Path, checks []m.CheckKind) {
	if err := ctx.Err(); err != nil {
		return
	}

	_, _ = fmt.Fprintf(p.output, "%s %s\n%s\n",
		titleStyle.Render("pragmatic audit"),
		string(root),
		faintStyle.Render("checks: "+formatChecks(checks)))
}

// DisplayCheckResult prints one status line per check.
func (p *TUI) DisplayCheckResult(ctx context.Context, check m.CheckKind, findings []m.Finding) {
	if err := ctx.Err(); err != nil {
		return
	}

	_, _ = fmt.Fprintf(p.output, "  %s %s\n", checkStyle.Render(fmt.Sprintf("%-12s", check)), statusLabel(len(findings)))
}

// DisplayReport prints the report in audit mode and opens a pager in view mode.
func (p *TUI) DisplayReport(ctx context.Context, report m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	content := renderReport(report)

	if p.mode != ModeView {
		_, err := fmt.Fprint(p.output, "\n"+content)
		return err
	}

	title := fmt.Sprintf("pragmatic report: %s (%s)", report.Root, report.GeneratedAt.Format("2006-01-02 15:04:05"))

	options := append([]tea.ProgramOption{tea.WithOutput(p.output), tea.WithAltScreen(), tea.WithContext(ctx)}, p.opts...)

	program := tea.NewProgram(newReportModel(title, content), options...)
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

// DisplayWatchEvent announces a re-run triggered by a file change.
func (p *TUI) DisplayWatchEvent(ctx context.Context, path string) {
	if err := ctx.Err(); err != nil {
		return
	}

	_, _ = fmt.Fprintf(p.output, "\n%s %s\n", faintStyle.Render("changed:"), path)
}

func statusLabel(count int) string {
	if count == 0 {
		return okStyle.Render("ok")
	}

	return failStyle.Render(fmt.Sprintf("%d finding(s)", count))
}

func renderReport(report m.Report) string {
	var b strings.Builder

	for _, check := range report.Checks {
		findings := report.FindingsFor(check)

		fmt.Fprintf(&b, "%s %s\n", checkStyle.Render(string(check)), statusLabel(len(findings)))

		for _, finding := range findings {
			location := finding.Module
			if finding.File != "" {
				location = string(finding.File)
			}

			if len(finding.Lines) > 0 {
				location += ":" + formatLines(finding.Lines)
			}

			message := strings.ReplaceAll(finding.Message, "\n", "\n    ")
			fmt.Fprintf(&b, "  %s %s", findingBadge, message)

			if location != "" {
				fmt.Fprintf(&b, " %s", faintStyle.Render("("+location+")"))
			}

			b.WriteString("\n")
		}
	}

	if report.Passed() {
		b.WriteString(okStyle.Render("No missing tests found.") + "\n")
	} else {
		b.WriteString(failStyle.Render(fmt.Sprintf("%d finding(s) in total", len(report.Findings))) + "\n")
	}

	return b.String()
}

// reportModel is a pager over a rendered report.
type reportModel struct {
	title    string
	content  string
	viewport viewport.Model
	ready    bool
	quitting bool
}

func newReportModel(title, content string) reportModel {
	return reportModel{title: title, content: content}
}

func (rm reportModel) Init() tea.Cmd {
	return nil
}

func (rm reportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			rm.quitting = true
			return rm, tea.Quit
		}

	case tea.WindowSizeMsg:
		verticalMargin := lipgloss.Height(rm.headerView()) + lipgloss.Height(rm.footerView())

		if !rm.ready {
			rm.viewport = viewport.New(msg.Width, msg.Height-verticalMargin)
			rm.viewport.SetContent(rm.content)
			rm.ready = true
		} else {
			rm.viewport.Width = msg.Width
			rm.viewport.Height = msg.Height - verticalMargin
		}
	}

	var cmd tea.Cmd
	rm.viewport, cmd = rm.viewport.Update(msg)

	return rm, cmd
}

func (rm reportModel) View() string {
	if rm.quitting {
		return ""
	}

	if !rm.ready {
		return "\n  Loading report..."
	}

	return rm.headerView() + "\n" + rm.viewport.View() + "\n" + rm.footerView()
}

func (rm reportModel) headerView() string {
	return barStyle.Render(titleStyle.Render(rm.title))
}

func (rm reportModel) footerView() string {
	return footerStyle.Render(fmt.Sprintf("%3.f%%  ↑/↓ scroll  q quit", rm.viewport.ScrollPercent()*100))
}

package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

// reportFileName is the file written inside the reports directory.
const reportFileName = "audit.yaml"

// ErrNoReport is returned when no audit report has been stored yet.
var ErrNoReport = errors.New("no audit report found")

// ReportStore persists the outcome of the latest audit run.
type ReportStore interface {
	SaveReport(dir m.Path, report m.Report) error
	LoadReport(dir m.Path) (m.Report, error)
}

// YAMLReportStore stores reports as YAML documents.
type YAMLReportStore struct{}

// NewReportStore constructs the default ReportStore.
func NewReportStore() *YAMLReportStore {
	return &YAMLReportStore{}
}

// SaveReport writes report to <dir>/audit.yaml, creating dir when needed.
func (s *YAMLReportStore) SaveReport(dir m.Path, report m.Report) error {
	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		slog.Error("Failed to create reports dir", "dir", dir, "error", err)
		return fmt.Errorf("create reports dir: %w", err)
	}

	content, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	path := filepath.Join(string(dir), reportFileName)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		slog.Error("Failed to write report", "path", path, "error", err)
		return fmt.Errorf("write report: %w", err)
	}

	slog.Debug("saved audit report", "path", path, "findings", len(report.Findings))

	return nil
}

// LoadReport reads the report stored in dir.
func (s *YAMLReportStore) LoadReport(dir m.Path) (m.Report, error) {
	path := filepath.Join(string(dir), reportFileName)

	// #nosec G304 - path is built from the configured reports directory
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m.Report{}, fmt.Errorf("%w in %s", ErrNoReport, dir)
		}

		return m.Report{}, fmt.Errorf("read report: %w", err)
	}

	var report m.Report
	if err := yaml.Unmarshal(content, &report); err != nil {
		slog.Error("Failed to decode report", "path", path, "error", err)
		return m.Report{}, fmt.Errorf("decode report: %w", err)
	}

	return report, nil
}

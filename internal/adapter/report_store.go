package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	m "github.com/felixpackard/testchanged/internal/model"
)

// lastRunFile is the report persisted after each completed run; `rerun`
// reads it to re-test the failed units.
const lastRunFile = "last-run.json"

// ReportStore persists finalized run reports. Only completed reports are
// ever written; an interrupted run leaves the previous report in place.
type ReportStore interface {
	Save(ctx context.Context, dir string, report m.RunReport) error
	Load(ctx context.Context, dir string) (m.RunReport, error)
}

// FileReportStore stores reports as JSON files under the output directory.
type FileReportStore struct{}

// NewFileReportStore creates a FileReportStore.
func NewFileReportStore() *FileReportStore {
	return &FileReportStore{}
}

// Save implements ReportStore.
func (s *FileReportStore) Save(ctx context.Context, dir string, report m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	path := filepath.Join(dir, lastRunFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	slog.Debug("saved run report", "path", path, "outcomes", len(report.Outcomes))

	return nil
}

// Load implements ReportStore.
func (s *FileReportStore) Load(ctx context.Context, dir string) (m.RunReport, error) {
	if err := ctx.Err(); err != nil {
		return m.RunReport{}, err
	}

	path := filepath.Join(dir, lastRunFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return m.RunReport{}, fmt.Errorf("read report: %w", err)
	}

	var report m.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return m.RunReport{}, fmt.Errorf("decode report %s: %w", path, err)
	}

	return report, nil
}

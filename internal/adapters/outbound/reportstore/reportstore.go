// Package reportstore persists migration reports as indented JSON.
package reportstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/monomaker/monomaker/internal/domain"
)

// FileWriter implements domain.ReportWriter.
type FileWriter struct{}

// New creates a FileWriter.
func New() *FileWriter { return &FileWriter{} }

// Write serializes the report to path. The write goes through a temp
// file in the same directory plus a rename, so a crash never leaves a
// truncated report behind.
func (w *FileWriter) Write(path string, report *domain.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

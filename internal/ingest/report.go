package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Report summarizes one ingestion run.
type Report struct {
	RunID              string            `json:"run_id" yaml:"run_id"`
	Engine             string            `json:"engine" yaml:"engine"`
	InputDir           string            `json:"input_dir" yaml:"input_dir"`
	StartedAt          time.Time         `json:"started_at" yaml:"started_at"`
	FinishedAt         time.Time         `json:"finished_at" yaml:"finished_at"`
	FilesScanned       int               `json:"files_scanned" yaml:"files_scanned"`
	DocumentsExtracted int               `json:"documents_extracted" yaml:"documents_extracted"`
	DocumentsIndexed   int               `json:"documents_indexed" yaml:"documents_indexed"`
	Failed             []Failure         `json:"failed,omitempty" yaml:"failed,omitempty"`
	Skipped            map[string]string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Failure is a document the engine refused to index.
type Failure struct {
	FilePath string `json:"file_path" yaml:"file_path"`
	Reason   string `json:"reason" yaml:"reason"`
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// LoadReport reads a report from disk.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// Save writes the report to disk atomically.
// Uses write-to-temp + rename pattern to prevent corruption.
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write report temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename report file: %w", err)
	}

	return nil
}

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"portal-scraper/models"
)

// JSONWriter writes property records as UTF-8 JSON arrays: one file
// per batch plus a cumulative export file. It is safe for concurrent
// use.
type JSONWriter struct {
	mu         sync.Mutex
	dir        string
	exportPath string
	now        func() time.Time
}

// NewJSONWriter prepares the output directory for batch and export
// files.
func NewJSONWriter(dir string) (*JSONWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("json: create output dir: %w", err)
	}
	return &JSONWriter{
		dir:        dir,
		exportPath: filepath.Join(dir, "properties_complete.json"),
		now:        time.Now,
	}, nil
}

// WriteBatch writes one timestamped batch file.
func (w *JSONWriter) WriteBatch(records []*models.PropertyRecord) error {
	if len(records) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	name := fmt.Sprintf("properties_batch_%s.json", w.now().Format("20060102_150405"))
	return writeJSON(filepath.Join(w.dir, name), records)
}

// WriteAll (re)writes the cumulative export file with every record of
// the session.
func (w *JSONWriter) WriteAll(records []*models.PropertyRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return writeJSON(w.exportPath, records)
}

// Close is a no-op; files are written whole per call.
func (w *JSONWriter) Close() error { return nil }

// ExportPath returns the location of the cumulative export file.
func (w *JSONWriter) ExportPath() string { return w.exportPath }

func writeJSON(path string, records []*models.PropertyRecord) error {
	if records == nil {
		records = []*models.PropertyRecord{}
	}
	// Compact form: one newline-free JSON array per file.
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("json: marshal records: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("json: write %q: %w", path, err)
	}
	return nil
}

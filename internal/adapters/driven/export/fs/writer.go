// Package fs writes export artifacts to the local filesystem.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
)

// Ensure Writer implements the interface.
var _ driven.ExportWriter = (*Writer)(nil)

// Writer stores export artifacts under <baseDir>/exports/<documentID>/.
type Writer struct {
	baseDir string
}

// NewWriter creates a filesystem export writer rooted at baseDir.
func NewWriter(baseDir string) *Writer {
	return &Writer{baseDir: baseDir}
}

// extensions maps export types to file extensions.
var extensions = map[domain.ExportType]string{
	domain.ExportResultsCSV:      ".csv",
	domain.ExportStandardsReport: ".txt",
	domain.ExportGradebook:       ".csv",
}

// Write stores one artifact and returns its path. Each write replaces
// any artifact from a previous analysis pass.
func (w *Writer) Write(_ context.Context, documentID string, exportType domain.ExportType, data []byte) (string, error) {
	dir := filepath.Join(w.baseDir, "exports", documentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	ext, ok := extensions[exportType]
	if !ok {
		return "", fmt.Errorf("%w: unknown export type %q", domain.ErrInvalidInput, exportType)
	}

	path := filepath.Join(dir, string(exportType)+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing export %s: %w", path, err)
	}
	return path, nil
}

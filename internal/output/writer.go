// Package output persists rendered documents.
package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileWriter writes documents to an afero filesystem, creating parent
// directories as needed. Existing files are overwritten.
type FileWriter struct {
	fs afero.Fs
}

// NewFileWriter creates a writer on fs.
func NewFileWriter(fs afero.Fs) *FileWriter {
	return &FileWriter{fs: fs}
}

// NewOSWriter creates a writer on the real filesystem.
func NewOSWriter() *FileWriter {
	return NewFileWriter(afero.NewOsFs())
}

// WriteDocument writes content to path and returns the number of bytes written.
func (w *FileWriter) WriteDocument(path, content string) (int, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(w.fs, path, []byte(content), os.FileMode(0o644)); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return len(content), nil
}

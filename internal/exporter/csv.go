package exporter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrExportFile marks failures of the export file itself, as opposed to
// failures of the content being written.
var ErrExportFile = errors.New("export file")

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// Write encodes headers and records to out
func Write(out io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// FileWriter places export files in an export directory.
type FileWriter struct {
	baseDir string
}

// NewFileWriter creates a writer resolving relative paths against baseDir
func NewFileWriter(baseDir string) *FileWriter {
	return &FileWriter{baseDir: baseDir}
}

// Path resolves filePath. Absolute paths are kept as given.
func (w *FileWriter) Path(filePath string) string {
	if filepath.IsAbs(filePath) || w.baseDir == "" {
		return filePath
	}
	return filepath.Join(w.baseDir, filePath)
}

// WriteFile fills filePath with whatever write produces and returns the
// resolved path. Content goes to a temporary file that is renamed into place
// only when write succeeds, so a failed export never leaves a partial file.
func (w *FileWriter) WriteFile(filePath string, write func(io.Writer) error) (string, error) {
	fullPath := w.Path(filePath)
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create directory: %w", ErrExportFile, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return "", fmt.Errorf("%w: failed to create file: %w", ErrExportFile, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: failed to close file: %w", ErrExportFile, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", fmt.Errorf("%w: %w", ErrExportFile, err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return "", fmt.Errorf("%w: failed to move file into place: %w", ErrExportFile, err)
	}

	slog.Info("Export file written",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath))
	return fullPath, nil
}

package output

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Writer is the interface for artifact destinations. ReadFile sees content
// written earlier through the same Writer, so a stage can consume the
// output of a previous stage whether or not it reached the disk.
type Writer interface {
	// Write stores data at path, replacing any previous content.
	Write(path string, data []byte) error

	// ReadFile returns the current content of path.
	ReadFile(path string) ([]byte, error)
}

// FileWriter writes artifacts to disk, creating parent directories as
// needed. Existing files are overwritten in place.
type FileWriter struct {
	perm   os.FileMode
	logger *slog.Logger
}

// FileWriterOption configures a FileWriter.
type FileWriterOption func(*FileWriter)

// WithPermissions overrides the default file permissions (0644).
func WithPermissions(perm os.FileMode) FileWriterOption {
	return func(fw *FileWriter) {
		fw.perm = perm
	}
}

// WithLogger sets a logger for the FileWriter.
func WithLogger(logger *slog.Logger) FileWriterOption {
	return func(fw *FileWriter) {
		fw.logger = logger
	}
}

// NewFileWriter creates a writer backed by the local file system.
func NewFileWriter(opts ...FileWriterOption) *FileWriter {
	fw := &FileWriter{
		perm:   0o644,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(fw)
	}

	return fw
}

// Write creates parent directories and writes data to path.
func (fw *FileWriter) Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, data, fw.perm); err != nil {
		return fmt.Errorf("writing file %s: %w", path, err)
	}

	fw.logger.Debug("wrote file", slog.String("path", path), slog.Int("bytes", len(data)))

	return nil
}

// ReadFile reads path from disk.
func (fw *FileWriter) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // build paths come from config
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}

	return data, nil
}

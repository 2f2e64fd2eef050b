package output

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
	"unicode/utf8"
)

// Change describes one artifact a dry run would have written.
type Change struct {
	Path string

	// Created is true when no file exists at Path yet.
	Created bool

	// Binary is true when either side is not text; Diff is nil then.
	Binary bool

	OldSize int
	NewSize int

	Diff *DiffResult
}

// DryRunWriter records writes in memory. Reads see recorded content first
// and fall back to the disk.
type DryRunWriter struct {
	mu      sync.Mutex
	pending map[string][]byte
}

// NewDryRunWriter creates an empty dry-run writer.
func NewDryRunWriter() *DryRunWriter {
	return &DryRunWriter{pending: make(map[string][]byte)}
}

// Write records data for path.
func (w *DryRunWriter) Write(path string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = bytes.Clone(data)

	return nil
}

// ReadFile returns recorded content for path, or the file on disk.
func (w *DryRunWriter) ReadFile(path string) ([]byte, error) {
	w.mu.Lock()
	data, ok := w.pending[path]
	w.mu.Unlock()

	if ok {
		return bytes.Clone(data), nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // build paths come from config
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}

	return data, nil
}

// Changes compares every recorded write with the file on disk. Writes that
// would not change a file are omitted. The result is sorted by path.
func (w *DryRunWriter) Changes() ([]Change, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	var changes []Change

	for _, p := range paths {
		next := w.pending[p]

		prev, err := os.ReadFile(p) //nolint:gosec // build paths come from config
		created := errors.Is(err, fs.ErrNotExist)

		if err != nil && !created {
			return nil, fmt.Errorf("reading file %s: %w", p, err)
		}

		if !created && bytes.Equal(prev, next) {
			continue
		}

		c := Change{
			Path:    p,
			Created: created,
			OldSize: len(prev),
			NewSize: len(next),
			Binary:  !isText(prev) || !isText(next),
		}

		if !c.Binary {
			opts := DefaultDiffOptions()
			opts.OldLabel = "a/" + p
			opts.NewLabel = "b/" + p

			if c.Diff, err = ComputeDiff(string(prev), string(next), opts); err != nil {
				return nil, err
			}
		}

		changes = append(changes, c)
	}

	return changes, nil
}

func isText(b []byte) bool {
	return utf8.Valid(b) && bytes.IndexByte(b, 0) < 0
}

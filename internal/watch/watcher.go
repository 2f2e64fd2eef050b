package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/assetpipe/internal/config"
	"github.com/hupe1980/assetpipe/internal/fileset"
)

// Event is a qualifying change to a file.
type Event struct {
	// Path is the absolute path of the file.
	Path string

	// Type is config.EventAdded or config.EventChanged.
	Type string
}

// EventSource delivers file events until it is closed.
type EventSource interface {
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// FSSource is an EventSource backed by fsnotify.
type FSSource struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	// recursive holds the roots whose new subdirectories are watched too.
	recursive []string

	events chan Event
	errors chan error
	done   chan struct{}
	once   sync.Once
}

// NewFSSource watches the static directory prefix of every pattern, which
// is relative to root. Only patterns that can match in subdirectories
// watch recursively. Missing directories are skipped with a warning; it is
// an error when nothing at all can be watched.
func NewFSSource(root string, patterns []string, logger *slog.Logger) (*FSSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	s := &FSSource{
		watcher: watcher,
		logger:  logger,
		events:  make(chan Event),
		errors:  make(chan error),
		done:    make(chan struct{}),
	}

	watched := 0

	for _, p := range patterns {
		base, recursive := fileset.Base(p)
		dir := fileset.Resolve(root, filepath.FromSlash(base))

		if recursive {
			err = addRecursive(watcher, dir)
			s.recursive = append(s.recursive, dir)
		} else {
			err = watcher.Add(dir)
		}

		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warn("watch directory does not exist", slog.String("dir", dir), slog.String("pattern", p))
				continue
			}

			_ = watcher.Close()

			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}

		watched++
	}

	if watched == 0 {
		_ = watcher.Close()
		return nil, errors.New("no watch directory exists")
	}

	go s.loop()

	return s, nil
}

// Events implements EventSource.
func (s *FSSource) Events() <-chan Event { return s.events }

// Errors implements EventSource.
func (s *FSSource) Errors() <-chan error { return s.errors }

// Close stops the watcher.
func (s *FSSource) Close() error {
	var err error

	s.once.Do(func() {
		close(s.done)
		err = s.watcher.Close()
	})

	return err
}

// WatchList returns the watched directories.
func (s *FSSource) WatchList() []string {
	return s.watcher.WatchList()
}

func (s *FSSource) loop() {
	for {
		select {
		case <-s.done:
			return

		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			s.handle(ev)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}

			select {
			case s.errors <- err:
			case <-s.done:
				return
			}
		}
	}
}

func (s *FSSource) handle(ev fsnotify.Event) {
	eventType, ok := classify(ev)
	if !ok {
		return
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}

	if info.IsDir() {
		// New directories under a recursive root are watched too.
		if ev.Has(fsnotify.Create) && s.underRecursiveRoot(ev.Name) {
			if addErr := addRecursive(s.watcher, ev.Name); addErr != nil {
				s.logger.Debug("watching new directory failed", slog.String("dir", ev.Name), slog.String("error", addErr.Error()))
			}
		}

		return
	}

	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return
	}

	select {
	case s.events <- Event{Path: abs, Type: eventType}:
	case <-s.done:
	}
}

func (s *FSSource) underRecursiveRoot(path string) bool {
	for _, root := range s.recursive {
		rel, err := filepath.Rel(root, path)
		if err == nil && !strings.HasPrefix(rel, "..") {
			return true
		}
	}

	return false
}

// addRecursive walks root and adds all directories to the watcher.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			// Skip hidden directories (e.g., .git).
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}

			return watcher.Add(path)
		}

		return nil
	})
}

// classify maps an fsnotify event to a watch event type. Removals, renames
// and permission changes do not qualify, nor do editor temporary files.
func classify(event fsnotify.Event) (string, bool) {
	name := filepath.Base(event.Name)

	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") || strings.HasPrefix(name, "#") {
		return "", false
	}

	switch {
	case event.Has(fsnotify.Create):
		return config.EventAdded, true
	case event.Has(fsnotify.Write):
		return config.EventChanged, true
	default:
		return "", false
	}
}

package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/assetpipe/internal/config"
	"github.com/hupe1980/assetpipe/internal/fileset"
	"github.com/hupe1980/assetpipe/internal/logging"
	"github.com/hupe1980/assetpipe/internal/output"
	"github.com/hupe1980/assetpipe/internal/task"
)

// Binding is a watch binding with its tasks resolved.
type Binding struct {
	Name string
	config.WatchBinding
	Tasks []task.Task
}

// Reloader is told which files changed after a run.
type Reloader interface {
	Reload(paths []string) int
}

// Options configures the dispatcher.
type Options struct {
	// Root is the directory binding patterns are relative to.
	Root string

	Bindings []Binding

	// Reloader is signalled after runs; nil disables live reload.
	Reloader Reloader

	// ReloadBase is the directory reload paths are made relative to.
	ReloadBase string

	// ReloadOnError also signals after a failed run.
	ReloadOnError bool

	// Status receives one line per task run; nil prints nothing.
	Status *output.Status

	// Out is the writer for user-facing messages.
	Out io.Writer
}

// Dispatcher routes file events to bindings and runs their tasks.
type Dispatcher struct {
	opts    Options
	runners []*runner
}

// NewDispatcher creates a dispatcher for opts.Bindings.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	d := &Dispatcher{opts: opts}

	for _, b := range opts.Bindings {
		d.runners = append(d.runners, &runner{binding: b, d: d, pending: make(chan []string, 1)})
	}

	return d
}

// Patterns returns the file patterns of every binding.
func (d *Dispatcher) Patterns() []string {
	var out []string

	for _, b := range d.opts.Bindings {
		out = append(out, b.Files...)
	}

	return out
}

// Run dispatches events from src until ctx is cancelled or SIGINT/SIGTERM
// is received. Task failures are reported and never end the loop.
func (d *Dispatcher) Run(ctx context.Context, src EventSource) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.FromContext(ctx)

	var wg sync.WaitGroup

	for _, r := range d.runners {
		r.debouncer = NewDebouncer(r.binding.Debounce, r.request)

		wg.Add(1)

		go func() {
			defer wg.Done()
			r.work(sigCtx)
		}()
	}

	defer func() {
		for _, r := range d.runners {
			r.debouncer.Stop()
		}

		wg.Wait()
	}()

	names := make([]string, len(d.runners))
	for i, r := range d.runners {
		names[i] = r.binding.Name
	}

	_, _ = fmt.Fprintf(d.opts.Out, "watching %s (bindings: %s)\n", d.opts.Root, strings.Join(names, ", "))

	for {
		select {
		case <-sigCtx.Done():
			_, _ = fmt.Fprintln(d.opts.Out, "\nshutting down watcher")
			return nil

		case ev, ok := <-src.Events():
			if !ok {
				return nil
			}

			d.dispatch(ctx, ev)

		case err, ok := <-src.Errors():
			if !ok {
				return nil
			}

			logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// dispatch hands ev to every binding whose patterns and event types match.
func (d *Dispatcher) dispatch(ctx context.Context, ev Event) {
	rel, err := filepath.Rel(d.opts.Root, ev.Path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}

	rel = filepath.ToSlash(rel)

	for _, r := range d.runners {
		if r.binding.Triggers(ev.Type) && fileset.Match(r.binding.Files, rel) {
			logging.FromContext(ctx).Debug("file event",
				slog.String("binding", r.binding.Name),
				slog.String("event", ev.Type),
				slog.String("path", rel))

			r.debouncer.Trigger(rel)
		}
	}
}

// reloadPaths makes outputs relative to the reload base.
func (d *Dispatcher) reloadPaths(outputs []string) []string {
	paths := make([]string, 0, len(outputs))
	seen := make(map[string]struct{}, len(outputs))

	for _, o := range outputs {
		p := filepath.Base(o)

		if d.opts.ReloadBase != "" {
			if rel, err := filepath.Rel(d.opts.ReloadBase, o); err == nil && !strings.HasPrefix(rel, "..") {
				p = filepath.ToSlash(rel)
			}
		}

		if strings.HasSuffix(p, ".map") {
			continue
		}

		if _, dup := seen[p]; !dup {
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}

	sort.Strings(paths)

	return paths
}

// runner executes one binding. A single worker goroutine means runs of a
// binding never overlap; pending holds at most one queued run.
type runner struct {
	binding   Binding
	d         *Dispatcher
	debouncer *Debouncer
	pending   chan []string
}

// request queues a run. While a run is queued further requests merge into
// it.
func (r *runner) request(paths []string) {
	for {
		select {
		case r.pending <- paths:
			return
		default:
		}

		select {
		case queued := <-r.pending:
			paths = merge(queued, paths)
		default:
		}
	}
}

func (r *runner) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case paths := <-r.pending:
			r.run(ctx, paths)
		}
	}
}

func (r *runner) run(ctx context.Context, changed []string) {
	runID := uuid.NewString()
	ctx, logger := logging.With(ctx,
		slog.String("run", runID),
		slog.String("binding", r.binding.Name))

	logger.Info("change detected", slog.Any("files", changed))

	var (
		outputs []string
		failed  bool
	)

	start := time.Now()

	for _, t := range r.binding.Tasks {
		res, err := t.Run(ctx)
		if res != nil {
			outputs = append(outputs, res.Outputs...)
		}

		if err != nil {
			if ctx.Err() != nil {
				return
			}

			failed = true

			logger.Error("task failed", slog.String("task", string(t.Name())), slog.String("error", err.Error()))

			if r.d.opts.Status != nil {
				r.d.opts.Status.Failure(string(t.Name()), err)
			}

			break
		}

		if r.d.opts.Status != nil {
			r.d.opts.Status.Success(string(t.Name()), len(res.Outputs), res.Duration)
		}
	}

	logger.Debug("run finished", slog.Bool("failed", failed), slog.Duration("duration", time.Since(start)))

	if r.d.opts.Reloader == nil || (failed && !r.d.opts.ReloadOnError) {
		return
	}

	if paths := r.d.reloadPaths(outputs); len(paths) > 0 {
		r.d.opts.Reloader.Reload(paths)
	}
}

func merge(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))

	for _, p := range append(append([]string{}, a...), b...) {
		if _, dup := seen[p]; !dup {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	sort.Strings(out)

	return out
}

// Watch watches the patterns of every binding on disk and dispatches until
// ctx is done.
func Watch(ctx context.Context, opts Options) error {
	d := NewDispatcher(opts)
	logger := logging.FromContext(ctx)

	src, err := NewFSSource(opts.Root, d.Patterns(), logger)
	if err != nil {
		return err
	}

	defer func() { _ = src.Close() }()

	dirs := src.WatchList()
	sort.Strings(dirs)
	logger.Info("watching for changes", slog.Int("directories", len(dirs)))
	logger.Debug("watched directories", slog.Any("dirs", dirs))

	return d.Run(ctx, src)
}

var _ EventSource = (*FSSource)(nil)

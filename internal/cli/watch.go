package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hupe1980/assetpipe/internal/livereload"
	"github.com/hupe1980/assetpipe/internal/logging"
	"github.com/hupe1980/assetpipe/internal/watch"
)

func newWatchCommand() *cobra.Command {
	var noLiveReload bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild assets on change and reload browsers",
		Long: `Watch monitors the source directories named by the configured watch
bindings. When a matching file is added or changed, the binding's tasks run
in order and connected browsers are told to reload the files they wrote.

Bindings are independent: a slow image run never delays a stylesheet
rebuild. Runs of the same binding never overlap; changes arriving during a
run queue a single follow-up run.

Nothing is built at startup. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, noLiveReload)
		},
	}

	cmd.Flags().BoolVar(&noLiveReload, "no-livereload", false, "do not start the live-reload server")

	return cmd
}

func runWatch(cmd *cobra.Command, noLiveReload bool) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)

	s, err := newSession(cmd, false)
	if err != nil {
		return err
	}

	bindings, err := resolveBindings(s)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	opts := watch.Options{
		Root:          s.root,
		Bindings:      bindings,
		ReloadBase:    filepath.Join(s.root, "build"),
		ReloadOnError: s.cfg.LiveReload.OnError,
		Status:        s.status(cmd.ErrOrStderr()),
		Out:           cmd.OutOrStdout(),
	}

	if s.cfg.LiveReload.Enabled && !noLiveReload {
		srv := livereload.New(s.cfg.LiveReload.Addr(), livereload.WithLogger(logger))
		if err := srv.Start(ctx); err != nil {
			return &ExitError{Code: 1, Err: err}
		}

		defer func() { _ = srv.Close() }()

		logger.Info("live reload listening", slog.String("addr", srv.Addr()))
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "live reload on %s\n", srv.Addr())

		opts.Reloader = srv
	}

	if err := watch.Watch(ctx, opts); err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	return nil
}

// resolveBindings resolves the task names of every configured binding,
// sorted by binding name. The first unknown task name fails.
func resolveBindings(s *session) ([]watch.Binding, error) {
	names := make([]string, 0, len(s.cfg.Watch))
	for name := range s.cfg.Watch {
		names = append(names, name)
	}

	sort.Strings(names)

	bindings := make([]watch.Binding, 0, len(names))

	for _, name := range names {
		wb := s.cfg.Watch[name]

		tasks, err := s.registry.Resolve(wb.Tasks)
		if err != nil {
			return nil, fmt.Errorf("watch binding %q: %w", name, err)
		}

		bindings = append(bindings, watch.Binding{Name: name, WatchBinding: wb, Tasks: tasks})
	}

	return bindings, nil
}

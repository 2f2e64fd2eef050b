package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/assetpipe/internal/config"
	"github.com/hupe1980/assetpipe/internal/fileset"
	"github.com/hupe1980/assetpipe/internal/logging"
	"github.com/hupe1980/assetpipe/internal/output"
	"github.com/hupe1980/assetpipe/internal/plugin"
	"github.com/hupe1980/assetpipe/internal/plugin/execx"
	"github.com/hupe1980/assetpipe/internal/plugin/imagemin"
	"github.com/hupe1980/assetpipe/internal/plugin/jsmin"
	"github.com/hupe1980/assetpipe/internal/plugin/kit"
	"github.com/hupe1980/assetpipe/internal/plugin/notify"
	"github.com/hupe1980/assetpipe/internal/plugin/postcss"
	"github.com/hupe1980/assetpipe/internal/plugin/sass"
	"github.com/hupe1980/assetpipe/internal/project"
	"github.com/hupe1980/assetpipe/internal/task"
)

type rootKey struct{}

func withRoot(ctx context.Context, root string) context.Context {
	return context.WithValue(ctx, rootKey{}, root)
}

func rootFromContext(ctx context.Context) string {
	if root, ok := ctx.Value(rootKey{}).(string); ok {
		return root
	}

	return "."
}

// session is the task environment of one command invocation.
type session struct {
	cfg      *config.Config
	root     string
	env      *task.Env
	registry *task.Registry

	// dryRun is set when writes are recorded instead of performed.
	dryRun *output.DryRunWriter
}

func newSession(cmd *cobra.Command, dryRun bool) (*session, error) {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	root := rootFromContext(ctx)
	logger := logging.FromContext(ctx)

	meta, err := loadProject(root, cfg, logger)
	if err != nil {
		return nil, &ExitError{Code: 2, Err: err}
	}

	s := &session{cfg: cfg, root: root}

	var writer output.Writer

	if dryRun {
		s.dryRun = output.NewDryRunWriter()
		writer = s.dryRun
	} else {
		writer = output.NewFileWriter(output.WithLogger(logger))
	}

	s.env = &task.Env{
		Root:    root,
		Config:  cfg,
		Project: meta,
		Plugins: buildPlugins(cfg, root, cfg.Notify.Enabled && !dryRun),
		Writer:  writer,
	}
	s.registry = task.NewRegistry(s.env)

	return s, nil
}

// status returns the printer for per-task status lines. Quiet mode drops
// them.
func (s *session) status(w io.Writer) *output.Status {
	if s.cfg.Quiet {
		w = io.Discard
	}

	return output.NewStatus(w, !s.cfg.NoColor)
}

// loadProject reads the project metadata. A missing file is not an error.
func loadProject(root string, cfg *config.Config, logger *slog.Logger) (*project.Meta, error) {
	path := fileset.Resolve(root, cfg.Project)

	meta, err := project.Load(path)
	if errors.Is(err, project.ErrNotFound) {
		logger.Debug("no project metadata", slog.String("path", path))
		return &project.Meta{}, nil
	}

	if err != nil {
		return nil, err
	}

	if meta.Version != "" && !meta.VersionValid() {
		logger.Warn("project version is not a semantic version", slog.String("version", meta.Version))
	}

	logger.Debug("loaded project metadata", slog.String("project", meta.Label()), slog.String("path", path))

	return meta, nil
}

// buildPlugins selects the plugin backends for cfg.
func buildPlugins(cfg *config.Config, root string, desktop bool) plugin.Set {
	runner := execx.OS{}

	includes := make([]string, 0, len(cfg.CSS.Sass.IncludePaths))
	for _, p := range cfg.CSS.Sass.IncludePaths {
		includes = append(includes, fileset.Resolve(root, p))
	}

	var post plugin.StylePostProcessor

	switch pc := cfg.CSS.PostCSS; pc.Processor {
	case config.ProcessorPostCSS:
		post = postcss.NewExternal(pc.Binary, pc.Browsers, pc.Minify, runner)
	default:
		post = postcss.NewBuiltin(pc.Minify)
	}

	var notifier plugin.Notifier = notify.Log{}
	if desktop {
		notifier = notify.NewDesktop(runner)
	}

	return plugin.Set{
		Styles: sass.New(sass.Options{
			Binary:       cfg.CSS.Sass.Binary,
			IncludePaths: includes,
			SourceMap:    cfg.CSS.Sass.SourceMap,
		}, runner),
		PostCSS:   post,
		Scripts:   jsmin.New(),
		Templates: kit.New(cfg.HTML.Minify),
		Images: imagemin.New(imagemin.Options{
			JPEGQuality:    cfg.Images.JPEGQuality,
			PNGCompression: cfg.Images.PNGCompression,
			JPEGTran:       cfg.Images.JPEGTran,
		}, runner),
		Notifier: notifier,
	}
}

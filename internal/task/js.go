package task

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hupe1980/assetpipe/internal/fileset"
	"github.com/hupe1980/assetpipe/internal/logging"
)

func newJS(env *Env) *Pipeline {
	return &Pipeline{
		name:        JS,
		description: "Concatenate and minify scripts",
		label:       "JS",
		success:     "JS compiled",
		stages: []Stage{
			{Name: "uglify", Run: env.uglifyStage},
		},
		notifier: env.Plugins.Notifier,
		title:    env.Config.Notify.Title,
	}
}

// uglifyStage minifies each script separately, so a syntax error names its
// file, and joins the results in lexical path order into one output file.
func (e *Env) uglifyStage(ctx context.Context, st *State) error {
	f := e.Config.JS.Files
	cwd := e.path(f.Cwd)

	rels, err := fileset.Glob(cwd, f.Src)
	if err != nil {
		return err
	}

	if len(rels) == 0 {
		logging.FromContext(ctx).Warn("no scripts matched, output not written", slog.String("dir", cwd))
		return nil
	}

	var buf bytes.Buffer

	for _, rel := range rels {
		src := filepath.Join(cwd, filepath.FromSlash(rel))

		data, readErr := os.ReadFile(src) //nolint:gosec // source paths come from config
		if readErr != nil {
			return readErr
		}

		minified, minErr := e.Plugins.Scripts.Minify(ctx, src, data)
		if minErr != nil {
			return minErr
		}

		minified = bytes.TrimRight(minified, ";\n")
		if len(minified) == 0 {
			continue
		}

		if buf.Len() > 0 {
			buf.WriteString(";\n")
		}

		buf.Write(minified)
	}

	buf.WriteString(";\n")

	dest := e.path(f.Dest)
	if err := e.Writer.Write(dest, buf.Bytes()); err != nil {
		return err
	}

	st.Written(dest)

	return nil
}

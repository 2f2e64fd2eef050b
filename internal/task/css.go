package task

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/hupe1980/assetpipe/internal/config"
	"github.com/hupe1980/assetpipe/internal/fileset"
	"github.com/hupe1980/assetpipe/internal/logging"
	"github.com/hupe1980/assetpipe/internal/plugin"
)

func newCSS(env *Env) *Pipeline {
	return &Pipeline{
		name:        CSS,
		description: "Compile Sass, add vendor prefixes and minify",
		label:       "CSS",
		success:     "CSS compiled",
		stages: []Stage{
			{Name: "sass", Run: env.sassStage},
			{Name: "postcss", Run: env.postcssStage},
		},
		notifier: env.Plugins.Notifier,
		title:    env.Config.Notify.Title,
	}
}

// sassStage compiles every top-level stylesheet. Nothing is written unless
// all of them compile.
func (e *Env) sassStage(ctx context.Context, st *State) error {
	pairs, err := e.sources(e.Config.CSS.Files)
	if err != nil {
		return err
	}

	compiled := make([][]byte, len(pairs))

	for i, p := range pairs {
		css, compileErr := e.Plugins.Styles.Compile(ctx, p.Src)
		if compileErr != nil {
			return compileErr
		}

		compiled[i] = css
	}

	return e.writeAll(st, pairs, compiled)
}

// postcssStage rewrites every compiled stylesheet matched by the postcss
// sources in place, plus its external source map when enabled.
func (e *Env) postcssStage(ctx context.Context, st *State) error {
	pc := e.Config.CSS.PostCSS

	sheets, err := e.postcssSources(st)
	if err != nil {
		return err
	}

	logger := logging.FromContext(ctx)

	for _, p := range sheets {
		data, readErr := e.Writer.ReadFile(p)
		if readErr != nil {
			return readErr
		}

		sheet := plugin.Stylesheet{Path: p, CSS: data}

		if pc.Map.Enabled {
			if pc.Map.Inline {
				sheet.Inline = true
			} else {
				sheet.MapPath = filepath.Join(e.path(pc.Map.Annotation), filepath.Base(p)+".map")
			}

			sheet.PrevMap = plugin.PreviousMap(p, data, e.Writer.ReadFile)
		}

		processed, procErr := e.Plugins.PostCSS.Process(ctx, sheet)
		if procErr != nil {
			return procErr
		}

		if err := e.Writer.Write(p, processed.CSS); err != nil {
			return err
		}

		st.Written(p)

		if processed.Map != nil {
			if err := e.Writer.Write(sheet.MapPath, processed.Map); err != nil {
				return err
			}

			st.Written(sheet.MapPath)
		}

		logger.Debug("post-processed stylesheet", slog.String("path", p))
	}

	return nil
}

// postcssSources globs the postcss sources under the project root and adds
// the matching files written earlier in this run, which may only exist in
// the writer.
func (e *Env) postcssSources(st *State) ([]string, error) {
	root := e.path(".")
	patterns := e.Config.CSS.PostCSS.Src

	rels, err := fileset.Glob(root, patterns)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(rels))
	out := make([]string, 0, len(rels))

	add := func(p string) {
		if _, dup := seen[p]; dup {
			return
		}

		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, w := range st.Outputs() {
		rel, relErr := filepath.Rel(root, w)
		if relErr != nil {
			continue
		}

		if fileset.Match(patterns, filepath.ToSlash(rel)) {
			add(w)
		}
	}

	for _, rel := range rels {
		add(filepath.Join(root, filepath.FromSlash(rel)))
	}

	return out, nil
}

// sources expands a descriptor, leaving out partials. Files whose name
// starts with an underscore are only ever imported.
func (e *Env) sources(f config.Files) ([]fileset.Pair, error) {
	pairs, err := fileset.Expand(e.Root, f)
	if err != nil {
		return nil, err
	}

	out := pairs[:0]

	for _, p := range pairs {
		if isPartial(p.Rel) {
			continue
		}

		out = append(out, p)
	}

	return out, nil
}

func isPartial(rel string) bool {
	base := path.Base(rel)
	return len(base) > 0 && base[0] == '_'
}

func (e *Env) writeAll(st *State, pairs []fileset.Pair, data [][]byte) error {
	for i, p := range pairs {
		if err := e.Writer.Write(p.Dest, data[i]); err != nil {
			return err
		}

		st.Written(p.Dest)
	}

	return nil
}

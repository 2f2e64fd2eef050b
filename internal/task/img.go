package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/hupe1980/assetpipe/internal/fileset"
	"github.com/hupe1980/assetpipe/internal/logging"
	"github.com/hupe1980/assetpipe/internal/plugin"
)

func newImg(env *Env) *Pipeline {
	return &Pipeline{
		name:        Img,
		description: "Optimise images",
		label:       "Images",
		success:     "Images compressed",
		stages: []Stage{
			{Name: "imagemin", Run: env.imageminStage},
		},
		notifier: env.Plugins.Notifier,
		title:    env.Config.Notify.Title,
	}
}

// imageminStage optimises every image into the mirrored path under the
// destination. A failing image does not stop the others; all failures are
// returned together.
func (e *Env) imageminStage(ctx context.Context, st *State) error {
	pairs, err := fileset.Expand(e.Root, e.Config.Images.Files)
	if err != nil {
		return err
	}

	logger := logging.FromContext(ctx)

	var errs []error

	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.optimize(ctx, p); err != nil {
			logger.Error("image optimisation failed", slog.String("file", p.Rel), slog.String("error", err.Error()))
			errs = append(errs, err)

			continue
		}

		st.Written(p.Dest)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d images failed: %w", len(errs), len(pairs), errors.Join(errs...))
	}

	return nil
}

func (e *Env) optimize(ctx context.Context, p fileset.Pair) error {
	data, err := os.ReadFile(p.Src) //nolint:gosec // source paths come from config
	if err != nil {
		return err
	}

	out, err := e.Plugins.Images.Optimize(ctx, p.Src, data)
	if err != nil {
		if !plugin.IsSourceError(err) {
			err = fmt.Errorf("%s: %w", p.Rel, err)
		}

		return err
	}

	return e.Writer.Write(p.Dest, out)
}

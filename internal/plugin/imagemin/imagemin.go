// Package imagemin losslessly recompresses PNG and GIF images, optimizes
// JPEG images with jpegtran and minifies SVG documents. JPEG images are only
// re-encoded lossily when a quality is configured. An optimized copy that is
// not smaller than its source is discarded in favour of the source bytes.
package imagemin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"

	"github.com/hupe1980/assetpipe/internal/config"
	"github.com/hupe1980/assetpipe/internal/plugin"
	"github.com/hupe1980/assetpipe/internal/plugin/execx"
)

const svgMediaType = "image/svg+xml"

// Options configures the encoders.
type Options struct {
	// JPEGQuality re-encodes JPEG images lossily at this quality. Zero keeps
	// them lossless.
	JPEGQuality int

	// PNGCompression is one of the config PNG compression constants.
	PNGCompression string

	// JPEGTran is the jpegtran executable used for lossless JPEG
	// optimisation.
	JPEGTran string
}

// Optimizer implements plugin.ImageOptimizer.
type Optimizer struct {
	jpegQuality int
	jpegtran    string
	pngLevel    png.CompressionLevel
	m           *minify.M
	runner      execx.Runner
}

// New creates an optimizer that runs jpegtran through runner. A nil runner
// uses the operating system.
func New(opts Options, runner execx.Runner) *Optimizer {
	if opts.JPEGTran == "" {
		opts.JPEGTran = "jpegtran"
	}

	if runner == nil {
		runner = execx.OS{}
	}

	m := minify.New()
	m.AddFunc(svgMediaType, svg.Minify)

	return &Optimizer{
		jpegQuality: opts.JPEGQuality,
		jpegtran:    opts.JPEGTran,
		pngLevel:    pngLevel(opts.PNGCompression),
		m:           m,
		runner:      runner,
	}
}

func pngLevel(s string) png.CompressionLevel {
	switch s {
	case config.PNGCompressionSpeed:
		return png.BestSpeed
	case config.PNGCompressionDefault:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// Optimize returns the smaller of data and its optimized encoding.
func (o *Optimizer) Optimize(ctx context.Context, path string, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		out []byte
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		out, err = o.raster(data, imaging.PNG, imaging.PNGCompressionLevel(o.pngLevel))
	case ".jpg", ".jpeg":
		out, err = o.jpeg(ctx, data)
	case ".gif":
		out, err = o.gif(data)
	case ".svg":
		out, err = o.m.Bytes(svgMediaType, data)
	default:
		return nil, fmt.Errorf("%s: unsupported image type", path)
	}

	if err != nil {
		return nil, &plugin.SourceError{Path: path, Msg: err.Error()}
	}

	if len(out) >= len(data) {
		return data, nil
	}

	return out, nil
}

func (o *Optimizer) raster(data []byte, format imaging.Format, opt imaging.EncodeOption) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, opt); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	return buf.Bytes(), nil
}

// jpeg re-encodes at the configured quality, or runs jpegtran when none is
// set. A missing jpegtran leaves the image as it is.
func (o *Optimizer) jpeg(ctx context.Context, data []byte) ([]byte, error) {
	if o.jpegQuality > 0 {
		return o.raster(data, imaging.JPEG, imaging.JPEGQuality(o.jpegQuality))
	}

	if _, err := jpeg.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	res, err := o.runner.Run(ctx, execx.Command{
		Name:  o.jpegtran,
		Args:  []string{"-optimize", "-copy", "none"},
		Stdin: data,
	})

	switch {
	case errors.Is(err, plugin.ErrToolNotFound):
		return data, nil
	case err != nil && res != nil && len(res.Stderr) > 0:
		return nil, fmt.Errorf("%s: %s", o.jpegtran, bytes.TrimSpace(res.Stderr))
	case err != nil:
		return nil, err
	case res == nil || len(res.Stdout) == 0:
		return data, nil
	}

	return res.Stdout, nil
}

// gif re-encodes every frame so animations survive.
func (o *Optimizer) gif(data []byte) ([]byte, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding gif: %w", err)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return nil, fmt.Errorf("encoding gif: %w", err)
	}

	return buf.Bytes(), nil
}

var _ plugin.ImageOptimizer = (*Optimizer)(nil)

// Package postcss post-processes compiled stylesheets: vendor prefixing,
// minification and source maps. The builtin processor needs no external
// tools; the external processor runs the postcss CLI with autoprefixer and
// cssnano.
package postcss

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"

	"github.com/hupe1980/assetpipe/internal/plugin"
	"github.com/hupe1980/assetpipe/internal/plugin/execx"
)

const mediaType = "text/css"

// Builtin implements plugin.StylePostProcessor in-process.
type Builtin struct {
	minify bool
	m      *minify.M
}

// NewBuiltin creates the in-process post-processor.
func NewBuiltin(minifyOutput bool) *Builtin {
	m := minify.New()
	m.AddFunc(mediaType, css.Minify)

	return &Builtin{minify: minifyOutput, m: m}
}

// Process prefixes, optionally minifies and maps one stylesheet.
func (b *Builtin) Process(_ context.Context, sheet plugin.Stylesheet) (*plugin.Processed, error) {
	src := stripAnnotation(sheet.CSS)
	out := Prefix(src)

	if b.minify {
		minified, err := b.m.Bytes(mediaType, out)
		if err != nil {
			return nil, &plugin.SourceError{Path: sheet.Path, Msg: err.Error()}
		}

		out = minified
	}

	if sheet.MapPath == "" && !sheet.Inline {
		return &plugin.Processed{CSS: out}, nil
	}

	m, err := buildMap(sheet, src)
	if err != nil {
		return nil, err
	}

	return annotate(out, m, sheet)
}

// External implements plugin.StylePostProcessor with the postcss CLI.
type External struct {
	binary   string
	browsers string
	minify   bool
	runner   execx.Runner
}

// NewExternal creates a post-processor that runs binary through runner.
// A nil runner uses the operating system.
func NewExternal(binary, browsers string, minifyOutput bool, runner execx.Runner) *External {
	if binary == "" {
		binary = "postcss"
	}

	if runner == nil {
		runner = execx.OS{}
	}

	return &External{binary: binary, browsers: browsers, minify: minifyOutput, runner: runner}
}

// Process pipes the stylesheet through postcss. postcss writes an inline map
// when printing to stdout; it is moved to an external file when requested.
func (e *External) Process(ctx context.Context, sheet plugin.Stylesheet) (*plugin.Processed, error) {
	wantMap := sheet.MapPath != "" || sheet.Inline

	args := []string{"--use", "autoprefixer"}
	if e.minify {
		args = append(args, "--use", "cssnano")
	}

	if wantMap {
		args = append(args, "--map")
	} else {
		args = append(args, "--no-map")
	}

	var env []string
	if e.browsers != "" {
		env = append(env, "BROWSERSLIST="+e.browsers)
	}

	stdin := stripAnnotation(sheet.CSS)
	if wantMap && sheet.PrevMap != nil {
		// postcss picks up an inline annotation as the previous map.
		stdin = appendComment(stdin, dataURL(sheet.PrevMap))
	}

	res, err := e.runner.Run(ctx, execx.Command{
		Name:  e.binary,
		Args:  args,
		Env:   env,
		Stdin: stdin,
	})
	if err != nil {
		if res != nil && len(res.Stderr) > 0 {
			return nil, &plugin.SourceError{Path: sheet.Path, Msg: string(bytes.TrimSpace(res.Stderr))}
		}

		return nil, err
	}

	if !wantMap || sheet.Inline {
		return &plugin.Processed{CSS: res.Stdout}, nil
	}

	m := plugin.PreviousMap(sheet.Path, res.Stdout, nil)

	return annotate(stripAnnotation(res.Stdout), m, sheet)
}

// ---------------------------------------------------------------------------
// Source maps
// ---------------------------------------------------------------------------

type sourceMap struct {
	Version        int      `json:"version"`
	File           string   `json:"file"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// buildMap builds a v3 map pointing the start of the output at the start
// of the input. When the input carries a map of its own, its sources are
// kept instead; the input is then an earlier output and not a source.
func buildMap(sheet plugin.Stylesheet, src []byte) ([]byte, error) {
	name := filepath.Base(sheet.Path)

	m := sourceMap{
		Version:        3,
		File:           name,
		Sources:        []string{name},
		SourcesContent: []string{string(src)},
		Names:          []string{},
		Mappings:       "AAAA",
	}

	if prev, ok := parseMap(sheet.PrevMap); ok {
		m.Sources = prev.Sources
		m.SourcesContent = prev.SourcesContent
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding source map for %s: %w", sheet.Path, err)
	}

	return data, nil
}

// parseMap decodes a previous map that lists its sources with content.
func parseMap(data []byte) (*sourceMap, bool) {
	if len(data) == 0 {
		return nil, false
	}

	var m sourceMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}

	if len(m.Sources) == 0 || len(m.Sources) != len(m.SourcesContent) {
		return nil, false
	}

	return &m, true
}

var annotation = regexp.MustCompile(`\n?/\*# sourceMappingURL=[^*]*\*/\s*$`)

func stripAnnotation(css []byte) []byte {
	return annotation.ReplaceAll(css, nil)
}

func dataURL(m []byte) string {
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString(m)
}

// annotate appends the sourceMappingURL comment for m and returns the map
// when it is to be written as a separate file.
func annotate(out, m []byte, sheet plugin.Stylesheet) (*plugin.Processed, error) {
	if m == nil {
		return &plugin.Processed{CSS: out}, nil
	}

	if sheet.Inline {
		return &plugin.Processed{CSS: appendComment(out, dataURL(m))}, nil
	}

	rel, err := filepath.Rel(filepath.Dir(sheet.Path), sheet.MapPath)
	if err != nil {
		return nil, fmt.Errorf("locating source map for %s: %w", sheet.Path, err)
	}

	return &plugin.Processed{CSS: appendComment(out, filepath.ToSlash(rel)), Map: m}, nil
}

func appendComment(css []byte, url string) []byte {
	out := bytes.TrimRight(css, "\n")
	out = append(out[:len(out):len(out)], "\n/*# sourceMappingURL="+url+" */\n"...)

	return out
}

var (
	_ plugin.StylePostProcessor = (*Builtin)(nil)
	_ plugin.StylePostProcessor = (*External)(nil)
)

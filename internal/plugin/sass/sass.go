// Package sass compiles stylesheets by running the sass command line tool.
package sass

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hupe1980/assetpipe/internal/plugin"
	"github.com/hupe1980/assetpipe/internal/plugin/execx"
)

// Options configures the compiler invocation.
type Options struct {
	Binary       string
	IncludePaths []string
	SourceMap    bool
}

// Compiler implements plugin.StyleCompiler.
type Compiler struct {
	opts   Options
	runner execx.Runner
}

// New creates a compiler that executes commands through runner. A nil
// runner uses the operating system.
func New(opts Options, runner execx.Runner) *Compiler {
	if opts.Binary == "" {
		opts.Binary = "sass"
	}

	if runner == nil {
		runner = execx.OS{}
	}

	return &Compiler{opts: opts, runner: runner}
}

// Compile returns the expanded CSS for the stylesheet at path. Output is
// left unminified; the post-processor owns minification.
func (c *Compiler) Compile(ctx context.Context, path string) ([]byte, error) {
	res, err := c.runner.Run(ctx, execx.Command{Name: c.opts.Binary, Args: c.args(path)})
	if err != nil {
		if res != nil {
			return nil, parseError(path, string(res.Stderr), err)
		}

		return nil, err
	}

	return res.Stdout, nil
}

func (c *Compiler) args(path string) []string {
	args := []string{"--style=expanded", "--no-error-css"}

	if c.opts.SourceMap {
		args = append(args, "--embed-source-map")
	} else {
		args = append(args, "--no-source-map")
	}

	for _, p := range c.opts.IncludePaths {
		args = append(args, "--load-path="+p)
	}

	return append(args, path)
}

// location matches the trailer sass prints under a diagnostic, e.g.
// "  _css-src/main.scss 4:12  root stylesheet".
var location = regexp.MustCompile(`(?m)^\s*(\S+\.(?:scss|sass|css)) (\d+):(\d+)\s`)

// parseError turns compiler stderr into a SourceError when it carries a
// location, and into a plain error otherwise.
func parseError(path, stderr string, runErr error) error {
	msg := firstLine(stderr)
	if msg == "" {
		return fmt.Errorf("compiling %s: %w", path, runErr)
	}

	msg = strings.TrimPrefix(msg, "Error: ")

	m := location.FindStringSubmatch(stderr)
	if m == nil {
		return &plugin.SourceError{Path: path, Msg: msg}
	}

	line, _ := strconv.Atoi(m[2])
	col, _ := strconv.Atoi(m[3])

	return &plugin.SourceError{Path: m[1], Line: line, Column: col, Msg: msg}
}

func firstLine(s string) string {
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}

	return ""
}

var _ plugin.StyleCompiler = (*Compiler)(nil)

// Package kit compiles CodeKit .kit templates into HTML.
//
// A .kit file is HTML with special comments:
//
//	<!-- @import header.kit, "partials/nav" -->   include other files
//	<!-- $title = Home -->                         declare a variable
//	<!-- $title -->                                insert a variable
//
// Variables may use the "$" or "@" sigil and be declared with "=", ":" or
// a space. An import sees the variables declared before it; declarations
// inside an import stay local to it. Imports resolve relative to the
// importing file and try the name as given, with a ".kit" extension, and
// with a leading underscore. Non-.kit imports are included verbatim. Any
// other comment is left in the output.
package kit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"

	"github.com/hupe1980/assetpipe/internal/plugin"
)

const mediaType = "text/html"

var (
	comment     = regexp.MustCompile(`(?s)<!--\s*(.*?)\s*-->`)
	importStmt  = regexp.MustCompile(`(?s)^@(?:import|include)\s+(.+)$`)
	declaration = regexp.MustCompile(`(?s)^([$@][A-Za-z0-9_-]+)(?:\s*[=:]\s*|\s+)(.*)$`)
	reference   = regexp.MustCompile(`^[$@][A-Za-z0-9_-]+$`)
)

// Compiler implements plugin.TemplateCompiler.
type Compiler struct {
	minify bool
	m      *minify.M
}

// New creates a compiler. When minifyOutput is set the generated HTML is
// minified.
func New(minifyOutput bool) *Compiler {
	m := minify.New()
	m.AddFunc(mediaType, html.Minify)

	return &Compiler{minify: minifyOutput, m: m}
}

// Compile renders the template at path.
func (c *Compiler) Compile(ctx context.Context, path string) ([]byte, error) {
	out, err := c.render(ctx, path, map[string]string{}, nil)
	if err != nil {
		return nil, err
	}

	if !c.minify {
		return out, nil
	}

	minified, err := c.m.Bytes(mediaType, out)
	if err != nil {
		return nil, &plugin.SourceError{Path: path, Msg: err.Error()}
	}

	return minified, nil
}

// render expands one file. vars is owned by the caller's scope and is
// copied before use; stack holds the absolute paths being rendered.
func (c *Compiler) render(ctx context.Context, path string, vars map[string]string, stack []string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	for _, p := range stack {
		if p == abs {
			return nil, &plugin.SourceError{Path: path, Msg: "import cycle: " + strings.Join(append(stack, abs), " -> ")}
		}
	}

	stack = append(stack, abs)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", path, err)
	}

	scope := make(map[string]string, len(vars))
	for k, v := range vars {
		scope[k] = v
	}

	var out bytes.Buffer

	last := 0

	for _, m := range comment.FindAllSubmatchIndex(src, -1) {
		out.Write(src[last:m[0]])
		last = m[1]

		body := string(src[m[2]:m[3]])
		line := 1 + bytes.Count(src[:m[0]], []byte("\n"))

		switch {
		case importStmt.MatchString(body):
			list := importStmt.FindStringSubmatch(body)[1]

			for _, name := range splitImports(list) {
				target, resolveErr := resolve(filepath.Dir(path), name)
				if resolveErr != nil {
					return nil, &plugin.SourceError{Path: path, Line: line, Msg: resolveErr.Error()}
				}

				if filepath.Ext(target) != ".kit" {
					raw, readErr := os.ReadFile(target)
					if readErr != nil {
						return nil, fmt.Errorf("reading import %s: %w", target, readErr)
					}

					out.Write(raw)

					continue
				}

				part, renderErr := c.render(ctx, target, scope, stack)
				if renderErr != nil {
					return nil, renderErr
				}

				out.Write(part)
			}

		case reference.MatchString(body):
			v, ok := lookup(scope, body)
			if !ok {
				return nil, &plugin.SourceError{Path: path, Line: line, Msg: "undefined variable " + body}
			}

			out.WriteString(v)

		case declaration.MatchString(body):
			d := declaration.FindStringSubmatch(body)
			scope[d[1][1:]] = strings.TrimSpace(d[2])

		default:
			out.Write(src[m[0]:m[1]])
		}
	}

	out.Write(src[last:])

	return out.Bytes(), nil
}

// lookup resolves a reference regardless of the sigil used to declare it.
func lookup(scope map[string]string, ref string) (string, bool) {
	v, ok := scope[ref[1:]]
	return v, ok
}

func splitImports(list string) []string {
	var names []string

	for _, n := range strings.Split(list, ",") {
		n = strings.Trim(strings.TrimSpace(n), `"'`)
		if n != "" {
			names = append(names, n)
		}
	}

	return names
}

// resolve finds the file an import refers to.
func resolve(dir, name string) (string, error) {
	rel := filepath.FromSlash(name)
	base := filepath.Base(rel)
	sub := filepath.Dir(rel)

	candidates := []string{rel, rel + ".kit"}
	if !strings.HasPrefix(base, "_") {
		candidates = append(candidates,
			filepath.Join(sub, "_"+base),
			filepath.Join(sub, "_"+base+".kit"),
		)
	}

	for _, c := range candidates {
		p := filepath.Join(dir, c)

		info, err := os.Stat(p)
		if err == nil && info.Mode().IsRegular() {
			return p, nil
		}

		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("import %q: %w", name, err)
		}
	}

	return "", fmt.Errorf("import %q not found", name)
}

var _ plugin.TemplateCompiler = (*Compiler)(nil)

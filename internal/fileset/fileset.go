// Package fileset expands source globs into source/destination pairs and
// matches changed paths against watch patterns.
//
// Patterns use doublestar syntax: "*" stays within one directory level,
// "**" crosses directories, and "{a,b}" lists alternatives. A pattern is
// therefore only recursive when it says so.
package fileset

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hupe1980/assetpipe/internal/config"
)

// Pair maps one source file to its destination.
type Pair struct {
	// Src is the source path, joined with the project root.
	Src string

	// Rel is the source path relative to the descriptor's cwd, slash separated.
	Rel string

	// Dest is the destination path, joined with the project root.
	Dest string
}

// Resolve joins p with root unless p is absolute.
func Resolve(root, p string) string {
	if filepath.IsAbs(p) || root == "" {
		return filepath.Clean(p)
	}

	return filepath.Join(root, p)
}

// Glob returns the regular files under dir matching any of the patterns, as
// sorted slash-separated paths relative to dir. A missing dir is an error;
// no matches is not.
func Glob(dir string, patterns []string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("source directory %s: %w", dir, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("source directory %s: not a directory", dir)
	}

	fsys := os.DirFS(dir)
	seen := make(map[string]struct{})

	var out []string

	for _, p := range patterns {
		matches, globErr := doublestar.Glob(fsys, p)
		if globErr != nil {
			return nil, fmt.Errorf("expanding %q in %s: %w", p, dir, globErr)
		}

		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}

			st, statErr := fs.Stat(fsys, m)
			if statErr != nil || !st.Mode().IsRegular() {
				continue
			}

			seen[m] = struct{}{}
			out = append(out, m)
		}
	}

	sort.Strings(out)

	return out, nil
}

// Expand globs a descriptor's sources and maps each one to
// dest/<relative path>, with the extension replaced when f.Ext is set.
func Expand(root string, f config.Files) ([]Pair, error) {
	cwd := Resolve(root, f.Cwd)

	rels, err := Glob(cwd, f.Src)
	if err != nil {
		return nil, err
	}

	dest := Resolve(root, f.Dest)
	pairs := make([]Pair, 0, len(rels))

	for _, rel := range rels {
		out := rel
		if f.Ext != "" {
			out = ReplaceExt(rel, f.Ext)
		}

		pairs = append(pairs, Pair{
			Src:  filepath.Join(cwd, filepath.FromSlash(rel)),
			Rel:  rel,
			Dest: filepath.Join(dest, filepath.FromSlash(out)),
		})
	}

	return pairs, nil
}

// ReplaceExt swaps everything after the first dot of the file name for ext,
// so "theme.min.scss" becomes "theme.css".
func ReplaceExt(p, ext string) string {
	dir, name := path.Split(p)

	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}

	return dir + name + ext
}

// Match reports whether the slash-separated path rel matches any pattern.
func Match(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}

	return false
}

// Base returns the static directory prefix of pattern and whether matching
// files may live in subdirectories of it.
func Base(pattern string) (dir string, recursive bool) {
	base, rest := doublestar.SplitPattern(pattern)

	return base, strings.Contains(rest, "/") || strings.Contains(rest, "**")
}

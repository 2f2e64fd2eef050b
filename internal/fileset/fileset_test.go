package fileset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/assetpipe/internal/config"
)

// touch creates the slash-separated files under root.
func touch(t *testing.T, root string, files ...string) {
	t.Helper()

	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(f), 0o600))
	}
}

// ---------------------------------------------------------------------------
// Glob
// ---------------------------------------------------------------------------

func TestGlob_TopLevelOnly(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.scss", "a.scss", "nested/c.scss", "notes.txt")

	got, err := Glob(dir, []string{"*.scss"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.scss", "b.scss"}, got)
}

func TestGlob_RecursiveBraces(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "logo.png", "icons/a.svg", "icons/deep/b.gif", "photo.jpg", "readme.md")

	got, err := Glob(dir, []string{"**/*.{png,jpg,gif,svg}"})
	require.NoError(t, err)
	assert.Equal(t, []string{"icons/a.svg", "icons/deep/b.gif", "logo.png", "photo.jpg"}, got)
}

func TestGlob_Dedup(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.js")

	got, err := Glob(dir, []string{"*.js", "a.*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js"}, got)
}

func TestGlob_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dir.js"), 0o750))

	got, err := Glob(dir, []string{"*.js"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGlob_MissingDir(t *testing.T) {
	_, err := Glob(filepath.Join(t.TempDir(), "missing"), []string{"*"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source directory")
}

// ---------------------------------------------------------------------------
// Expand
// ---------------------------------------------------------------------------

func TestExpand_ReplacesExtension(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "_html-src/index.kit", "_html-src/about.kit", "_html-src/partials/_nav.kit")

	pairs, err := Expand(root, config.Files{Cwd: "_html-src", Src: []string{"*.kit"}, Dest: "build", Ext: ".html"})
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	assert.Equal(t, filepath.Join(root, "_html-src", "about.kit"), pairs[0].Src)
	assert.Equal(t, "about.kit", pairs[0].Rel)
	assert.Equal(t, filepath.Join(root, "build", "about.html"), pairs[0].Dest)
	assert.Equal(t, filepath.Join(root, "build", "index.html"), pairs[1].Dest)
}

func TestExpand_MirrorsSubdirectories(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "_img-src/a.png", "_img-src/icons/b.svg")

	pairs, err := Expand(root, config.Files{Cwd: "_img-src", Src: []string{"**/*.{png,svg}"}, Dest: "build/images"})
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	assert.Equal(t, filepath.Join(root, "build", "images", "a.png"), pairs[0].Dest)
	assert.Equal(t, filepath.Join(root, "build", "images", "icons", "b.svg"), pairs[1].Dest)
}

func TestReplaceExt(t *testing.T) {
	tests := []struct{ in, ext, want string }{
		{"a.scss", ".css", "a.css"},
		{"theme.min.scss", ".css", "theme.css"},
		{"sub/page.kit", ".html", "sub/page.html"},
		{"noext", ".html", "noext.html"},
		{".hidden", ".css", ".hidden.css"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplaceExt(tt.in, tt.ext))
		})
	}
}

func TestResolve(t *testing.T) {
	assert.Equal(t, filepath.Join("/proj", "build"), Resolve("/proj", "build"))
	assert.Equal(t, filepath.Clean("/abs/build"), Resolve("/proj", "/abs/build"))
	assert.Equal(t, "build", Resolve("", "build"))
}

// ---------------------------------------------------------------------------
// Match / Base
// ---------------------------------------------------------------------------

func TestMatch_Asymmetry(t *testing.T) {
	html := []string{"_html-src/*.html", "_html-src/**/*.kit"}
	js := []string{"_js-src/*.js"}
	img := []string{"_img-src/**"}

	assert.True(t, Match(html, "_html-src/index.kit"))
	assert.True(t, Match(html, "_html-src/partials/nav.kit"))
	assert.True(t, Match(html, "_html-src/raw.html"))
	assert.False(t, Match(html, "_html-src/partials/raw.html"))

	assert.True(t, Match(js, "_js-src/app.js"))
	assert.False(t, Match(js, "_js-src/vendor/lib.js"))

	assert.True(t, Match(img, "_img-src/a/b/c.png"))
	assert.False(t, Match(img, "_css-src/a.scss"))
}

func TestBase(t *testing.T) {
	tests := []struct {
		pattern   string
		dir       string
		recursive bool
	}{
		{"_css-src/**/*.scss", "_css-src", true},
		{"_js-src/*.js", "_js-src", false},
		{"_img-src/**", "_img-src", true},
		{"*.kit", ".", false},
		{"a/*/b.kit", "a", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			dir, rec := Base(tt.pattern)
			assert.Equal(t, tt.dir, dir)
			assert.Equal(t, tt.recursive, rec)
		})
	}
}

package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePackage = `{
  "name": "site",
  "version": "1.4.0",
  "description": "marketing site",
  "author": {"name": "Jo Doe", "email": "jo@example.com"},
  "devDependencies": {
    "grunt-sass": "^2.0.0",
    "autoprefixer": "^6.0.0"
  }
}`

func TestParse(t *testing.T) {
	meta, err := Parse([]byte(samplePackage))
	require.NoError(t, err)

	assert.Equal(t, "site", meta.Name)
	assert.Equal(t, "1.4.0", meta.Version)
	assert.Equal(t, "marketing site", meta.Description)
	assert.Equal(t, "Jo Doe", meta.Author)
	assert.Equal(t, []string{"autoprefixer", "grunt-sass"}, meta.DevDependencies)
	assert.True(t, meta.VersionValid())
	assert.Equal(t, uint64(4), meta.SemVer().Minor())
	assert.Equal(t, "site@1.4.0", meta.Label())
}

func TestParse_StringAuthor(t *testing.T) {
	meta, err := Parse([]byte(`{"name":"a","author":"Jo Doe <jo@example.com>"}`))
	require.NoError(t, err)
	assert.Equal(t, "Jo Doe <jo@example.com>", meta.Author)
	assert.Equal(t, "a", meta.Label())
}

func TestParse_InvalidVersionIsKept(t *testing.T) {
	meta, err := Parse([]byte(`{"name":"a","version":"latest"}`))
	require.NoError(t, err)
	assert.Equal(t, "latest", meta.Version)
	assert.False(t, meta.VersionValid())
	assert.Nil(t, meta.SemVer())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`{"name":`))
	assert.ErrorContains(t, err, "invalid JSON")

	_, err = Parse([]byte(`["a"]`))
	assert.ErrorContains(t, err, "must be an object")
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "package.json")
	require.NoError(t, os.WriteFile(p, []byte(samplePackage), 0o600))

	meta, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, p, meta.Path)
	assert.Equal(t, "site", meta.Name)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "package.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoad_Malformed(t *testing.T) {
	p := filepath.Join(t.TempDir(), "package.json")
	require.NoError(t, os.WriteFile(p, []byte("{"), 0o600))

	_, err := Load(p)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "parsing project file")
}

package sass

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/assetpipe/internal/plugin"
	"github.com/hupe1980/assetpipe/internal/plugin/execx"
)

func TestCompile_Args(t *testing.T) {
	var got execx.Command

	runner := execx.RunnerFunc(func(_ context.Context, c execx.Command) (*execx.Result, error) {
		got = c
		return &execx.Result{Stdout: []byte("a {\n  color: red;\n}\n")}, nil
	})

	c := New(Options{IncludePaths: []string{"vendor"}}, runner)

	css, err := c.Compile(context.Background(), "_css-src/main.scss")
	require.NoError(t, err)
	assert.Equal(t, "a {\n  color: red;\n}\n", string(css))

	assert.Equal(t, "sass", got.Name)
	assert.Equal(t, []string{
		"--style=expanded", "--no-error-css", "--no-source-map",
		"--load-path=vendor", "_css-src/main.scss",
	}, got.Args)
}

func TestCompile_EmbeddedSourceMap(t *testing.T) {
	var got execx.Command

	runner := execx.RunnerFunc(func(_ context.Context, c execx.Command) (*execx.Result, error) {
		got = c
		return &execx.Result{}, nil
	})

	_, err := New(Options{Binary: "dart-sass", SourceMap: true}, runner).Compile(context.Background(), "a.scss")
	require.NoError(t, err)
	assert.Equal(t, "dart-sass", got.Name)
	assert.Contains(t, got.Args, "--embed-source-map")
}

func TestCompile_SyntaxError(t *testing.T) {
	stderr := "Error: expected \";\".\n" +
		"  ╷\n" +
		"2 │   color: red\n" +
		"  │             ^\n" +
		"  ╵\n" +
		"  _css-src/main.scss 2:13  root stylesheet\n"

	runner := execx.RunnerFunc(func(_ context.Context, _ execx.Command) (*execx.Result, error) {
		return &execx.Result{Stderr: []byte(stderr)}, errors.New("sass exited with code 65")
	})

	_, err := New(Options{}, runner).Compile(context.Background(), "_css-src/main.scss")
	require.Error(t, err)

	var se *plugin.SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "_css-src/main.scss", se.Path)
	assert.Equal(t, 2, se.Line)
	assert.Equal(t, 13, se.Column)
	assert.Equal(t, `expected ";".`, se.Msg)
}

func TestCompile_ErrorWithoutLocation(t *testing.T) {
	runner := execx.RunnerFunc(func(_ context.Context, _ execx.Command) (*execx.Result, error) {
		return &execx.Result{Stderr: []byte("Error: Can't find stylesheet to import.\n")}, errors.New("exit 65")
	})

	_, err := New(Options{}, runner).Compile(context.Background(), "a.scss")

	var se *plugin.SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "a.scss", se.Path)
	assert.Zero(t, se.Line)
}

func TestCompile_ToolMissing(t *testing.T) {
	runner := execx.RunnerFunc(func(_ context.Context, c execx.Command) (*execx.Result, error) {
		return nil, plugin.ToolError(c.Name, plugin.ErrToolNotFound)
	})

	_, err := New(Options{}, runner).Compile(context.Background(), "a.scss")
	require.Error(t, err)
	assert.ErrorIs(t, err, plugin.ErrToolNotFound)
	assert.False(t, plugin.IsSourceError(err))
}

func TestOSRunner_MissingBinary(t *testing.T) {
	_, err := execx.OS{}.Run(context.Background(), execx.Command{Name: "assetpipe-no-such-tool"})
	assert.ErrorIs(t, err, plugin.ErrToolNotFound)
}

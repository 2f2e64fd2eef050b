// Package jsmin minifies scripts in-process.
package jsmin

import (
	"context"
	"errors"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/parse/v2"

	"github.com/hupe1980/assetpipe/internal/plugin"
)

const mediaType = "application/javascript"

// Minifier implements plugin.ScriptMinifier.
type Minifier struct {
	m *minify.M
}

// New creates a script minifier.
func New() *Minifier {
	m := minify.New()
	m.AddFunc(mediaType, js.Minify)

	return &Minifier{m: m}
}

// Minify parses and minifies src. Syntax errors are reported as
// plugin.SourceError against name.
func (mf *Minifier) Minify(_ context.Context, name string, src []byte) ([]byte, error) {
	out, err := mf.m.Bytes(mediaType, src)
	if err != nil {
		var perr *parse.Error
		if errors.As(err, &perr) {
			return nil, &plugin.SourceError{Path: name, Line: perr.Line, Column: perr.Column, Msg: perr.Message}
		}

		return nil, &plugin.SourceError{Path: name, Msg: err.Error()}
	}

	return out, nil
}

var _ plugin.ScriptMinifier = (*Minifier)(nil)

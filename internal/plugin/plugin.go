// Package plugin defines the capabilities the build tasks delegate to.
// Each capability is a small interface so a backend can be swapped for
// another tool, or for a fake in tests, without touching the tasks.
package plugin

import (
	"context"
)

// StyleCompiler compiles a stylesheet source file (Sass) to CSS.
type StyleCompiler interface {
	Compile(ctx context.Context, path string) ([]byte, error)
}

// Stylesheet is the input of a post-processing run.
type Stylesheet struct {
	// Path is the location of the CSS file being processed.
	Path string

	// CSS is the current file content.
	CSS []byte

	// MapPath is where an external source map will be written. Empty
	// disables source maps.
	MapPath string

	// Inline embeds the map in the stylesheet instead of MapPath.
	Inline bool

	// PrevMap is the map CSS already carries, e.g. from the Sass compiler
	// or an earlier post-processing run. Its sources are kept so the
	// result maps back to the original input.
	PrevMap []byte
}

// Processed is the result of a post-processing run.
type Processed struct {
	CSS []byte

	// Map is the external source map, nil when none was produced.
	Map []byte
}

// StylePostProcessor adds vendor prefixes to and minifies compiled CSS.
type StylePostProcessor interface {
	Process(ctx context.Context, sheet Stylesheet) (*Processed, error)
}

// ScriptMinifier minifies one script. name is used in error reports.
type ScriptMinifier interface {
	Minify(ctx context.Context, name string, src []byte) ([]byte, error)
}

// TemplateCompiler compiles a template source file to HTML.
type TemplateCompiler interface {
	Compile(ctx context.Context, path string) ([]byte, error)
}

// ImageOptimizer returns an optimized copy of an image. path selects the
// codec by extension.
type ImageOptimizer interface {
	Optimize(ctx context.Context, path string, data []byte) ([]byte, error)
}

// Level distinguishes success and failure notifications.
type Level string

// Notification levels.
const (
	LevelSuccess Level = "success"
	LevelFailure Level = "failure"
)

// Notification is a user-facing completion message.
type Notification struct {
	Title   string
	Message string
	Level   Level
}

// Notifier delivers notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Set bundles one implementation of every capability.
type Set struct {
	Styles    StyleCompiler
	PostCSS   StylePostProcessor
	Scripts   ScriptMinifier
	Templates TemplateCompiler
	Images    ImageOptimizer
	Notifier  Notifier
}

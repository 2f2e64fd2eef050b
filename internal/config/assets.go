package config

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultProjectFile is the project metadata file read at startup.
const DefaultProjectFile = "package.json"

// Supported stylesheet post-processors.
const (
	ProcessorBuiltin = "builtin"
	ProcessorPostCSS = "postcss"
)

// Supported PNG compression levels.
const (
	PNGCompressionDefault = "default"
	PNGCompressionSpeed   = "speed"
	PNGCompressionBest    = "best"
)

// Files describes where an asset class is read from and written to. Src
// patterns are relative to Cwd. Dest is a directory, except for scripts
// where it names the single concatenated output file.
type Files struct {
	Cwd  string   `mapstructure:"cwd" yaml:"cwd"`
	Src  []string `mapstructure:"src" yaml:"src"`
	Dest string   `mapstructure:"dest" yaml:"dest"`

	// Ext replaces the source extension in output names when set.
	Ext string `mapstructure:"ext" yaml:"ext,omitempty"`
}

// Validate checks the descriptor for missing fields and malformed globs.
func (f Files) Validate() error {
	if f.Cwd == "" {
		return errors.New("cwd must not be empty")
	}

	if len(f.Src) == 0 {
		return errors.New("src must list at least one pattern")
	}

	for _, p := range f.Src {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid pattern %q", p)
		}
	}

	if f.Dest == "" {
		return errors.New("dest must not be empty")
	}

	return nil
}

// HTMLConfig configures the template compilation task.
type HTMLConfig struct {
	Files `mapstructure:",squash" yaml:",inline"`

	// Minify collapses the generated HTML.
	Minify bool `mapstructure:"minify" yaml:"minify"`
}

// CSSConfig configures the stylesheet task.
type CSSConfig struct {
	Files `mapstructure:",squash" yaml:",inline"`

	Sass    SassConfig    `mapstructure:"sass" yaml:"sass"`
	PostCSS PostCSSConfig `mapstructure:"postcss" yaml:"postcss"`
}

// SassConfig configures the Sass compilation stage.
type SassConfig struct {
	// Binary is the sass executable name or path.
	Binary string `mapstructure:"binary" yaml:"binary"`

	// IncludePaths are passed to the compiler as load paths.
	IncludePaths []string `mapstructure:"include-paths" yaml:"include-paths,omitempty"`

	// SourceMap lets the compiler emit its own maps.
	SourceMap bool `mapstructure:"source-map" yaml:"source-map"`
}

// PostCSSConfig configures the stylesheet post-processing stage.
type PostCSSConfig struct {
	// Processor selects the implementation: builtin or postcss.
	Processor string `mapstructure:"processor" yaml:"processor"`

	// Binary is the postcss executable used by the postcss processor.
	Binary string `mapstructure:"binary" yaml:"binary"`

	// Src are the globs of compiled stylesheets to process.
	Src []string `mapstructure:"src" yaml:"src"`

	// Browsers is the browserslist query used for prefixing.
	Browsers string `mapstructure:"browsers" yaml:"browsers"`

	Minify bool            `mapstructure:"minify" yaml:"minify"`
	Map    SourceMapConfig `mapstructure:"map" yaml:"map"`
}

// Validate checks the post-processor settings.
func (p PostCSSConfig) Validate() error {
	switch p.Processor {
	case ProcessorBuiltin, ProcessorPostCSS:
	default:
		return fmt.Errorf("invalid postcss processor %q: must be one of builtin, postcss", p.Processor)
	}

	if len(p.Src) == 0 {
		return errors.New("invalid postcss src: at least one pattern is required")
	}

	for _, s := range p.Src {
		if !doublestar.ValidatePattern(s) {
			return fmt.Errorf("invalid postcss src pattern %q", s)
		}
	}

	return nil
}

// SourceMapConfig configures source map emission.
type SourceMapConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Inline embeds the map as a data URI instead of a separate file.
	Inline bool `mapstructure:"inline" yaml:"inline"`

	// Annotation is the directory external maps are written to.
	Annotation string `mapstructure:"annotation" yaml:"annotation"`
}

// JSConfig configures the script task.
type JSConfig struct {
	Files `mapstructure:",squash" yaml:",inline"`
}

// ImageConfig configures the image optimisation task.
type ImageConfig struct {
	Files `mapstructure:",squash" yaml:",inline"`

	// JPEGQuality re-encodes JPEG images lossily when set. Zero keeps them
	// lossless through jpegtran.
	JPEGQuality int `mapstructure:"jpeg-quality" yaml:"jpeg-quality"`

	// JPEGTran is the jpegtran executable name or path.
	JPEGTran string `mapstructure:"jpegtran" yaml:"jpegtran"`

	PNGCompression string `mapstructure:"png-compression" yaml:"png-compression"`
}

// Validate checks the encoder settings.
func (c ImageConfig) Validate() error {
	if c.JPEGQuality < 0 || c.JPEGQuality > 100 {
		return fmt.Errorf("invalid jpeg quality %d: must be 0 (lossless) or between 1 and 100", c.JPEGQuality)
	}

	switch c.PNGCompression {
	case PNGCompressionDefault, PNGCompressionSpeed, PNGCompressionBest:
	default:
		return fmt.Errorf("invalid png compression %q: must be one of default, speed, best", c.PNGCompression)
	}

	return nil
}

// NotifyConfig configures completion notifications.
type NotifyConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Title   string `mapstructure:"title" yaml:"title"`
}

// Package config provides configuration management for assetpipe.
//
// Configuration is loaded from four sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (ASSETPIPE_ prefix)
//  3. Config file (.assetpipe.yaml)
//  4. Built-in defaults describing the standard project layout
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the global configuration for assetpipe.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" yaml:"log-level"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" yaml:"log-format"`

	// NoColor disables colored output.
	NoColor bool `mapstructure:"no-color" yaml:"no-color"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" yaml:"quiet"`

	// Project is the path of the project metadata file.
	Project string `mapstructure:"project" yaml:"project"`

	HTML   HTMLConfig   `mapstructure:"html" yaml:"html"`
	CSS    CSSConfig    `mapstructure:"css" yaml:"css"`
	JS     JSConfig     `mapstructure:"js" yaml:"js"`
	Images ImageConfig  `mapstructure:"img" yaml:"img"`
	Notify NotifyConfig `mapstructure:"notify" yaml:"notify"`

	// Watch maps binding names to watch bindings.
	Watch map[string]WatchBinding `mapstructure:"watch" yaml:"watch"`

	LiveReload LiveReloadConfig `mapstructure:"livereload" yaml:"livereload"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load(); not read from config itself.
	ConfigFile string `mapstructure:"-" yaml:"-"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel:  LogLevelInfo,
		LogFormat: LogFormatText,
		NoColor:   false,
		Quiet:     false,
		Project:   DefaultProjectFile,
		HTML: HTMLConfig{
			Files: Files{Cwd: "_html-src", Src: []string{"*.kit"}, Dest: "build", Ext: ".html"},
		},
		CSS: CSSConfig{
			Files: Files{Cwd: "_css-src", Src: []string{"*.scss"}, Dest: "build", Ext: ".css"},
			Sass: SassConfig{
				Binary:    "sass",
				SourceMap: false,
			},
			PostCSS: PostCSSConfig{
				Processor: ProcessorBuiltin,
				Binary:    "postcss",
				Src:       []string{"build/*.css"},
				Browsers:  "last 3 versions",
				Minify:    true,
				Map: SourceMapConfig{
					Enabled:    true,
					Inline:     false,
					Annotation: "build/",
				},
			},
		},
		JS: JSConfig{
			Files: Files{Cwd: "_js-src", Src: []string{"*.js"}, Dest: "build/scripts/main.min.js"},
		},
		Images: ImageConfig{
			Files:          Files{Cwd: "_img-src", Src: []string{"**/*.{png,jpg,gif,svg}"}, Dest: "build/images"},
			JPEGQuality:    0,
			JPEGTran:       "jpegtran",
			PNGCompression: PNGCompressionBest,
		},
		Notify: NotifyConfig{
			Enabled: true,
			Title:   "assetpipe",
		},
		Watch:      DefaultWatchBindings(),
		LiveReload: DefaultLiveReload(),
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	for name, files := range map[string]Files{
		"html": c.HTML.Files,
		"css":  c.CSS.Files,
		"js":   c.JS.Files,
		"img":  c.Images.Files,
	} {
		if err := files.Validate(); err != nil {
			return fmt.Errorf("invalid %s files: %w", name, err)
		}
	}

	if err := c.CSS.PostCSS.Validate(); err != nil {
		return err
	}

	if err := c.Images.Validate(); err != nil {
		return err
	}

	for name, b := range c.Watch {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("invalid watch binding %q: %w", name, err)
		}
	}

	return c.LiveReload.Validate()
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values in viper. Nested keys are set one by
// one so a config file overriding a single field keeps the other defaults.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("no-color", d.NoColor)
	v.SetDefault("quiet", d.Quiet)
	v.SetDefault("project", d.Project)

	setFilesDefaults(v, "html", d.HTML.Files)
	v.SetDefault("html.minify", d.HTML.Minify)

	setFilesDefaults(v, "css", d.CSS.Files)
	v.SetDefault("css.sass.binary", d.CSS.Sass.Binary)
	v.SetDefault("css.sass.source-map", d.CSS.Sass.SourceMap)
	v.SetDefault("css.postcss.processor", d.CSS.PostCSS.Processor)
	v.SetDefault("css.postcss.binary", d.CSS.PostCSS.Binary)
	v.SetDefault("css.postcss.src", d.CSS.PostCSS.Src)
	v.SetDefault("css.postcss.browsers", d.CSS.PostCSS.Browsers)
	v.SetDefault("css.postcss.minify", d.CSS.PostCSS.Minify)
	v.SetDefault("css.postcss.map.enabled", d.CSS.PostCSS.Map.Enabled)
	v.SetDefault("css.postcss.map.inline", d.CSS.PostCSS.Map.Inline)
	v.SetDefault("css.postcss.map.annotation", d.CSS.PostCSS.Map.Annotation)

	setFilesDefaults(v, "js", d.JS.Files)

	setFilesDefaults(v, "img", d.Images.Files)
	v.SetDefault("img.jpeg-quality", d.Images.JPEGQuality)
	v.SetDefault("img.jpegtran", d.Images.JPEGTran)
	v.SetDefault("img.png-compression", d.Images.PNGCompression)

	v.SetDefault("notify.enabled", d.Notify.Enabled)
	v.SetDefault("notify.title", d.Notify.Title)

	for name, b := range d.Watch {
		prefix := "watch." + name
		v.SetDefault(prefix+".files", b.Files)
		v.SetDefault(prefix+".tasks", b.Tasks)
		v.SetDefault(prefix+".events", b.Events)
		v.SetDefault(prefix+".debounce", b.Debounce)
	}

	v.SetDefault("livereload.enabled", d.LiveReload.Enabled)
	v.SetDefault("livereload.host", d.LiveReload.Host)
	v.SetDefault("livereload.port", d.LiveReload.Port)
	v.SetDefault("livereload.on-error", d.LiveReload.OnError)
}

func setFilesDefaults(v *viper.Viper, prefix string, f Files) {
	v.SetDefault(prefix+".cwd", f.Cwd)
	v.SetDefault(prefix+".src", f.Src)
	v.SetDefault(prefix+".dest", f.Dest)
	v.SetDefault(prefix+".ext", f.Ext)
}

// configureEnv sets up environment variable support.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("ASSETPIPE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
}

// configureFile sets up the config file source.
func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	// Auto-discovery mode.
	v.SetConfigName(".assetpipe")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "assetpipe"))
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file found → perfectly fine in auto-discovery.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}

		// Found a file but it was malformed.
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags walks from cmd up to the root and binds all PersistentFlags.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}

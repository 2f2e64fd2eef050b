package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Watch event types.
const (
	EventAdded   = "added"
	EventChanged = "changed"
)

// DefaultLiveReloadPort is the port browser extensions connect to.
const DefaultLiveReloadPort = 35729

// WatchBinding maps file patterns to the tasks re-run when they change.
type WatchBinding struct {
	// Files are globs relative to the working directory.
	Files []string `mapstructure:"files" yaml:"files"`

	// Tasks are run in order on each qualifying change.
	Tasks []string `mapstructure:"tasks" yaml:"tasks"`

	// Events lists the triggering event types: added, changed.
	Events []string `mapstructure:"events" yaml:"events"`

	// Debounce is the quiet period before a run starts.
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// Validate checks the binding's patterns and event types. Task names are
// resolved against the task registry at startup, not here.
func (b WatchBinding) Validate() error {
	if len(b.Files) == 0 {
		return errors.New("files must list at least one pattern")
	}

	for _, f := range b.Files {
		if !doublestar.ValidatePattern(f) {
			return fmt.Errorf("invalid pattern %q", f)
		}
	}

	if len(b.Tasks) == 0 {
		return errors.New("tasks must name at least one task")
	}

	for _, e := range b.Events {
		switch e {
		case EventAdded, EventChanged:
		default:
			return fmt.Errorf("invalid event %q: must be one of added, changed", e)
		}
	}

	if b.Debounce < 0 {
		return fmt.Errorf("invalid debounce %s: must not be negative", b.Debounce)
	}

	return nil
}

// Triggers reports whether the binding reacts to the event type. An empty
// event list means every supported type.
func (b WatchBinding) Triggers(event string) bool {
	if len(b.Events) == 0 {
		return event == EventAdded || event == EventChanged
	}

	for _, e := range b.Events {
		if e == event {
			return true
		}
	}

	return false
}

// DefaultWatchBindings returns the bindings for the standard source layout.
func DefaultWatchBindings() map[string]WatchBinding {
	events := []string{EventAdded, EventChanged}
	debounce := 100 * time.Millisecond

	return map[string]WatchBinding{
		"html": {
			Files:    []string{"_html-src/*.html", "_html-src/**/*.kit"},
			Tasks:    []string{"html"},
			Events:   events,
			Debounce: debounce,
		},
		"css": {
			Files:    []string{"_css-src/**/*.scss"},
			Tasks:    []string{"css"},
			Events:   events,
			Debounce: debounce,
		},
		"js": {
			Files:    []string{"_js-src/*.js"},
			Tasks:    []string{"js"},
			Events:   events,
			Debounce: debounce,
		},
		"img": {
			Files:    []string{"_img-src/**"},
			Tasks:    []string{"img"},
			Events:   events,
			Debounce: debounce,
		},
	}
}

// LiveReloadConfig configures the live-reload server started by watch.
type LiveReloadConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Host    string `mapstructure:"host" yaml:"host"`
	Port    int    `mapstructure:"port" yaml:"port"`

	// OnError also signals a reload after a failed run.
	OnError bool `mapstructure:"on-error" yaml:"on-error"`
}

// DefaultLiveReload returns the live-reload defaults.
func DefaultLiveReload() LiveReloadConfig {
	return LiveReloadConfig{
		Enabled: true,
		Host:    "localhost",
		Port:    DefaultLiveReloadPort,
		OnError: false,
	}
}

// Validate checks the listen port.
func (c LiveReloadConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid livereload port %d: must be between 1 and 65535", c.Port)
	}

	return nil
}

// Addr returns the host:port listen address.
func (c LiveReloadConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// YAML renders the effective configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}

	return data, nil
}

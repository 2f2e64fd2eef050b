// Package project reads the project metadata file (package.json) once at
// startup and exposes it to the task layer.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/gjson"
)

// ErrNotFound is returned by Load when the metadata file does not exist.
var ErrNotFound = errors.New("project metadata file not found")

// Meta holds the fields assetpipe reads from the metadata file.
type Meta struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Author      string `json:"author,omitempty" yaml:"author,omitempty"`

	// DevDependencies lists the declared development dependency names, sorted.
	DevDependencies []string `json:"devDependencies,omitempty" yaml:"devDependencies,omitempty"`

	// Path is the file the metadata was read from.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	semver *semver.Version
}

// Load reads and parses the metadata file at path.
func Load(path string) (*Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return nil, fmt.Errorf("reading project file %s: %w", path, err)
	}

	meta, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing project file %s: %w", path, err)
	}

	meta.Path = path

	return meta, nil
}

// Parse extracts metadata from raw JSON. The author field may be a string
// or an object with a name.
func Parse(data []byte) (*Meta, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, errors.New("top-level value must be an object")
	}

	meta := &Meta{
		Name:        doc.Get("name").String(),
		Version:     doc.Get("version").String(),
		Description: doc.Get("description").String(),
	}

	author := doc.Get("author")
	if author.IsObject() {
		meta.Author = author.Get("name").String()
	} else {
		meta.Author = author.String()
	}

	doc.Get("devDependencies").ForEach(func(key, _ gjson.Result) bool {
		meta.DevDependencies = append(meta.DevDependencies, key.String())
		return true
	})
	sort.Strings(meta.DevDependencies)

	if meta.Version != "" {
		if v, err := semver.NewVersion(meta.Version); err == nil {
			meta.semver = v
		}
	}

	return meta, nil
}

// VersionValid reports whether Version is a semantic version.
func (m *Meta) VersionValid() bool {
	return m.semver != nil
}

// SemVer returns the parsed version, or nil when it is missing or invalid.
func (m *Meta) SemVer() *semver.Version {
	return m.semver
}

// Label returns "name@version", or the name alone when no version is set.
func (m *Meta) Label() string {
	switch {
	case m.Name == "":
		return ""
	case m.Version == "":
		return m.Name
	default:
		return m.Name + "@" + m.Version
	}
}

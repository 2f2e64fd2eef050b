// Package version reports build metadata for the assetpipe binary. Values are
// injected with -ldflags; a binary installed with `go install` falls back to
// the module version recorded in its build info.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Build-time values injected via -ldflags.
var (
	version   = "dev"
	gitCommit = "none"
	buildDate = "unknown"
)

// Info holds the build metadata for the binary.
type Info struct {
	Version    string `json:"version"`
	GitCommit  string `json:"gitCommit"`
	BuildDate  string `json:"buildDate"`
	GoVersion  string `json:"goVersion"`
	Platform   string `json:"platform"`
	Prerelease bool   `json:"prerelease"`
}

// GetInfo returns the current build information.
func GetInfo() Info {
	info := Info{
		Version:   resolveVersion(version, readModuleVersion),
		GitCommit: shortCommit(gitCommit),
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	info.Prerelease = isPrerelease(info.SemVer())

	return info
}

// SemVer parses the version, returning nil for development builds.
func (i Info) SemVer() *semver.Version {
	v, err := semver.NewVersion(strings.TrimSpace(i.Version))
	if err != nil {
		return nil
	}

	return v
}

// String returns a human-readable single-line version string.
func (i Info) String() string {
	return fmt.Sprintf("assetpipe %s (commit: %s, built: %s, %s %s)",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}

// JSON returns the version info as indented JSON.
func (i Info) JSON() (string, error) {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling version info: %w", err)
	}

	return string(data), nil
}

// resolveVersion prefers the injected version. A "dev" build uses the module
// version from the build info unless that is "(devel)" or empty.
func resolveVersion(injected string, module func() string) string {
	if injected != "dev" {
		return injected
	}

	if mv := module(); mv != "" && mv != "(devel)" {
		return mv
	}

	return injected
}

func readModuleVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	return bi.Main.Version
}

// isPrerelease reports whether v has a pre-release part. A nil version,
// "dev" included, counts as pre-release.
func isPrerelease(v *semver.Version) bool {
	return v == nil || v.Prerelease() != ""
}

// shortCommit truncates a commit SHA to 7 characters.
func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}

	return commit
}

package task

import (
	"github.com/hupe1980/assetpipe/internal/config"
	"github.com/hupe1980/assetpipe/internal/fileset"
	"github.com/hupe1980/assetpipe/internal/output"
	"github.com/hupe1980/assetpipe/internal/plugin"
	"github.com/hupe1980/assetpipe/internal/project"
)

// Env is everything a task needs to run. It is built once at startup and
// shared read-only by all tasks.
type Env struct {
	// Root is the project directory relative paths are resolved against.
	Root string

	Config  *config.Config
	Project *project.Meta
	Plugins plugin.Set
	Writer  output.Writer
}

func (e *Env) path(p string) string {
	return fileset.Resolve(e.Root, p)
}

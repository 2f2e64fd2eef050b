package task

import (
	"context"
)

func newHTML(env *Env) *Pipeline {
	return &Pipeline{
		name:        HTML,
		description: "Compile Kit templates to HTML",
		label:       "HTML",
		success:     "HTML compiled",
		stages: []Stage{
			{Name: "codekit", Run: env.codekitStage},
		},
		notifier: env.Plugins.Notifier,
		title:    env.Config.Notify.Title,
	}
}

// codekitStage compiles each top-level template to one HTML file of the
// same base name.
func (e *Env) codekitStage(ctx context.Context, st *State) error {
	pairs, err := e.sources(e.Config.HTML.Files)
	if err != nil {
		return err
	}

	compiled := make([][]byte, len(pairs))

	for i, p := range pairs {
		html, compileErr := e.Plugins.Templates.Compile(ctx, p.Src)
		if compileErr != nil {
			return compileErr
		}

		compiled[i] = html
	}

	return e.writeAll(st, pairs, compiled)
}

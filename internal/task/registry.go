package task

import (
	"fmt"
	"sync"
)

// Registry maps task names to tasks.
type Registry struct {
	mu    sync.RWMutex
	tasks map[Name]Task
}

// NewRegistry creates a registry holding the css, js, html and img tasks
// bound to env.
func NewRegistry(env *Env) *Registry {
	r := &Registry{tasks: make(map[Name]Task)}

	r.Register(newCSS(env))
	r.Register(newJS(env))
	r.Register(newHTML(env))
	r.Register(newImg(env))

	return r
}

// Register adds t under its name, replacing any previous task.
func (r *Registry) Register(t Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[t.Name()] = t
}

// Lookup returns the task registered under name.
func (r *Registry) Lookup(name string) (Task, error) {
	n, err := ParseName(name)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[n]
	if !ok {
		return nil, fmt.Errorf("%w %q: not registered", ErrUnknownTask, name)
	}

	return t, nil
}

// Names returns the registered task names in default run order.
func (r *Registry) Names() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]Name, 0, len(r.tasks))

	for _, n := range DefaultOrder {
		if _, ok := r.tasks[n]; ok {
			names = append(names, n)
		}
	}

	return names
}

// Resolve looks up every name, failing on the first one that is not
// registered.
func (r *Registry) Resolve(names []string) ([]Task, error) {
	tasks := make([]Task, 0, len(names))

	for _, name := range names {
		t, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, t)
	}

	return tasks, nil
}

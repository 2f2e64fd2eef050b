// Package task defines the composite build tasks and the registry that
// exposes them by name. A task is an ordered pipeline of stages followed by
// a completion notification.
package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Name identifies a composite task.
type Name string

// Registered task names.
const (
	CSS  Name = "css"
	JS   Name = "js"
	HTML Name = "html"
	Img  Name = "img"
)

// DefaultOrder is the order tasks run in when none are named.
var DefaultOrder = []Name{HTML, CSS, JS, Img}

// ErrUnknownTask is returned for a name that is not registered.
var ErrUnknownTask = errors.New("unknown task")

// ParseName validates s against the closed set of task names.
func ParseName(s string) (Name, error) {
	switch n := Name(strings.TrimSpace(s)); n {
	case CSS, JS, HTML, Img:
		return n, nil
	default:
		return "", fmt.Errorf("%w %q: must be one of %s", ErrUnknownTask, s, joinNames(DefaultOrder))
	}
}

func (n Name) String() string {
	return string(n)
}

// Task is a runnable composite task.
type Task interface {
	Name() Name
	Description() string
	Run(ctx context.Context) (*Result, error)
}

// Result summarises a finished run.
type Result struct {
	Task Name

	// Outputs are the files written, in write order.
	Outputs []string

	Duration time.Duration
}

func joinNames(names []Name) string {
	s := make([]string, len(names))
	for i, n := range names {
		s[i] = string(n)
	}

	return strings.Join(s, ", ")
}

package plugin

import (
	"errors"
	"fmt"
)

// ErrToolNotFound is returned when an external processor is not installed.
var ErrToolNotFound = errors.New("tool not found")

// SourceError reports malformed input with its location. Line and Column
// are 1-based; zero means unknown.
type SourceError struct {
	Path   string
	Line   int
	Column int
	Msg    string
}

func (e *SourceError) Error() string {
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Msg)
	case e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
	default:
		return fmt.Sprintf("%s: %s", e.Path, e.Msg)
	}
}

// IsSourceError reports whether err is or wraps a SourceError.
func IsSourceError(err error) bool {
	var se *SourceError
	return errors.As(err, &se)
}

// ToolError wraps a failed or missing external processor.
func ToolError(tool string, err error) error {
	return fmt.Errorf("%s: %w", tool, err)
}

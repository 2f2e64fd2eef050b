package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

// Status prints one line per finished task run. It is safe for concurrent
// use.
type Status struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewStatus creates a status printer writing to w.
func NewStatus(w io.Writer, color bool) *Status {
	return &Status{w: w, color: color}
}

// Success reports a task that wrote n artifacts.
func (s *Status) Success(task string, n int, d time.Duration) {
	noun := "files"
	if n == 1 {
		noun = "file"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintf(s.w, "%s %s %s\n",
		s.render(okStyle, "✔ "+task),
		fmt.Sprintf("%d %s", n, noun),
		s.render(dimStyle, "("+d.Round(time.Millisecond).String()+")"))
}

// Failure reports a task that stopped with err.
func (s *Status) Failure(task string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintf(s.w, "%s %v\n", s.render(failStyle, "✘ "+task), err)
}

func (s *Status) render(style lipgloss.Style, text string) string {
	if !s.color {
		return text
	}

	return style.Render(text)
}

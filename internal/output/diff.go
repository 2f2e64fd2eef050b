package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"
)

// DiffResult holds the result of a unified diff computation.
type DiffResult struct {
	Unified        string
	HasDifferences bool
	OldLabel       string
	NewLabel       string
}

// DiffOptions configures diff computation.
type DiffOptions struct {
	OldLabel string
	NewLabel string
	Context  int
}

// DefaultDiffOptions returns sensible default diff options.
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		OldLabel: "existing",
		NewLabel: "proposed",
		Context:  3,
	}
}

// ComputeDiff computes a unified diff between two text documents.
func ComputeDiff(oldDoc, newDoc string, opts DiffOptions) (*DiffResult, error) {
	if oldDoc == newDoc {
		return &DiffResult{OldLabel: opts.OldLabel, NewLabel: opts.NewLabel}, nil
	}

	diff := difflib.UnifiedDiff{
		A:        splitLines(oldDoc),
		B:        splitLines(newDoc),
		FromFile: opts.OldLabel,
		ToFile:   opts.NewLabel,
		Context:  opts.Context,
	}

	unified, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return nil, fmt.Errorf("computing diff: %w", err)
	}

	return &DiffResult{
		Unified:        unified,
		HasDifferences: unified != "",
		OldLabel:       opts.OldLabel,
		NewLabel:       opts.NewLabel,
	}, nil
}

var (
	diffHeaderStyle = lipgloss.NewStyle().Bold(true)
	diffHunkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	diffDelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	diffAddStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// WriteDiff writes a formatted diff to w, coloured when color is set.
func WriteDiff(w io.Writer, result *DiffResult, color bool) {
	if !result.HasDifferences {
		_, _ = fmt.Fprintln(w, "No differences found.")
		return
	}

	for _, line := range strings.Split(strings.TrimSuffix(result.Unified, "\n"), "\n") {
		if color {
			line = colorLine(line)
		}

		_, _ = fmt.Fprintln(w, line)
	}
}

func colorLine(line string) string {
	switch {
	case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
		return diffHeaderStyle.Render(line)
	case strings.HasPrefix(line, "@@"):
		return diffHunkStyle.Render(line)
	case strings.HasPrefix(line, "-"):
		return diffDelStyle.Render(line)
	case strings.HasPrefix(line, "+"):
		return diffAddStyle.Render(line)
	default:
		return line
	}
}

// WriteChanges prints every change of a dry run.
func WriteChanges(w io.Writer, changes []Change, color bool) {
	if len(changes) == 0 {
		_, _ = fmt.Fprintln(w, "No changes.")
		return
	}

	for _, c := range changes {
		switch {
		case c.Binary && c.Created:
			_, _ = fmt.Fprintf(w, "create %s (%d bytes)\n", c.Path, c.NewSize)
		case c.Binary:
			_, _ = fmt.Fprintf(w, "update %s (%d -> %d bytes)\n", c.Path, c.OldSize, c.NewSize)
		default:
			WriteDiff(w, c.Diff, color)
		}
	}
}

// splitLines splits a string into lines for diff processing.
// Each element includes a trailing newline for difflib compatibility.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}

	return strings.SplitAfter(s, "\n")
}

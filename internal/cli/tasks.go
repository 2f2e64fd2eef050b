package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/assetpipe/internal/config"
	"github.com/hupe1980/assetpipe/internal/task"
)

func newTasksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List tasks and watch bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd, true)
			if err != nil {
				return err
			}

			return renderTasks(cmd.OutOrStdout(), s.registry, s.cfg.Watch)
		},
	}
}

// stager is implemented by tasks that expose their stage names.
type stager interface {
	Stages() []string
}

func renderTasks(w io.Writer, reg *task.Registry, bindings map[string]config.WatchBinding) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TASK\tSTAGES\tDESCRIPTION")

	for _, name := range reg.Names() {
		t, err := reg.Lookup(string(name))
		if err != nil {
			return err
		}

		stages := "-"
		if st, ok := t.(stager); ok {
			stages = strings.Join(st.Stages(), " -> ")
		}

		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", name, stages, t.Description())
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if len(bindings) == 0 {
		return nil
	}

	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}

	sort.Strings(names)

	_, _ = fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BINDING\tFILES\tTASKS\tEVENTS\tDEBOUNCE")

	for _, name := range names {
		b := bindings[name]
		events := "added,changed"

		if len(b.Events) > 0 {
			events = strings.Join(b.Events, ",")
		}

		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			name, strings.Join(b.Files, ","), strings.Join(b.Tasks, ","), events, b.Debounce)
	}

	return tw.Flush()
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/assetpipe/internal/config"
	"github.com/hupe1980/assetpipe/internal/output"
	"github.com/hupe1980/assetpipe/internal/task"
)

// newTaskCommands returns one subcommand per registered task.
func newTaskCommands() []*cobra.Command {
	// Descriptions only; the registry built here never runs a task.
	reg := task.NewRegistry(&task.Env{Config: config.Default()})

	cmds := make([]*cobra.Command, 0, len(task.DefaultOrder))

	for _, name := range reg.Names() {
		t, err := reg.Lookup(string(name))
		if err != nil {
			continue
		}

		cmds = append(cmds, newTaskCommand(name, t.Description()))
	}

	return cmds
}

func newTaskCommand(name task.Name, description string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   string(name),
		Short: description,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTasks(cmd, []string{string(name)}, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the changes instead of writing them")

	return cmd
}

func newRunCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run [task...]",
		Short: "Run several tasks in order",
		Long: `Run the named tasks one after another. Without arguments every task runs
in the default order: html, css, js, img.

The run stops at the first failing task.`,
		ValidArgs: taskNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = taskNames()
			}

			return runTasks(cmd, args, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the changes instead of writing them")

	return cmd
}

func taskNames() []string {
	names := make([]string, 0, len(task.DefaultOrder))
	for _, n := range task.DefaultOrder {
		names = append(names, string(n))
	}

	return names
}

// runTasks resolves names, then runs the tasks in order. Unknown names exit
// with code 2 before anything runs; a failing task exits with code 1.
func runTasks(cmd *cobra.Command, names []string, dryRun bool) error {
	s, err := newSession(cmd, dryRun)
	if err != nil {
		return err
	}

	tasks, err := s.registry.Resolve(names)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	status := s.status(cmd.ErrOrStderr())

	for _, t := range tasks {
		res, runErr := t.Run(cmd.Context())
		if runErr != nil {
			status.Failure(string(t.Name()), runErr)
			return &ExitError{Code: 1, Err: runErr}
		}

		status.Success(string(res.Task), len(res.Outputs), res.Duration)
	}

	if s.dryRun == nil {
		return nil
	}

	changes, err := s.dryRun.Changes()
	if err != nil {
		return fmt.Errorf("collecting changes: %w", err)
	}

	output.WriteChanges(cmd.OutOrStdout(), changes, !s.cfg.NoColor)

	return nil
}

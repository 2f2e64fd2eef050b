// Package cli implements the cobra command tree for assetpipe.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hupe1980/assetpipe/internal/config"
	"github.com/hupe1980/assetpipe/internal/logging"
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute builds the command tree, runs it, and returns the exit code.
func Execute() int {
	cmd := NewRootCommand()

	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)

		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}

		return 1
	}

	return 0
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	var (
		cfgFile string
		dir     string
	)

	cmd := &cobra.Command{
		Use:   "assetpipe",
		Short: "Build and watch front-end assets",
		Long: `assetpipe builds the front-end assets of a static site.

It compiles Sass to prefixed, minified CSS with source maps, concatenates
and minifies scripts, compiles CodeKit .kit templates to HTML and optimizes
images. The watch command re-runs the affected task whenever a source file
changes and tells connected browsers to reload over the LiveReload protocol.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			root, err := filepath.Abs(dir)
			if err != nil {
				return &ExitError{Code: 2, Err: fmt.Errorf("resolving project directory: %w", err)}
			}

			if info, statErr := os.Stat(root); statErr != nil || !info.IsDir() {
				return &ExitError{Code: 2, Err: fmt.Errorf("project directory %q does not exist", dir)}
			}

			cfg, err := config.Load(cmd, discoverConfig(cfgFile, root))
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			logger := logging.Setup(cfg)

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = logging.NewContext(ctx, logger)
			ctx = withRoot(ctx, root)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("root", root),
				slog.String("configFile", cfg.ConfigFile),
				slog.String("logLevel", cfg.LogLevel),
				slog.String("logFormat", cfg.LogFormat),
			)

			return nil
		},
	}

	// Global persistent flags.
	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .assetpipe.yaml in the project directory)")
	pf.StringVarP(&dir, "dir", "C", ".", "project directory")
	pf.String("project", config.DefaultProjectFile, "project metadata file")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")
	pf.Bool("no-color", false, "disable colored output")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")

	// Flag parsing errors return exit code 2.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})

	cmd.AddCommand(newTaskCommands()...)
	cmd.AddCommand(
		newRunCommand(),
		newWatchCommand(),
		newTasksCommand(),
		newInfoCommand(),
		newConfigCommand(),
		newVersionCommand(),
		newCompletionCommand(),
	)

	return cmd
}

// discoverConfig returns the explicit config file, or the project
// directory's .assetpipe.yaml when one exists there. An empty result leaves
// discovery to the config loader.
func discoverConfig(cfgFile, root string) string {
	if cfgFile != "" {
		return cfgFile
	}

	candidate := filepath.Join(root, ".assetpipe.yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}

	return ""
}

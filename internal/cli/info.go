package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/assetpipe/internal/config"
	"github.com/hupe1980/assetpipe/internal/logging"
	"github.com/hupe1980/assetpipe/internal/project"
)

func newInfoCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print project metadata",
		Long: `Print the metadata read from the project file (package.json by default):
name, version, description, author and development dependencies.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			meta, err := loadProject(rootFromContext(ctx), config.FromContext(ctx), logging.FromContext(ctx))
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			w := cmd.OutOrStdout()

			switch format {
			case "table":
				return renderInfoTable(w, meta)
			case "json":
				return renderInfoJSON(w, meta)
			case "yaml":
				return renderInfoYAML(w, meta)
			default:
				return &ExitError{Code: 2, Err: fmt.Errorf("unknown format %q: expected table, json, yaml", format)}
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json, yaml")

	return cmd
}

func renderInfoTable(w io.Writer, meta *project.Meta) error {
	if meta.Path == "" {
		_, err := fmt.Fprintln(w, "No project metadata found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Project:\t%s%s\n", meta.Label(), versionNote(meta))
	_, _ = fmt.Fprintf(tw, "Description:\t%s\n", meta.Description)
	_, _ = fmt.Fprintf(tw, "Author:\t%s\n", meta.Author)
	_, _ = fmt.Fprintf(tw, "Dev dependencies:\t%s\n", strings.Join(meta.DevDependencies, ", "))
	_, _ = fmt.Fprintf(tw, "File:\t%s\n", meta.Path)

	return tw.Flush()
}

// versionNote qualifies versions that are not plain releases.
func versionNote(meta *project.Meta) string {
	switch v := meta.SemVer(); {
	case meta.Version == "":
		return ""
	case v == nil:
		return " (not semver)"
	case v.Prerelease() != "":
		return " (pre-release)"
	default:
		return ""
	}
}

func renderInfoJSON(w io.Writer, meta *project.Meta) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(meta)
}

func renderInfoYAML(w io.Writer, meta *project.Meta) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration assetpipe would run with, after merging defaults,
the config file, ASSETPIPE_* environment variables and flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.FromContext(cmd.Context()).YAML()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}
}

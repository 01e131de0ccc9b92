package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/waterinstitute/hecmeta/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <job-file>",
		Short: "Validate a job file",
		Long: `Validate a hecmeta job file without extracting anything.

Checks:
  - YAML syntax
  - Required fields per dialect
  - Key order and registry settings
  - Project and boundary file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
}

func runValidate(ctx context.Context, w io.Writer, jobPath string) error {
	ctx = commandContext(ctx)

	fmt.Fprintf(w, "Validating %s...\n", jobPath)

	job, err := config.Load(ctx, jobPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(w, "\nJob valid!\n")
	fmt.Fprintf(w, "  Output dir: %s\n", job.OutputDir)
	fmt.Fprintf(w, "  Projects:   %d\n", len(job.Projects))
	if job.Registry != nil {
		fmt.Fprintf(w, "  Registry:   %s\n", job.Registry.URL)
	}

	fmt.Fprintf(w, "\nProjects:\n")
	for i, p := range job.Projects {
		fmt.Fprintf(w, "  %d. [%s] %s\n", i+1, p.Dialect, p.ProjectFile)
		if p.Dialect == config.DialectConsequences {
			fmt.Fprintf(w, "     %s\n", p.Consequences.ProjectName)
		}
	}

	var missing []string
	for _, p := range job.Projects {
		for _, path := range []string{p.ProjectFile, p.BoundaryFile} {
			if path == "" {
				continue
			}
			if _, err := os.Stat(path); err != nil {
				missing = append(missing, path)
			}
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(w, "\nWarning: %d file(s) not found\n", len(missing))
		for _, f := range missing {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}

	return nil
}

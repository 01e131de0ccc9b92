package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/waterinstitute/hecmeta/internal/ctxlog"
	"github.com/waterinstitute/hecmeta/pkg/config"
	"github.com/waterinstitute/hecmeta/pkg/dialect"
	"github.com/waterinstitute/hecmeta/pkg/extract"
	"github.com/waterinstitute/hecmeta/pkg/output"
	"github.com/waterinstitute/hecmeta/pkg/registry"
)

// RunOptions holds command-line options for the run command.
type RunOptions struct {
	Output  string
	Verbose bool
	Quiet   bool

	// Registry options
	RegistryURL   string
	RegistryToken string
	NoPublish     bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <job-file>",
		Short: "Extract every project of a job file",
		Long: `Extract metadata for every project listed in a YAML job file.

Projects are processed one at a time in file order. A failed project is
reported and the remaining projects still run. When the job names a
registry the written documents are published after each project.

Exit codes:
  0 - Every project extracted
  1 - At least one project failed
  2 - Job file or runtime error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Report format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "List written documents and warnings")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	cmd.Flags().StringVar(&opts.RegistryURL, "registry-url", "", "Registry endpoint URL (overrides the job file)")
	cmd.Flags().StringVar(&opts.RegistryToken, "registry-token", "", "Bearer token for registry auth")
	cmd.Flags().BoolVar(&opts.NoPublish, "no-publish", false, "Do not publish even when the job names a registry")

	return cmd
}

func runJob(ctx context.Context, w io.Writer, jobPath string, opts *RunOptions) error {
	ctx = commandContext(ctx)
	log := ctxlog.FromContext(ctx)
	started := time.Now()

	formatter, err := createFormatter(opts)
	if err != nil {
		return err
	}

	job, err := config.Load(ctx, jobPath)
	if err != nil {
		return fmt.Errorf("loading job: %w", err)
	}
	applySettings(job, settingsFrom(ctx))
	reg := collectRegistry(job, opts)

	results := make([]output.ProjectResult, 0, len(job.Projects))
	for i, p := range job.Projects {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Info("extracting project", "index", i, "dialect", p.Dialect, "project_file", p.ProjectFile)

		drv, err := dialect.New(p.Dialect)
		if err != nil {
			return fmt.Errorf("projects[%d]: %w", i, err)
		}
		res := extract.RunProject(ctx, drv, p)
		log.Info(res.Status, "project", res.Project, "documents", len(res.Documents))

		if reg != nil && res.Outcome == output.OutcomeSucceeded {
			publish(ctx, res, *reg)
		}
		results = append(results, res)
	}

	report := output.NewReport(results, jobPath, started)
	if err := formatter.Format(ctx, report, w); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if report.HasFailures() {
		ExitCode = 1
	}
	return nil
}

func createFormatter(opts *RunOptions) (output.Formatter, error) {
	formatOpts := output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	}

	switch opts.Output {
	case "text":
		return output.NewTextFormatter(formatOpts), nil
	case "json":
		return output.NewJSONFormatter(formatOpts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}
}

// applySettings fills the template directory from the user settings for
// projects that name none. A job always resolves its own output directory.
func applySettings(job *config.Job, s *config.Settings) {
	for i := range job.Projects {
		if job.Projects[i].TemplateDir == "" {
			job.Projects[i].TemplateDir = s.TemplateDir
		}
	}
}

// collectRegistry merges the job's registry block with the command line.
func collectRegistry(job *config.Job, opts *RunOptions) *registry.PublishOptions {
	if opts.NoPublish {
		return nil
	}

	var reg registry.PublishOptions
	if job.Registry != nil {
		reg = registry.PublishOptions{
			URL:     job.Registry.URL,
			Token:   job.Registry.Token,
			Timeout: job.Registry.Timeout,
		}
	}
	if opts.RegistryURL != "" {
		reg.URL = opts.RegistryURL
	}
	if opts.RegistryToken != "" {
		reg.Token = opts.RegistryToken
	}
	if reg.URL == "" {
		return nil
	}
	if reg.Timeout == 0 {
		reg.Timeout = config.DefaultRegistryTimeout
	}
	return &reg
}

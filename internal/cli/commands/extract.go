package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/waterinstitute/hecmeta/internal/ctxlog"
	"github.com/waterinstitute/hecmeta/pkg/config"
	"github.com/waterinstitute/hecmeta/pkg/dialect"
	"github.com/waterinstitute/hecmeta/pkg/extract"
	"github.com/waterinstitute/hecmeta/pkg/output"
	"github.com/waterinstitute/hecmeta/pkg/registry"
)

// ExtractOptions holds command-line options for the per-dialect commands.
type ExtractOptions struct {
	Project config.Project

	RegistryURL   string
	RegistryToken string
}

var dialectExamples = map[config.Dialect]string{
	config.DialectRAS: `  hecmeta ras --boundary Amite/boundary.shp Amite/Amite.prj
  hecmeta ras --boundary Amite/boundary.gpkg --boundary-layer domain --keyword LWI Amite/Amite.prj`,
	config.DialectHMS: `  hecmeta hms --boundary Amite/subbasins.shp Amite/Amite.hms
  hecmeta hms --boundary Amite/subbasins.shp --time-series-dir Amite/dss Amite/Amite.hms`,
	config.DialectFIA: `  hecmeta fia --boundary Amite/maps/outline.geojson Amite/Amite.prj`,
	config.DialectConsequences: `  hecmeta consequences --project-name "Amite River" --data-dir Amite/data \
    --model-output-dir Amite/output --run-table Amite/runs.csv Amite/main.go`,
}

// NewExtractCommand creates the extraction command for one dialect.
func NewExtractCommand(d config.Dialect) *cobra.Command {
	opts := &ExtractOptions{}
	software := d.Software()

	cmd := &cobra.Command{
		Use:     string(d) + " <project-file>",
		Aliases: []string{strings.ToLower(software)},
		Short:   fmt.Sprintf("Extract %s project metadata", software),
		Long: fmt.Sprintf(`Extract metadata from a %s project into model application and
simulation JSON documents.

Documents are written to <output-dir>/%s/<project>. The command prints a
status line naming the output directory, or the failure trace.

Exit codes:
  0 - Documents written
  1 - Extraction failed
  2 - Invalid arguments

Example:
%s`, software, d, dialectExamples[d]),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Project.Dialect = d
			opts.Project.ProjectFile = args[0]
			return runExtract(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	p := &opts.Project
	flags := cmd.Flags()
	flags.StringVarP(&p.OutputDir, "output-dir", "o", "", "Output directory (default from settings)")
	flags.StringVar(&p.TemplateDir, "template-dir", "", "Directory of template overrides")
	flags.StringVar((*string)(&p.KeyOrder), "key-order", "", "Document key order (schema|template)")
	flags.StringSliceVar(&p.Keywords, "keyword", nil, "Extra keyword for the model application (can be repeated)")
	flags.StringVar(&p.ProjectID, "project-id", "", "Registry project identifier")
	flags.StringVar(&p.FallbackCRS, "fallback-crs", "", "CRS to assume for a boundary without one (e.g. EPSG:26915)")
	flags.StringVar(&opts.RegistryURL, "registry-url", "", "Publish the written documents to this registry")
	flags.StringVar(&opts.RegistryToken, "registry-token", "", "Bearer token for the registry")

	if d == config.DialectConsequences {
		flags.StringVar(&p.BoundaryFile, "boundary", "", "Boundary vector file (optional)")
	} else {
		flags.StringVar(&p.BoundaryFile, "boundary", "", "Boundary vector file (shp, geojson or gpkg)")
	}
	flags.StringVar(&p.BoundaryLayer, "boundary-layer", "", "GeoPackage layer holding the boundary")

	switch d {
	case config.DialectHMS:
		flags.StringVar(&p.TimeSeriesDir, "time-series-dir", "", "Extra directory of DSS time series files")
	case config.DialectConsequences:
		c := &p.Consequences
		flags.StringVar(&c.ProjectName, "project-name", "", "Project name")
		flags.StringVar(&c.ProjectDescription, "description", "", "Project description")
		flags.StringVar(&c.ModelDataDir, "data-dir", "", "Directory of hazard and inventory layers")
		flags.StringVar(&c.ModelOutputDir, "model-output-dir", "", "Directory of result GeoPackages")
		flags.StringVar(&c.RunTable, "run-table", "", "CSV file describing several runs")
		flags.StringVar(&c.SimulationName, "simulation-name", "", "Name of the single run")
		flags.StringVar(&c.SimulationDescription, "simulation-description", "", "Description of the single run")
		flags.StringVar(&c.HazardLayer, "hazard-layer", "", "Hazard layer (overrides main.go)")
		flags.StringVar(&c.InventoryLayer, "inventory-layer", "", "Structure inventory layer (overrides main.go)")
		flags.StringVar(&c.ResultsLayer, "results-layer", "", "Results layer (overrides main.go)")
	}

	return cmd
}

func runExtract(ctx context.Context, w io.Writer, opts *ExtractOptions) error {
	ctx = commandContext(ctx)
	settings := settingsFrom(ctx)

	p := opts.Project
	if p.OutputDir == "" {
		p.OutputDir = settings.OutputDir
	}
	if p.TemplateDir == "" {
		p.TemplateDir = settings.TemplateDir
	}
	if err := config.ValidateProject(&p); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}

	drv, err := dialect.New(p.Dialect)
	if err != nil {
		return err
	}

	res := extract.RunProject(ctx, drv, p)
	fmt.Fprintln(w, res.Status)

	if res.Outcome != output.OutcomeSucceeded {
		ExitCode = 1
		return nil
	}

	if opts.RegistryURL != "" {
		publish(ctx, res, registry.PublishOptions{
			URL:     opts.RegistryURL,
			Token:   opts.RegistryToken,
			Timeout: config.DefaultRegistryTimeout,
		})
	}
	return nil
}

// publish sends a project's documents to the registry. Failures are logged
// and never change the exit code.
func publish(ctx context.Context, res output.ProjectResult, opts registry.PublishOptions) {
	responses := registry.NewClient().PublishProject(ctx, res, opts)
	failed := 0
	for _, r := range responses {
		if !r.Success() {
			failed++
		}
	}
	if failed > 0 {
		ctxlog.FromContext(ctx).Warn("registry rejected documents", "project", res.Project, "failed", failed, "total", len(responses))
	}
}

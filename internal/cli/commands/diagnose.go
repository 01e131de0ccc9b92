package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/waterinstitute/hecmeta/pkg/config"
	"github.com/waterinstitute/hecmeta/pkg/detector"
	"github.com/waterinstitute/hecmeta/pkg/dialect/consequences"
	"github.com/waterinstitute/hecmeta/pkg/spatial"
	"github.com/waterinstitute/hecmeta/pkg/template"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <job-file>",
		Short: "Diagnose common job and project issues",
		Long: `Diagnose common job and project issues before extracting.

This command checks your job file for common problems:
- Job file syntax and structure
- Project file existence and detected dialect
- Boundary file readability and CRS
- Go-Consequences directories and run table
- Template and schema loading
- Registry settings

Example:
  hecmeta diagnose job.yaml
  hecmeta diagnose -v job.yaml  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(commandContext(cmd.Context()), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, jobPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check job file existence
	result := checkJobExists(jobPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Parse job file
	job, result := checkJobParseable(ctx, jobPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Per-project checks
	for i, p := range job.Projects {
		label := fmt.Sprintf("projects[%d]", i)
		results = append(results, checkProjectFile(ctx, label, p))
		if r, ok := checkBoundary(ctx, label, p); ok {
			results = append(results, r)
		}
		if p.Dialect == config.DialectConsequences {
			results = append(results, checkConsequences(label, p)...)
		}
	}

	// 4. Templates
	results = append(results, checkTemplates(job)...)

	// 5. Registry
	results = append(results, checkRegistry(job, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkJobExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Job File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Job file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'hecmeta detect <project-file> --write-job job.yaml' to generate a starter job",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access job file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Job file is empty"
		result.Suggests = []string{
			"Use 'hecmeta detect <project-file> --write-job job.yaml' to generate a starter job",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkJobParseable(ctx context.Context, path string) (*config.Job, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Job Syntax",
	}

	job, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to load job: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Job file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Output dir: %s", job.OutputDir),
		fmt.Sprintf("Projects: %d", len(job.Projects)),
	}
	return job, result
}

func checkProjectFile(ctx context.Context, label string, p config.Project) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Project File: %s (%s)", label, p.Dialect),
	}

	info, err := os.Stat(p.ProjectFile)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot read project file: %v", err)
		result.Suggests = []string{"Paths in a job file are relative to the job file's directory"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Project file is a directory"
		return result
	}

	det, err := detector.New().DetectFromFile(ctx, p.ProjectFile)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot read project file: %v", err)
		return result
	}
	result.Details = []string{p.ProjectFile}

	best := det.BestMatch()
	switch {
	case best == nil:
		result.Status = "warning"
		result.Message = "File does not look like any known project format"
		result.Suggests = []string{"Run 'hecmeta detect " + p.ProjectFile + "' for details"}
	case best.Format.Dialect != p.Dialect:
		result.Status = "warning"
		result.Message = fmt.Sprintf("File looks like %s (%.0f%% confidence), job says %s",
			best.Format.Name, best.Confidence*100, p.Dialect.Software())
		result.Suggests = []string{"Check the dialect of this project"}
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("%s (%.0f%% confidence)", best.Format.Name, best.Confidence*100)
	}
	return result
}

// checkBoundary reports whether the boundary layer can be read and has a
// CRS. The second return is false when there is nothing to check.
func checkBoundary(ctx context.Context, label string, p config.Project) (DiagnosticResult, bool) {
	if p.BoundaryFile == "" {
		return DiagnosticResult{}, false
	}
	result := DiagnosticResult{
		Check: fmt.Sprintf("Boundary: %s", label),
	}

	// A Go-Consequences boundary is optional, so problems only warn.
	failStatus := "error"
	if p.Dialect == config.DialectConsequences {
		failStatus = "warning"
	}

	layer, err := spatial.Open(ctx, p.BoundaryFile, p.BoundaryLayer)
	if err != nil {
		result.Status = failStatus
		result.Message = fmt.Sprintf("Cannot read boundary: %v", err)
		result.Suggests = []string{"Supported formats: shapefile (.shp), GeoJSON, GeoPackage (.gpkg)"}
		return result, true
	}

	details := []string{p.BoundaryFile, fmt.Sprintf("Geometries: %d", len(layer.Geometries))}
	switch {
	case layer.CRS != "":
		result.Status = "ok"
		result.Message = fmt.Sprintf("CRS: %s", spatial.DisplayName(layer.CRS))
	case p.FallbackCRS != "":
		result.Status = "ok"
		result.Message = fmt.Sprintf("No CRS in file, using fallback %s", p.FallbackCRS)
	default:
		result.Status = failStatus
		result.Message = "Boundary has no CRS and no fallback_crs is set"
		result.Suggests = []string{
			"Add a .prj file next to the shapefile",
			"Or set fallback_crs (e.g. EPSG:26915) on the project",
		}
	}
	if _, ok := layer.Bound(); !ok {
		result.Status = failStatus
		result.Message = "Boundary has no geometries"
	}
	result.Details = details
	return result, true
}

func checkConsequences(label string, p config.Project) []DiagnosticResult {
	results := []DiagnosticResult{}
	c := p.Consequences

	for _, dir := range []struct{ name, path string }{
		{"model_data_dir", c.ModelDataDir},
		{"model_output_dir", c.ModelOutputDir},
	} {
		if dir.path == "" {
			continue
		}
		result := DiagnosticResult{
			Check: fmt.Sprintf("Directory: %s %s", label, dir.name),
		}
		if info, err := os.Stat(dir.path); err != nil || !info.IsDir() {
			result.Status = "warning"
			result.Message = fmt.Sprintf("Not a directory: %s", dir.path)
		} else {
			result.Status = "ok"
			result.Message = dir.path
		}
		results = append(results, result)
	}

	if c.RunTable != "" {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Run Table: %s", label),
		}
		rows, err := consequences.ReadRunTable(c.RunTable)
		switch {
		case err != nil:
			result.Status = "error"
			result.Message = err.Error()
		case len(rows) == 0:
			result.Status = "error"
			result.Message = "Run table lists no runs"
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("%d run(s)", len(rows))
			for _, r := range rows {
				result.Details = append(result.Details, r.Name)
			}
		}
		results = append(results, result)
	}
	return results
}

// checkTemplates loads every template and schema the job will need.
func checkTemplates(job *config.Job) []DiagnosticResult {
	results := []DiagnosticResult{}

	type key struct {
		dir     string
		dialect config.Dialect
	}
	seen := map[key]bool{}
	for _, p := range job.Projects {
		k := key{p.TemplateDir, p.Dialect}
		if seen[k] {
			continue
		}
		seen[k] = true

		result := DiagnosticResult{
			Check: fmt.Sprintf("Templates: %s", p.Dialect),
		}
		loader := template.NewLoader(p.TemplateDir)
		var issues []string
		for _, kind := range []template.Kind{template.ModelApplication, template.Simulation} {
			if _, err := loader.Template(string(p.Dialect), kind); err != nil {
				issues = append(issues, err.Error())
			}
			if p.KeyOrder == config.KeyOrderSchema {
				if _, err := loader.Order(kind); err != nil {
					issues = append(issues, err.Error())
				}
			}
		}

		if len(issues) > 0 {
			result.Status = "error"
			result.Message = fmt.Sprintf("%d template issue(s)", len(issues))
			result.Details = issues
		} else {
			result.Status = "ok"
			if p.TemplateDir == "" {
				result.Message = "Built-in templates"
			} else {
				result.Message = fmt.Sprintf("Templates from %s", p.TemplateDir)
			}
		}
		results = append(results, result)
	}
	return results
}

func checkRegistry(job *config.Job, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if job.Registry == nil {
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Registry",
				Status:  "ok",
				Message: "No registry configured (optional)",
			})
		}
		return results
	}

	reg := job.Registry
	result := DiagnosticResult{
		Check:   "Registry",
		Status:  "ok",
		Message: reg.URL,
	}
	if reg.Token == "" {
		result.Details = []string{"Token: none"}
	} else if strings.HasPrefix(reg.Token, "$") {
		result.Status = "warning"
		result.Message = "Token appears to be an unresolved env var"
		result.Details = []string{reg.Token}
	} else if opts.Verbose {
		result.Details = []string{"Token: configured", fmt.Sprintf("Timeout: %s", reg.Timeout)}
	}
	results = append(results, result)

	if opts.Verbose {
		r := checkRegistryConnectivity(reg)
		r.Check = "Registry Connectivity"
		results = append(results, r)
	}
	return results
}

func checkRegistryConnectivity(reg *config.RegistryConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// Just do a HEAD request to check if the endpoint is reachable
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, reg.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if reg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+reg.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the registry URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The registry may only accept POST (documents will still be published)",
			"Check authentication if using a token",
		}
	}

	return result
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== hecmeta Job Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before extracting.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nJob is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nJob looks good!")
	}
}

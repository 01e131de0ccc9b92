package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/waterinstitute/hecmeta/pkg/config"
	"github.com/waterinstitute/hecmeta/pkg/detector"
	"github.com/waterinstitute/hecmeta/pkg/output"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output     string
	SampleSize int
	ShowAll    bool
	WriteJob   string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <project-file>",
		Short: "Detect which modeling tool wrote a project file",
		Long: `Analyze a project file to guess its dialect.

Samples lines from the file and tests them against the signature lines of
each supported project format. Reports the best match with a confidence
score and a ready-to-use job file snippet.

Optionally generates a starter job file with --write-job.

Supports:
  - HEC-RAS project files (.prj)
  - HEC-HMS project files (.hms)
  - HEC-FIA project files (.prj)
  - Go-Consequences programs (main.go)

Example:
  hecmeta detect Amite/Amite.prj
  hecmeta detect --all Amite/Amite.prj
  hecmeta detect -w job.yaml Amite/Amite.hms`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", 200, "Number of lines to sample")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show all detected formats, not just the best match")
	cmd.Flags().StringVarP(&opts.WriteJob, "write-job", "w", "", "Write starter job file (will not overwrite)")

	return cmd
}

func runDetect(ctx context.Context, w io.Writer, projectFile string, opts *DetectOptions) error {
	ctx = commandContext(ctx)

	if _, err := os.Stat(projectFile); os.IsNotExist(err) {
		return fmt.Errorf("project file not found: %s", projectFile)
	}

	d := detector.New(detector.WithSampleSize(opts.SampleSize))
	result, err := d.DetectFromFile(ctx, projectFile)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	if opts.WriteJob != "" {
		if err := writeStarterJob(w, result, projectFile, opts.WriteJob); err != nil {
			return err
		}
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(w, result, projectFile, opts)
	default:
		return outputDetectText(w, result, projectFile, opts)
	}
}

func outputDetectText(w io.Writer, result *detector.DetectionResult, projectFile string, opts *DetectOptions) error {
	fmt.Fprintln(w, "=== Project Format Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", projectFile)
	fmt.Fprintf(w, "Lines sampled: %d\n", result.SampledLines)
	fmt.Fprintln(w)

	if !result.HasMatch() {
		fmt.Fprintln(w, "No project format detected.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tip: check that this is the primary project file and not a plan,")
		fmt.Fprintln(w, "basin or alternative file it references.")
		return nil
	}

	best := result.BestMatch()
	fmt.Fprintf(w, "Detected Format: %s\n", best.Format.Name)
	fmt.Fprintf(w, "Dialect: %s\n", best.Format.Dialect)
	fmt.Fprintf(w, "Confidence: %.1f%% (%d/%d lines matched)\n",
		best.Confidence*100, best.MatchCount, result.SampledLines)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Sample match:\n  %s\n", best.SampleLine)
	fmt.Fprintln(w)

	if !best.Extension {
		fmt.Fprintf(w, "WARNING: %s files usually end in %v.\n", best.Format.Name, best.Format.Extensions)
		fmt.Fprintln(w)
	}
	if result.AmbiguityNote != "" {
		fmt.Fprintf(w, "Note: %s\n", result.AmbiguityNote)
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "--- Job snippet (copy to your job file) ---")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "projects:")
	fmt.Fprintf(w, "  - dialect: %s\n", best.Format.Dialect)
	fmt.Fprintf(w, "    project_file: %s\n", projectFile)
	fmt.Fprintln(w)

	if opts.ShowAll && len(result.Matches) > 1 {
		fmt.Fprintln(w, "--- Alternative formats detected ---")
		for i, m := range result.Matches[1:] {
			fmt.Fprintf(w, "%d. %s (%.1f%% confidence)\n", i+2, m.Format.Name, m.Confidence*100)
			fmt.Fprintf(w, "   dialect: %s\n", m.Format.Dialect)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// JSONMatch represents a format match in JSON output.
type JSONMatch struct {
	Name       string   `json:"name"`
	Dialect    string   `json:"dialect"`
	Signatures []string `json:"signatures"`
	Confidence float64  `json:"confidence"`
	MatchCount int      `json:"match_count"`
	SampleLine string   `json:"sample_line"`
	Extension  bool     `json:"extension_matches"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File          string      `json:"file"`
	Matches       []JSONMatch `json:"matches"`
	SampledLines  int         `json:"sampled_lines"`
	AmbiguityNote string      `json:"ambiguity_note,omitempty"`
}

func outputDetectJSON(w io.Writer, result *detector.DetectionResult, projectFile string, opts *DetectOptions) error {
	out := JSONOutput{
		File:          projectFile,
		SampledLines:  result.SampledLines,
		AmbiguityNote: result.AmbiguityNote,
		Matches:       make([]JSONMatch, 0),
	}

	matches := result.Matches
	if !opts.ShowAll && len(matches) > 1 {
		matches = matches[:1] // Only show best match
	}

	for _, m := range matches {
		out.Matches = append(out.Matches, JSONMatch{
			Name:       m.Format.Name,
			Dialect:    string(m.Format.Dialect),
			Signatures: m.Format.PatternStr,
			Confidence: m.Confidence,
			MatchCount: m.MatchCount,
			SampleLine: m.SampleLine,
			Extension:  m.Extension,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// writeStarterJob generates a starter job file for the detected dialect.
func writeStarterJob(w io.Writer, result *detector.DetectionResult, projectFile, jobPath string) error {
	if _, err := os.Stat(jobPath); err == nil {
		return fmt.Errorf("job file already exists: %s (will not overwrite)", jobPath)
	}

	if !result.HasMatch() {
		return fmt.Errorf("cannot generate job: no project format detected")
	}

	data, err := generateStarterJob(projectFile, result.BestMatch())
	if err != nil {
		return err
	}

	if err := output.WriteFileAtomic(jobPath, data); err != nil {
		return fmt.Errorf("failed to write job file: %w", err)
	}

	fmt.Fprintf(w, "Wrote starter job to: %s\n\n", jobPath)
	return nil
}

// generateStarterJob renders a job with one project. Fields the detector
// cannot know are left as placeholders.
func generateStarterJob(projectFile string, match *detector.FormatMatch) ([]byte, error) {
	abs := projectFile
	if a, err := filepath.Abs(projectFile); err == nil {
		abs = a
	}

	p := config.Project{
		Dialect:     match.Format.Dialect,
		ProjectFile: abs,
	}
	if p.Dialect == config.DialectConsequences {
		p.Consequences = config.ConsequencesConfig{
			ProjectName:        filepath.Base(filepath.Dir(abs)),
			ProjectDescription: "CHANGE ME",
			SimulationName:     "CHANGE ME",
		}
	} else {
		p.BoundaryFile = filepath.Join(filepath.Dir(abs), "CHANGE_ME.shp")
	}

	job := config.Job{
		OutputDir: config.DefaultOutputDir,
		Projects:  []config.Project{p},
	}
	body, err := yaml.Marshal(&job)
	if err != nil {
		return nil, fmt.Errorf("rendering job: %w", err)
	}

	header := fmt.Sprintf(`# hecmeta job
# Generated by: hecmeta detect
# Detected format: %s (%.0f%% confidence)
# Replace every CHANGE ME value, then run: hecmeta run <this file>

`, match.Format.Name, match.Confidence*100)
	return append([]byte(header), body...), nil
}

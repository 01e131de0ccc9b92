package output

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// JSONReport is the machine-readable rendering of a Report. Documents are
// grouped per project into simulations and the model application, and a
// failure status is split into its headline and the causes below it.
type JSONReport struct {
	Summary    JSONSummary   `json:"summary"`
	Projects   []JSONProject `json:"projects"`
	JobFile    string        `json:"job_file,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	DurationMS int64         `json:"duration_ms"`
}

// JSONSummary holds the report totals.
type JSONSummary struct {
	Projects     int   `json:"projects"`
	Failed       int   `json:"failed"`
	Documents    int   `json:"documents"`
	Simulations  int   `json:"simulations"`
	BytesWritten int64 `json:"bytes_written"`
}

// JSONProject is one project's extraction.
type JSONProject struct {
	Project          string         `json:"project,omitempty"`
	Dialect          string         `json:"dialect"`
	ProjectFile      string         `json:"project_file"`
	OutputDir        string         `json:"output_dir,omitempty"`
	Outcome          Outcome        `json:"outcome"`
	Status           string         `json:"status"`
	Causes           []string       `json:"causes,omitempty"`
	ModelApplication *JSONDocument  `json:"model_application,omitempty"`
	Simulations      []JSONDocument `json:"simulations"`
	Warnings         []string       `json:"warnings"`
}

// JSONDocument is one written file.
type JSONDocument struct {
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	Bytes int64  `json:"bytes"`
}

// JSONFormatter formats reports as JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format renders the report as JSON. Quiet mode writes only the summary.
func (f *JSONFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	out := NewJSONReport(report)
	if f.opts.Quiet {
		return encoder.Encode(out.Summary)
	}
	return encoder.Encode(out)
}

// NewJSONReport converts report to its JSON shape.
func NewJSONReport(report *Report) JSONReport {
	out := JSONReport{
		Summary: JSONSummary{
			Projects:     report.Summary.ProjectsProcessed,
			Failed:       report.Summary.ProjectsFailed,
			Documents:    report.Summary.Documents,
			Simulations:  report.Summary.Simulations,
			BytesWritten: report.Summary.BytesWritten,
		},
		Projects:   make([]JSONProject, 0, len(report.Projects)),
		JobFile:    report.Metadata.JobFile,
		StartedAt:  report.Metadata.StartedAt,
		DurationMS: report.Metadata.Duration.Milliseconds(),
	}
	for _, p := range report.Projects {
		out.Projects = append(out.Projects, jsonProject(p))
	}
	return out
}

func jsonProject(p ProjectResult) JSONProject {
	headline, causes := splitStatus(p.Status)
	jp := JSONProject{
		Project:     p.Project,
		Dialect:     p.Dialect,
		ProjectFile: p.ProjectFile,
		OutputDir:   p.OutputDir,
		Outcome:     p.Outcome,
		Status:      headline,
		Causes:      causes,
		Simulations: []JSONDocument{},
		Warnings:    p.Warnings,
	}
	if jp.Warnings == nil {
		jp.Warnings = []string{}
	}
	for _, d := range p.Documents {
		doc := JSONDocument{Name: d.Name, Path: d.Path, Bytes: d.Bytes}
		switch d.Kind {
		case KindModelApplication:
			jp.ModelApplication = &doc
		default:
			jp.Simulations = append(jp.Simulations, doc)
		}
	}
	return jp
}

// splitStatus separates a status headline from its "caused by:" lines.
func splitStatus(status string) (string, []string) {
	lines := strings.Split(status, "\n")
	var causes []string
	for _, l := range lines[1:] {
		l = strings.TrimPrefix(strings.TrimSpace(l), "caused by: ")
		if l != "" {
			causes = append(causes, l)
		}
	}
	return lines[0], causes
}

// Package output writes extraction documents to disk and reports what was
// written.
package output

import "time"

// Outcome of one project extraction.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// DocumentKind distinguishes the two document families.
type DocumentKind string

const (
	KindModelApplication DocumentKind = "model_application"
	KindSimulation       DocumentKind = "simulation"
)

// Report is the complete output of a batch run.
type Report struct {
	Summary  Summary
	Projects []ProjectResult
	Metadata Metadata
}

// Summary provides aggregate statistics.
type Summary struct {
	ProjectsProcessed int
	ProjectsFailed    int
	Documents         int
	Simulations       int
	BytesWritten      int64
}

// ProjectResult records the extraction of one project.
type ProjectResult struct {
	Project     string
	Dialect     string
	ProjectFile string
	OutputDir   string
	Outcome     Outcome

	// Status is the human-readable status string returned by the driver.
	Status string

	Documents []Document
	Warnings  []string
}

// Document is one written JSON file.
type Document struct {
	Kind  DocumentKind
	Name  string
	Path  string
	Bytes int64
}

// Metadata provides context about the run.
type Metadata struct {
	JobFile   string
	StartedAt time.Time
	Duration  time.Duration
}

// NewReport aggregates project results.
func NewReport(results []ProjectResult, jobFile string, started time.Time) *Report {
	r := &Report{
		Projects: results,
		Metadata: Metadata{
			JobFile:   jobFile,
			StartedAt: started,
			Duration:  time.Since(started),
		},
	}
	for _, p := range results {
		r.Summary.ProjectsProcessed++
		if p.Outcome == OutcomeFailed {
			r.Summary.ProjectsFailed++
		}
		for _, d := range p.Documents {
			r.Summary.Documents++
			r.Summary.BytesWritten += d.Bytes
			if d.Kind == KindSimulation {
				r.Summary.Simulations++
			}
		}
	}
	return r
}

// HasFailures returns true if any project failed.
func (r *Report) HasFailures() bool {
	return r.Summary.ProjectsFailed > 0
}

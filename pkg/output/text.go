package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		f.formatSummary(report, w)
		return nil
	}

	fmt.Fprintln(w, "=== hecmeta extraction report ===")
	fmt.Fprintln(w)

	for i := range report.Projects {
		f.formatProject(&report.Projects[i], w)
	}

	fmt.Fprintln(w, "---")
	f.formatSummary(report, w)

	if f.opts.Verbose {
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}
	return nil
}

func (f *TextFormatter) formatSummary(report *Report, w io.Writer) {
	s := report.Summary
	fmt.Fprintf(w, "Summary: %d projects, %d failed, %d documents (%d simulations, %s)\n",
		s.ProjectsProcessed, s.ProjectsFailed, s.Documents, s.Simulations,
		humanize.Bytes(uint64(s.BytesWritten)))
}

func (f *TextFormatter) formatProject(p *ProjectResult, w io.Writer) {
	fmt.Fprintf(w, "[%s] %s: %s\n", strings.ToUpper(p.Dialect), p.Project, p.Outcome)

	if p.Outcome == OutcomeFailed {
		for _, line := range strings.Split(strings.TrimRight(p.Status, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "  %d document(s) in %s\n", len(p.Documents), p.OutputDir)
	if f.opts.Verbose {
		for _, d := range p.Documents {
			fmt.Fprintf(w, "  - %s (%s)\n", d.Name, humanize.Bytes(uint64(d.Bytes)))
		}
	}
	if len(p.Warnings) > 0 {
		fmt.Fprintf(w, "  %d warning(s)\n", len(p.Warnings))
		if f.opts.Verbose {
			for _, warn := range p.Warnings {
				fmt.Fprintf(w, "  ! %s\n", warn)
			}
		}
	}
	fmt.Fprintln(w)
}

package output

import (
	"context"
	"io"
)

// Formatter renders an extraction report in a specific format.
type Formatter interface {
	// Format renders the report to the given writer.
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (text, json).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Verbose lists every written document and warning.
	Verbose bool

	// Quiet prints only the summary line.
	Quiet bool
}

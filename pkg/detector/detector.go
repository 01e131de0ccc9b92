// Package detector guesses which modeling tool wrote a project file.
package detector

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DetectionResult holds the result of analyzing a project file.
type DetectionResult struct {
	Matches       []FormatMatch // Formats that matched, sorted by confidence descending
	SampledLines  int           // Number of lines sampled
	AmbiguityNote string        // Warning when the best two formats tie
}

// FormatMatch represents a format that matched with its confidence score.
type FormatMatch struct {
	Format     *ProjectFormat
	Confidence float64 // 0.0 to 1.0 (share of signatures seen)
	MatchCount int     // Number of lines that matched any signature
	SampleLine string  // First line that matched
	Extension  bool    // True if the file extension is one the format uses
}

// Detector analyzes project files to identify their dialect.
type Detector struct {
	formats    []*ProjectFormat
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 200).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a new Detector with default formats.
func New(opts ...Option) *Detector {
	d := &Detector{
		formats:    DefaultFormats(),
		sampleSize: 200,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile analyzes a project file and returns the formats it
// resembles.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	lines, err := d.sampleFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return d.Detect(filepath.Ext(path), lines), nil
}

// DetectFromLines analyzes lines without an extension hint.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	return d.Detect("", lines)
}

// Detect scores every format against lines. A format's confidence is the
// share of its signatures found; it is halved when ext is given and is not
// one of the format's extensions.
func (d *Detector) Detect(ext string, lines []string) *DetectionResult {
	result := &DetectionResult{
		SampledLines: len(lines),
	}
	if len(lines) == 0 {
		return result
	}

	for _, format := range d.formats {
		seen := make([]bool, len(format.Patterns))
		m := FormatMatch{Format: format}
		for _, line := range lines {
			matched := false
			for i, p := range format.Patterns {
				if p.MatchString(line) {
					seen[i] = true
					matched = true
				}
			}
			if !matched {
				continue
			}
			m.MatchCount++
			if m.SampleLine == "" {
				m.SampleLine = strings.TrimSpace(line)
			}
		}
		if m.MatchCount == 0 {
			continue
		}

		hits := 0
		for _, s := range seen {
			if s {
				hits++
			}
		}
		m.Confidence = float64(hits) / float64(len(seen))
		m.Extension = hasExtension(format, ext)
		if ext != "" && !m.Extension {
			m.Confidence /= 2
		}
		result.Matches = append(result.Matches, m)
	}

	// Sort by confidence descending, then by matched lines
	sort.SliceStable(result.Matches, func(i, j int) bool {
		if result.Matches[i].Confidence != result.Matches[j].Confidence {
			return result.Matches[i].Confidence > result.Matches[j].Confidence
		}
		return result.Matches[i].MatchCount > result.Matches[j].MatchCount
	})

	if len(result.Matches) > 1 && result.Matches[0].Confidence == result.Matches[1].Confidence {
		result.AmbiguityNote = "The file resembles both " + result.Matches[0].Format.Name +
			" and " + result.Matches[1].Format.Name + ". Pass the dialect explicitly."
	}

	return result
}

func hasExtension(f *ProjectFormat, ext string) bool {
	for _, e := range f.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// sampleFile reads up to sampleSize non-blank lines from a file.
func (d *Detector) sampleFile(_ context.Context, path string) ([]string, error) {
	// #nosec G304 - path is provided by user via CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() && len(lines) < d.sampleSize {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// BestMatch returns the highest confidence match, or nil if none found.
func (r *DetectionResult) BestMatch() *FormatMatch {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// HasMatch returns true if at least one format matched.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0
}

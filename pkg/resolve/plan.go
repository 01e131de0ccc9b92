// Package resolve follows references from one project file to the files it
// names and discovers the files that define simulations.
package resolve

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/waterinstitute/hecmeta/pkg/parser"
)

// MaxDepth bounds how many files a chain may pass through. The deepest
// known chain is simulation, alternative, grid configuration.
const MaxDepth = 3

var (
	// ErrMissingFile reports a referenced file that does not exist or cannot
	// be read.
	ErrMissingFile = errors.New("missing file")

	// ErrMissingField reports a reference field absent from its record.
	ErrMissingField = errors.New("missing field")
)

// PathFunc builds the path of a referenced file from the directory of the
// referencing file and the field value.
type PathFunc func(dir, value string) string

// ParseFunc turns a referenced file's lines into a record.
type ParseFunc func(lines []string) (*parser.Record, error)

// Key copies a field of a referenced file into the root record under a new
// name.
type Key struct {
	From string
	To   string
}

// K is shorthand for Key{From: from, To: to}.
func K(from, to string) Key {
	return Key{From: from, To: to}
}

// Step follows one reference field to one file kind.
type Step struct {
	// Name identifies the resolved file in a Result.
	Name string

	// Field is the key, in the referencing record, naming the file.
	Field string

	// Path builds the file path. Nil uses Sibling.
	Path PathFunc

	// Parse reads the file's record. Nil splits lines on "=".
	Parse ParseFunc

	// Keys lists the fields merged into the root record.
	Keys []Key

	// Then lists steps that follow references inside this file.
	Then []Step
}

// Plan is an ordered list of steps applied to a root record.
type Plan []Step

// Depth returns the length of the longest chain in the plan.
func (p Plan) Depth() int {
	depth := 0
	for _, s := range p {
		if d := 1 + Plan(s.Then).Depth(); d > depth {
			depth = d
		}
	}
	return depth
}

// Validate rejects plans that are deeper than MaxDepth or have unnamed,
// duplicate, or fieldless steps.
func (p Plan) Validate() error {
	if d := p.Depth(); d > MaxDepth {
		return fmt.Errorf("plan depth %d exceeds %d", d, MaxDepth)
	}
	seen := make(map[string]bool)
	return p.validate(seen)
}

func (p Plan) validate(seen map[string]bool) error {
	for i, s := range p {
		if s.Name == "" {
			return fmt.Errorf("step %d: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("step %q: duplicate name", s.Name)
		}
		seen[s.Name] = true
		if s.Field == "" {
			return fmt.Errorf("step %q: field is required", s.Name)
		}
		if err := Plan(s.Then).validate(seen); err != nil {
			return fmt.Errorf("step %q: %w", s.Name, err)
		}
	}
	return nil
}

// windowsAbs matches drive-letter and UNC paths, with either separator.
var windowsAbs = regexp.MustCompile(`^(?:[A-Za-z]:[\\/]|\\\\|//)`)

// IsWindowsAbs reports whether value is a drive-letter or UNC path, which
// HEC tools write on Windows and which are absolute on any host.
func IsWindowsAbs(value string) bool {
	return windowsAbs.MatchString(strings.TrimSpace(value))
}

// Sibling resolves value against dir unless it is already absolute.
// Backslash separators written by Windows tools are accepted. Windows
// absolute paths are kept as written, with forward slashes.
func Sibling(dir, value string) string {
	value = strings.TrimSpace(value)
	if IsWindowsAbs(value) {
		return strings.ReplaceAll(value, `\`, "/")
	}
	value = filepath.FromSlash(strings.ReplaceAll(value, `\`, "/"))
	if filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(dir, value)
}

// SplitEquals is the default ParseFunc.
func SplitEquals(lines []string) (*parser.Record, error) {
	rec, _ := parser.ExtractFields(lines, "=")
	return rec, nil
}

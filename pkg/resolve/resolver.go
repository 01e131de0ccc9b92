package resolve

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/waterinstitute/hecmeta/internal/ctxlog"
	"github.com/waterinstitute/hecmeta/pkg/parser"
)

// File is a referenced file that was read successfully.
type File struct {
	Step   string
	Path   string
	Lines  []string
	Record *parser.Record
}

// Result collects the files resolved by a plan and the references that
// could not be followed.
type Result struct {
	files    map[string]*File
	Problems []error
}

// File returns the file resolved by the named step.
func (r *Result) File(step string) (*File, bool) {
	f, ok := r.files[step]
	return f, ok
}

// Resolver reads referenced files.
type Resolver struct {
	readLines func(path string) ([]string, error)
}

// New returns a Resolver reading files from disk.
func New() *Resolver {
	return &Resolver{readLines: parser.ReadLines}
}

// Resolve applies plan to rec, whose own file lives in dir. Fields from
// referenced files are merged into rec without replacing keys rec already
// holds. A missing field or file skips that step and its children; the
// error is only returned for an invalid plan.
func (r *Resolver) Resolve(ctx context.Context, dir string, rec *parser.Record, plan Plan) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resolution plan: %w", err)
	}

	res := &Result{files: make(map[string]*File)}
	r.apply(ctx, dir, rec, rec, plan, res)
	return res, nil
}

func (r *Resolver) apply(ctx context.Context, dir string, from, into *parser.Record, plan Plan, res *Result) {
	log := ctxlog.FromContext(ctx)

	for _, step := range plan {
		value, ok := from.Lookup(step.Field)
		if !ok || trimmed(value) == "" {
			log.Debug("reference field not set", "step", step.Name, "field", step.Field)
			res.Problems = append(res.Problems, fmt.Errorf("%s: %w %q", step.Name, ErrMissingField, step.Field))
			continue
		}

		pathFn := step.Path
		if pathFn == nil {
			pathFn = Sibling
		}
		path := pathFn(dir, trimmed(value))

		file, err := r.read(path, step)
		if err != nil {
			log.Warn("referenced file unavailable", "step", step.Name, "path", path, "error", err)
			res.Problems = append(res.Problems, fmt.Errorf("%s: %w: %s", step.Name, ErrMissingFile, path))
			continue
		}
		res.files[step.Name] = file

		for _, k := range step.Keys {
			if v, ok := file.Record.Lookup(k.From); ok {
				into.SetIfAbsent(k.To, v)
			}
		}

		if len(step.Then) > 0 {
			r.apply(ctx, filepath.Dir(path), file.Record, into, step.Then, res)
		}
	}
}

func (r *Resolver) read(path string, step Step) (*File, error) {
	lines, err := r.readLines(path)
	if err != nil {
		return nil, err
	}

	parse := step.Parse
	if parse == nil {
		parse = SplitEquals
	}
	rec, err := parse(lines)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &File{Step: step.Name, Path: path, Lines: lines, Record: rec}, nil
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

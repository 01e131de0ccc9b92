// Package extract runs a format driver through the extraction state machine:
// read the project, resolve its boundary, discover and resolve simulations,
// then merge and write one document per simulation and one for the project.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/waterinstitute/hecmeta/internal/ctxlog"
	"github.com/waterinstitute/hecmeta/pkg/config"
	"github.com/waterinstitute/hecmeta/pkg/parser"
	"github.com/waterinstitute/hecmeta/pkg/resolve"
	"github.com/waterinstitute/hecmeta/pkg/spatial"
	"github.com/waterinstitute/hecmeta/pkg/template"
)

// ErrNoSimulations reports a project in which no simulation could be
// discovered.
var ErrNoSimulations = errors.New("no simulations found")

// Project is the root record of one extraction.
type Project struct {
	Config config.Project
	// Name is the project name used in titles and output file names.
	Name string
	// Dir is the absolute directory of the project file.
	Dir string
	// Root is the parent of Dir. Paths written to documents are relative
	// to it.
	Root string
	// Record holds the project file fields and everything merged into them.
	Record *parser.Record
	// Boundary is nil until resolved, and stays nil when an optional
	// boundary could not be resolved.
	Boundary *spatial.Result
	// Warnings collects degraded lookups for the report.
	Warnings []string
	// Data holds driver state.
	Data any
}

// NewProject prepares a Project for cfg, naming it after the project file
// unless name is given.
func NewProject(cfg config.Project, name string) (*Project, error) {
	abs, err := filepath.Abs(cfg.ProjectFile)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", cfg.ProjectFile, err)
	}
	if name == "" {
		name = ProjectName(abs)
	}
	dir := filepath.Dir(abs)
	return &Project{
		Config: cfg,
		Name:   name,
		Dir:    dir,
		Root:   filepath.Dir(dir),
		Record: parser.NewRecord(),
	}, nil
}

// ProjectName strips the directory and the last extension from path.
// Project names may themselves contain dots.
func ProjectName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Rel returns path relative to the project's parent directory with forward
// slashes. Paths on another volume, and Windows absolute paths, are returned
// whole.
func (p *Project) Rel(path string) string {
	if path == "" {
		return ""
	}
	if resolve.IsWindowsAbs(path) {
		return strings.ReplaceAll(path, `\`, "/")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(p.Root, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// Ref resolves a file reference found inside a project file, relative to
// the project directory, and returns it in document form.
func (p *Project) Ref(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return p.Rel(resolve.Sibling(p.Dir, value))
}

// File returns a file list entry for path, stored relative to Root.
func (p *Project) File(title, description, path string) template.FileRef {
	return template.File(title, description, p.Rel(path))
}

// Warn logs a degraded lookup and keeps it for the report.
func (p *Project) Warn(ctx context.Context, msg string, args ...any) {
	ctxlog.FromContext(ctx).Warn(msg, args...)
	p.Warnings = append(p.Warnings, formatWarning(msg, args))
}

// Keywords returns the configured keywords followed by the project id.
func (p *Project) Keywords() []string {
	var out []string
	for _, k := range p.Config.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	if id := strings.TrimSpace(p.Config.ProjectID); id != "" {
		out = append(out, id)
	}
	return out
}

// SpatialExtent returns the boundary WKT, or nil when unresolved.
func (p *Project) SpatialExtent() any {
	if p.Boundary == nil {
		return nil
	}
	return p.Boundary.WKT
}

// CoordinateSystem returns the boundary CRS name, or nil when unresolved.
func (p *Project) CoordinateSystem() any {
	if p.Boundary == nil {
		return nil
	}
	return p.Boundary.CRS
}

// Simulation is one run, plan or alternative of a project.
type Simulation struct {
	// Name identifies the simulation in its output file name.
	Name string
	// Path is the simulation-defining file, if there is one.
	Path string
	// Record holds the simulation's own fields.
	Record *parser.Record
	// Data holds driver state.
	Data any
}

// NewSimulation returns a Simulation with an empty record.
func NewSimulation(name, path string) *Simulation {
	return &Simulation{Name: name, Path: path, Record: parser.NewRecord()}
}

// FileDate returns the modification date of path as YYYY-MM-DD.
func FileDate(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	return parser.FormatDate(info.ModTime()), true
}

func formatWarning(msg string, args []any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	return b.String()
}

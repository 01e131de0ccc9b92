// Package ras reads HEC-RAS projects: the .prj project file, its numbered
// plan files with their HDF5 results, and the geometry and flow files each
// plan references.
package ras

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/waterinstitute/hecmeta/pkg/config"
	"github.com/waterinstitute/hecmeta/pkg/extract"
	"github.com/waterinstitute/hecmeta/pkg/hdf"
	"github.com/waterinstitute/hecmeta/pkg/parser"
	"github.com/waterinstitute/hecmeta/pkg/resolve"
	"github.com/waterinstitute/hecmeta/pkg/spatial"
)

const (
	beginDescription = "BEGIN DESCRIPTION:"
	endDescription   = "END DESCRIPTION:"

	// projectionAttr is the root attribute of a plan HDF holding the
	// model's CRS as WKT.
	projectionAttr = "Projection"
)

// layerAttrs are the Geometry group attributes of a plan HDF naming the
// layers the plan was computed with.
var layerAttrs = []string{
	"Terrain Filename",
	"Infiltration Filename",
	"Land Cover Filename",
	"Percent Impervious Filename",
}

// Driver extracts HEC-RAS projects.
type Driver struct {
	open     hdf.Opener
	resolver *resolve.Resolver
}

// Option configures a Driver.
type Option func(*Driver)

// WithOpener replaces the HDF5 opener, for reading plan results from
// something other than disk.
func WithOpener(o hdf.Opener) Option {
	return func(d *Driver) {
		d.open = o
	}
}

// New returns a RAS driver.
func New(opts ...Option) *Driver {
	d := &Driver{open: hdf.Open, resolver: resolve.New()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dialect implements extract.Driver.
func (d *Driver) Dialect() config.Dialect { return config.DialectRAS }

// project is the RAS state kept on extract.Project.Data.
type project struct {
	description string
	plans       []resolve.Candidate
	discovered  bool
}

// plan is the RAS state kept on extract.Simulation.Data.
type plan struct {
	code        string
	hdfPath     string
	description string
	dss         []dssInput
	layers      map[string]string
}

type dssInput struct {
	title    string
	location string
}

// ReadProject implements extract.Driver.
func (d *Driver) ReadProject(_ context.Context, cfg config.Project) (*extract.Project, error) {
	lines, err := parser.ReadLines(cfg.ProjectFile)
	if err != nil {
		return nil, err
	}
	p, err := extract.NewProject(cfg, "")
	if err != nil {
		return nil, err
	}
	rec, skipped := parser.ExtractFields(lines, "=")
	p.Record = rec
	p.Data = &project{description: description(lines, skipped)}
	return p, nil
}

// ResolveBoundary implements extract.Driver. A boundary without a CRS
// takes the configured fallback, then the projection stored in the first
// plan's results.
func (d *Driver) ResolveBoundary(ctx context.Context, p *extract.Project, sidecarDir string) error {
	if p.Config.BoundaryFile == "" {
		return errors.New("boundary file is required")
	}
	layer, err := spatial.Open(ctx, p.Config.BoundaryFile, p.Config.BoundaryLayer)
	if err != nil {
		return err
	}

	fallback := p.Config.FallbackCRS
	if layer.CRS == "" && fallback == "" {
		plans, err := d.discover(ctx, p)
		if err != nil {
			return err
		}
		if len(plans) > 0 {
			fallback = d.projection(ctx, p, plans[0].Companion)
		}
	}

	res, err := spatial.FromLayer(ctx, layer, spatial.Options{
		FallbackCRS: fallback,
		Mode:        spatial.Geometry,
		SidecarDir:  sidecarDir,
		SidecarName: p.Name,
	})
	if err != nil {
		return err
	}
	p.Boundary = &res
	return nil
}

func (d *Driver) projection(ctx context.Context, p *extract.Project, path string) string {
	c, err := d.open(path)
	if err != nil {
		p.Warn(ctx, "plan results unreadable", "path", path, "error", err)
		return ""
	}
	defer c.Close()
	wkt, err := c.StringAttr("/", projectionAttr)
	if err != nil {
		p.Warn(ctx, "plan results carry no projection", "path", path)
		return ""
	}
	return wkt
}

// DiscoverSimulations implements extract.Driver. Plans are the project's
// .p## files that have a .p##.hdf results file.
func (d *Driver) DiscoverSimulations(ctx context.Context, p *extract.Project) ([]*extract.Simulation, error) {
	plans, err := d.discover(ctx, p)
	if err != nil {
		return nil, err
	}
	sims := make([]*extract.Simulation, 0, len(plans))
	for _, c := range plans {
		code := strings.TrimPrefix(filepath.Ext(c.Path), ".")
		s := extract.NewSimulation(code, c.Path)
		s.Data = &plan{code: strings.TrimPrefix(code, "p"), hdfPath: c.Companion}
		sims = append(sims, s)
	}
	return sims, nil
}

func (d *Driver) discover(ctx context.Context, p *extract.Project) ([]resolve.Candidate, error) {
	st := p.Data.(*project)
	if st.discovered {
		return st.plans, nil
	}
	found, excluded, err := resolve.Discover(ctx, resolve.Discovery{
		Pattern: filepath.Join(p.Dir, resolve.QuoteMeta(p.Name)+".p[0-9][0-9]"),
		Accept: func(path string) bool {
			return extract.ProjectName(path) == p.Name
		},
		Companion: func(path string) string { return path + ".hdf" },
	})
	if err != nil {
		return nil, err
	}
	for _, path := range excluded {
		p.Warnings = append(p.Warnings, fmt.Sprintf("plan excluded: %s has no .hdf results", filepath.Base(path)))
	}
	st.plans, st.discovered = found, true
	return found, nil
}

// ResolveSimulation implements extract.Driver.
func (d *Driver) ResolveSimulation(ctx context.Context, p *extract.Project, s *extract.Simulation) error {
	pl := s.Data.(*plan)

	lines, err := parser.ReadLines(s.Path)
	if err != nil {
		return err
	}
	rec, skipped := parser.ExtractFields(lines, "=")
	s.Record = rec
	pl.description = description(lines, skipped)

	res, err := d.resolver.Resolve(ctx, p.Dir, rec, planReferences(p.Name))
	if err != nil {
		return err
	}
	for _, problem := range res.Problems {
		p.Warn(ctx, "plan reference unresolved", "simulation", s.Name, "error", problem)
	}
	if f, ok := res.File("flow"); ok {
		pl.dss = dssInputs(f.Lines)
	}

	pl.layers = d.layers(ctx, p, s.Name, pl.hdfPath)
	return nil
}

// planReferences follows a plan's geometry and flow file codes to
// <project>.<code> beside the project file.
func planReferences(name string) resolve.Plan {
	sibling := func(dir, code string) string {
		return filepath.Join(dir, name+"."+code)
	}
	return resolve.Plan{
		{Name: "geometry", Field: "Geom File", Path: sibling, Keys: []resolve.Key{resolve.K("Geom Title", "Geom Title")}},
		{Name: "flow", Field: "Flow File", Path: sibling, Keys: []resolve.Key{resolve.K("Flow Title", "Flow Title")}},
	}
}

func (d *Driver) layers(ctx context.Context, p *extract.Project, sim, path string) map[string]string {
	out := make(map[string]string, len(layerAttrs))
	c, err := d.open(path)
	if err != nil {
		p.Warn(ctx, "plan results unreadable", "simulation", sim, "path", path, "error", err)
		return out
	}
	defer c.Close()
	for _, attr := range layerAttrs {
		v, err := c.StringAttr("Geometry", attr)
		if err != nil {
			if !errors.Is(err, hdf.ErrNoAttribute) {
				p.Warn(ctx, "plan layer unreadable", "simulation", sim, "field", attr, "error", err)
			}
			continue
		}
		if v != "" {
			out[attr] = v
		}
	}
	return out
}

// description joins the free text between the description markers, or
// returns "" when the file has none.
func description(lines []string, skipped []int) string {
	text, ok := parser.Between(lines, skipped, beginDescription, endDescription)
	if !ok {
		return ""
	}
	return strings.TrimSpace(strings.Join(text, " "))
}

// dssInputs lists the distinct DSS files a flow file reads. Each "DSS File"
// line is split on "="; a line with three parts is titled by its first two.
func dssInputs(lines []string) []dssInput {
	var out []dssInput
	seen := make(map[string]bool)
	for _, line := range lines {
		if !strings.Contains(line, "DSS File") {
			continue
		}
		line = strings.TrimSpace(line)
		if seen[line] {
			continue
		}
		seen[line] = true

		parts := strings.Split(line, "=")
		title := strings.TrimSpace(parts[0])
		if len(parts) == 3 {
			title += " " + strings.TrimSpace(parts[1])
		}
		location := strings.TrimSpace(parts[len(parts)-1])
		if len(parts) == 1 || location == "" {
			continue
		}
		out = append(out, dssInput{title: title, location: location})
	}
	return out
}

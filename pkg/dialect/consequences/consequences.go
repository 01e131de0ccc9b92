// Package consequences reads Go-Consequences projects: a main.go wiring a
// hazard provider, a structure inventory and a results writer, plus the
// data and output directories it reads and writes. A run table CSV lists
// several runs of the same program.
package consequences

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/waterinstitute/hecmeta/pkg/config"
	"github.com/waterinstitute/hecmeta/pkg/extract"
	"github.com/waterinstitute/hecmeta/pkg/output"
	"github.com/waterinstitute/hecmeta/pkg/parser"
	"github.com/waterinstitute/hecmeta/pkg/resolve"
	"github.com/waterinstitute/hecmeta/pkg/spatial"
)

var (
	rasterExts = []string{".tif", ".tiff", ".geotif", ".geotiff"}
	vectorExts = []string{".shp", ".geojson", ".json", ".gpkg"}
	outputExts = []string{".gpkg"}
)

// runTableColumns must all appear in a run table header.
var runTableColumns = []string{
	"Simulation Name", "Description", "Structure Inventory File", "WSE File", "Model Result Output File",
}

// Row is one line of a run table.
type Row struct {
	Name        string `csv:"Simulation Name"`
	Description string `csv:"Description"`
	Inventory   string `csv:"Structure Inventory File"`
	Hazard      string `csv:"WSE File"`
	Results     string `csv:"Model Result Output File"`
}

// Driver extracts Go-Consequences projects.
type Driver struct{}

// New returns a Go-Consequences driver.
func New() *Driver {
	return &Driver{}
}

// Dialect implements extract.Driver.
func (d *Driver) Dialect() config.Dialect { return config.DialectConsequences }

type project struct {
	main    mainGo
	runs    []Row
	rasters []string
	vectors []string
	outputs []string
}

type run struct {
	hazard    string
	inventory string
	results   string
}

// ReadProject implements extract.Driver.
func (d *Driver) ReadProject(ctx context.Context, cfg config.Project) (*extract.Project, error) {
	c := cfg.Consequences
	src, err := os.ReadFile(cfg.ProjectFile) // #nosec G304 -- project paths come from the operator
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", cfg.ProjectFile, err)
	}
	p, err := extract.NewProject(cfg, strings.TrimSpace(c.ProjectName))
	if err != nil {
		return nil, err
	}

	st := &project{}
	if st.main, err = readMainGo(ctx, src); err != nil {
		return nil, err
	}
	p.Record.Set("Description", c.ProjectDescription)
	p.Record.Set("Hazard Layer", st.main.hazard)
	p.Record.Set("Inventory Layer", st.main.inventory)
	p.Record.Set("Results Layer", st.main.results)
	if st.main.projection != "" {
		p.Record.Set("Results Projection", st.main.projection)
	}

	if c.RunTable != "" {
		if st.runs, err = ReadRunTable(c.RunTable); err != nil {
			return nil, err
		}
	} else {
		st.runs = []Row{{
			Name:        c.SimulationName,
			Description: c.SimulationDescription,
			Hazard:      c.HazardLayer,
			Inventory:   c.InventoryLayer,
			Results:     c.ResultsLayer,
		}}
	}

	st.rasters = d.scan(ctx, p, c.ModelDataDir, rasterExts)
	st.vectors = d.scan(ctx, p, c.ModelDataDir, vectorExts)
	st.outputs = d.scan(ctx, p, c.ModelOutputDir, outputExts)
	p.Data = st
	return p, nil
}

func (d *Driver) scan(ctx context.Context, p *extract.Project, dir string, exts []string) []string {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); err != nil {
		p.Warn(ctx, "directory unavailable", "path", dir, "error", fmt.Errorf("%w: %w", resolve.ErrMissingFile, err))
		return nil
	}
	files, err := parser.ExpandExtensions(dir, exts...)
	if err != nil {
		p.Warn(ctx, "directory scan failed", "path", dir, "error", err)
		return nil
	}
	return files
}

// ReadRunTable reads a run table, rejecting one whose header lacks any of
// the required columns or that names two runs alike.
func ReadRunTable(path string) ([]Row, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- project paths come from the operator
	if err != nil {
		return nil, fmt.Errorf("reading run table: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, fmt.Errorf("run table %s: reading header: %w", path, err)
	}
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, col := range runTableColumns {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("run table %s: missing columns %q", path, missing)
	}

	var rows []Row
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("run table %s: %w", path, err)
	}
	out := rows[:0]
	seen := make(map[string]int, len(rows))
	for i, r := range rows {
		r.Name = strings.TrimSpace(r.Name)
		if r.Name == "" {
			continue
		}
		// Rows whose names map to the same document file would overwrite
		// each other. Line numbers count the header as line 1.
		key := output.SanitizeName(r.Name)
		if first, ok := seen[key]; ok {
			return nil, fmt.Errorf("run table %s: simulation name %q on line %d repeats line %d", path, r.Name, i+2, first)
		}
		seen[key] = i + 2
		r.Description = strings.TrimSpace(r.Description)
		r.Inventory = strings.TrimSpace(r.Inventory)
		r.Hazard = strings.TrimSpace(r.Hazard)
		r.Results = strings.TrimSpace(r.Results)
		out = append(out, r)
	}
	return out, nil
}

// ResolveBoundary implements extract.Driver. The boundary is optional: the
// configured boundary file, the first vector layer in the data directory
// and the inventory layer are tried in turn, and the extent stays null when
// none can be read.
func (d *Driver) ResolveBoundary(ctx context.Context, p *extract.Project, sidecarDir string) error {
	st := p.Data.(*project)

	var candidates []string
	if p.Config.BoundaryFile != "" {
		candidates = append(candidates, p.Config.BoundaryFile)
	}
	if len(st.vectors) > 0 {
		candidates = append(candidates, st.vectors[0])
	}
	if len(st.runs) > 0 {
		if inv := d.layer(p, st.runs[0].Inventory, st.main.inventory); inv != "" {
			candidates = append(candidates, inv)
		}
	}

	for i, path := range candidates {
		opts := spatial.Options{
			FallbackCRS: p.Config.FallbackCRS,
			Mode:        spatial.Envelope,
			SidecarDir:  sidecarDir,
			SidecarName: p.Name,
		}
		if i == 0 && path == p.Config.BoundaryFile {
			opts.Layer = p.Config.BoundaryLayer
		}
		res, err := spatial.Resolve(ctx, path, opts)
		if err != nil {
			p.Warn(ctx, "boundary candidate unusable", "path", path, "error", err)
			continue
		}
		p.Boundary = &res
		return nil
	}
	p.Warn(ctx, "spatial extent unavailable", "error", errors.New("no readable boundary or inventory layer"))
	return nil
}

// DiscoverSimulations implements extract.Driver. Each run table row, or the
// configured single run, is one simulation.
func (d *Driver) DiscoverSimulations(_ context.Context, p *extract.Project) ([]*extract.Simulation, error) {
	st := p.Data.(*project)

	var sims []*extract.Simulation
	for _, r := range st.runs {
		if r.Name == "" {
			continue
		}
		s := extract.NewSimulation(r.Name, "")
		s.Record.Set("Description", r.Description)
		s.Data = &run{
			hazard:    d.layer(p, r.Hazard, st.main.hazard),
			inventory: d.layer(p, r.Inventory, st.main.inventory),
			results:   d.layer(p, r.Results, st.main.results),
		}
		sims = append(sims, s)
	}
	return sims, nil
}

// layer resolves an explicit layer path, or the one main.go names, against
// the directory of main.go.
func (d *Driver) layer(p *extract.Project, explicit, fromMain string) string {
	v := explicit
	if v == "" {
		v = fromMain
	}
	if v == "" {
		return ""
	}
	return resolve.Sibling(p.Dir, v)
}

// ResolveSimulation implements extract.Driver. Layers that do not exist are
// still reported, with a warning.
func (d *Driver) ResolveSimulation(ctx context.Context, p *extract.Project, s *extract.Simulation) error {
	r := s.Data.(*run)
	for _, l := range []struct{ name, path string }{
		{"hazard", r.hazard},
		{"inventory", r.inventory},
	} {
		if l.path == "" {
			p.Warn(ctx, "layer not set", "simulation", s.Name, "layer", l.name,
				"error", fmt.Errorf("%w %q", resolve.ErrMissingField, l.name))
			continue
		}
		if _, err := os.Stat(l.path); err != nil {
			p.Warn(ctx, "layer unavailable", "simulation", s.Name, "layer", l.name,
				"error", fmt.Errorf("%w: %s", resolve.ErrMissingFile, l.path))
		}
	}
	return nil
}

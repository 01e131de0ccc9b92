// Package hms reads HEC-HMS projects. HMS files are blocks of "Key: value"
// lines closed by "End:"; the .hms file lists the project's basin,
// meteorology and control components and the .run file pairs them into
// simulation runs.
package hms

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/waterinstitute/hecmeta/pkg/config"
	"github.com/waterinstitute/hecmeta/pkg/extract"
	"github.com/waterinstitute/hecmeta/pkg/parser"
	"github.com/waterinstitute/hecmeta/pkg/resolve"
	"github.com/waterinstitute/hecmeta/pkg/spatial"
	"github.com/waterinstitute/hecmeta/pkg/template"
)

const (
	blockEnd = "End:"
	sep      = ":"
)

// basinMethods are the element methods reported as simulation parameters.
var basinMethods = []string{"Canopy", "LossRate", "Transform", "Baseflow", "Route"}

// fileName maps a component name to its file name.
var fileName = strings.NewReplacer(" ", "_", "(", "_", ")", "_")

// Driver extracts HEC-HMS projects.
type Driver struct {
	resolver *resolve.Resolver
}

// New returns an HMS driver.
func New() *Driver {
	return &Driver{resolver: resolve.New()}
}

// Dialect implements extract.Driver.
func (d *Driver) Dialect() config.Dialect { return config.DialectHMS }

type project struct {
	title     string
	outputDSS string
	gages     []template.FileRef
	extraDSS  []template.FileRef
}

type run struct {
	basinPath   string
	metPath     string
	controlPath string
	parameters  []template.Parameter
}

// ReadProject implements extract.Driver.
func (d *Driver) ReadProject(ctx context.Context, cfg config.Project) (*extract.Project, error) {
	lines, err := parser.ReadLines(cfg.ProjectFile)
	if err != nil {
		return nil, err
	}
	p, err := extract.NewProject(cfg, "")
	if err != nil {
		return nil, err
	}

	st := &project{}
	for _, b := range parser.Segment(lines, 0, blockEnd) {
		kind, name := header(b)
		if kind != "Project" {
			continue
		}
		fields := firstFields(b.Body())
		st.title = name
		st.outputDSS = fields.Get("DSS File Name")
		if st.outputDSS == "" {
			st.outputDSS = fields.Get("File Name")
		}
		p.Record.Merge(fields)
		break
	}
	if st.title == "" {
		return nil, fmt.Errorf("%s: no Project block", cfg.ProjectFile)
	}
	p.Record.Set("Title", st.title)

	st.gages = d.gages(ctx, p)
	if cfg.TimeSeriesDir != "" {
		files, err := parser.ExpandExtensions(cfg.TimeSeriesDir, ".dss")
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			title := strings.SplitN(filepath.Base(f), ".", 2)[0]
			st.extraDSS = append(st.extraDSS, p.File(title, "User Added from Input DSS File Directory", f))
		}
	}
	p.Data = st
	return p, nil
}

// gages lists the distinct DSS files the project's .gage file reads.
func (d *Driver) gages(ctx context.Context, p *extract.Project) []template.FileRef {
	path := filepath.Join(p.Dir, p.Name+".gage")
	lines, err := parser.ReadLines(path)
	if err != nil {
		p.Warn(ctx, "gage file unavailable", "path", path, "error", fmt.Errorf("%w: %w", resolve.ErrMissingFile, err))
		return nil
	}

	var out []template.FileRef
	seen := make(map[string]bool)
	for _, b := range parser.Segment(lines, 0, blockEnd) {
		fields := firstFields(b.Body())
		dss := fields.Get("DSS File Name")
		if dss == "" {
			continue
		}
		gageType := fields.Get("Gage Type")
		key := gageType + "\x00" + dss
		if seen[key] {
			continue
		}
		seen[key] = true
		title := strings.TrimSpace(gageType + " DSS File")
		out = append(out, template.File(title, fmt.Sprintf("Parsed from %s.gage file", p.Name), p.Ref(dss)))
	}
	return out
}

// ResolveBoundary implements extract.Driver.
func (d *Driver) ResolveBoundary(ctx context.Context, p *extract.Project, sidecarDir string) error {
	if p.Config.BoundaryFile == "" {
		return errors.New("boundary file is required")
	}
	res, err := spatial.Resolve(ctx, p.Config.BoundaryFile, spatial.Options{
		Layer:       p.Config.BoundaryLayer,
		FallbackCRS: p.Config.FallbackCRS,
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

// DiscoverSimulations implements extract.Driver. Runs are the blocks of
// the project's .run file.
func (d *Driver) DiscoverSimulations(_ context.Context, p *extract.Project) ([]*extract.Simulation, error) {
	path := filepath.Join(p.Dir, p.Name+".run")
	lines, err := parser.ReadLines(path)
	if err != nil {
		return nil, fmt.Errorf("reading run file: %w", err)
	}

	var sims []*extract.Simulation
	for _, b := range parser.Segment(lines, 0, blockEnd) {
		kind, name := header(b)
		if kind != "Run" || name == "" {
			continue
		}
		s := extract.NewSimulation(name, path)
		s.Record = firstFields(b.Body())
		s.Data = &run{}
		sims = append(sims, s)
	}
	return sims, nil
}

// runReferences follows a run's basin, meteorology and control names to
// their files in the project directory.
var runReferences = resolve.Plan{
	{
		Name:  "basin",
		Field: "Basin",
		Path:  componentFile(".basin"),
		Parse: basinRecord,
		Keys:  []resolve.Key{resolve.K("Description", "Basin Description")},
	},
	{
		Name:  "meteorology",
		Field: "Precip",
		Path:  componentFile(".met"),
		Parse: parseFirst,
		Keys: []resolve.Key{
			resolve.K("Description", "Meteorology Description"),
			resolve.K("Precipitation Method", "Meteorology Precipitation Method"),
		},
	},
	{
		Name:  "control",
		Field: "Control",
		Path:  componentFile(".control"),
		Parse: parseFirst,
		Keys: []resolve.Key{
			resolve.K("Description", "Control Description"),
			resolve.K("Start Date", "Control Start Date"),
			resolve.K("End Date", "Control End Date"),
			resolve.K("Time Interval", "Control Time Interval"),
		},
	},
}

// ResolveSimulation implements extract.Driver.
func (d *Driver) ResolveSimulation(ctx context.Context, p *extract.Project, s *extract.Simulation) error {
	r := s.Data.(*run)

	res, err := d.resolver.Resolve(ctx, p.Dir, s.Record, runReferences)
	if err != nil {
		return err
	}
	for _, problem := range res.Problems {
		p.Warn(ctx, "run reference unresolved", "simulation", s.Name, "error", problem)
	}

	if f, ok := res.File("basin"); ok {
		r.basinPath = f.Path
		r.parameters = methods(f.Lines)
	}
	if f, ok := res.File("meteorology"); ok {
		r.metPath = f.Path
	}
	if f, ok := res.File("control"); ok {
		r.controlPath = f.Path
	}

	var method any
	if v, ok := s.Record.Lookup("Meteorology Precipitation Method"); ok {
		method = strings.TrimSpace(v)
	}
	r.parameters = append(r.parameters, template.Parameter{Parameter: "Precipitation Method", Value: method})
	return nil
}

func componentFile(ext string) resolve.PathFunc {
	return func(dir, name string) string {
		return filepath.Join(dir, fileName.Replace(strings.TrimSpace(name))+ext)
	}
}

// header splits a block header such as "Basin: Upper Amite" into its kind
// and name.
func header(b parser.Block) (kind, name string) {
	kind, name, _ = strings.Cut(b.Header(), sep)
	return strings.TrimSpace(kind), strings.TrimSpace(name)
}

// firstFields reads "Key: value" lines keeping the first value of each key,
// since element blocks later in a file repeat keys such as Description.
func firstFields(lines []string) *parser.Record {
	rec := parser.NewRecord()
	for _, line := range lines {
		key, value, ok := strings.Cut(line, sep)
		if !ok {
			continue
		}
		rec.SetIfAbsent(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return rec
}

func parseFirst(lines []string) (*parser.Record, error) {
	return firstFields(lines), nil
}

// basinRecord reads the fields of the "Basin:" block of a .basin file.
func basinRecord(lines []string) (*parser.Record, error) {
	for _, b := range parser.Segment(lines, 0, blockEnd) {
		if kind, _ := header(b); kind == "Basin" {
			return firstFields(b.Body()), nil
		}
	}
	return parser.NewRecord(), nil
}

// methods lists the distinct values of each basin element method in order
// of first use.
func methods(lines []string) []template.Parameter {
	params := make([]template.Parameter, 0, len(basinMethods))
	for _, m := range basinMethods {
		prefix := m + ": "
		values := []string{}
		seen := make(map[string]bool)
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if !strings.HasPrefix(trimmed, prefix) {
				continue
			}
			v := strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			values = append(values, v)
		}
		params = append(params, template.Parameter{Parameter: m, Value: values})
	}
	return params
}

// Package fia reads HEC-FIA projects.
//
// The .prj file starts with "Key=value" project fields followed by map
// blocks (MapBegin ... MapEnd) and manager blocks (ManagerBegin ...
// ManagerEnd). Managers of class Simulation name a simulation XML file,
// which names an alternative, which in turn names a grid configuration.
package fia

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/waterinstitute/hecmeta/internal/ctxlog"
	"github.com/waterinstitute/hecmeta/pkg/config"
	"github.com/waterinstitute/hecmeta/pkg/extract"
	"github.com/waterinstitute/hecmeta/pkg/parser"
	"github.com/waterinstitute/hecmeta/pkg/resolve"
	"github.com/waterinstitute/hecmeta/pkg/spatial"
	"github.com/waterinstitute/hecmeta/pkg/template"
)

const (
	sep = "="

	mapBegin     = "MapBegin"
	mapEnd       = "MapEnd"
	managerBegin = "ManagerBegin"
	managerEnd   = "ManagerEnd"

	simulationClass = "Simulation"
)

// titlePrefix decorates manager names by class.
var titlePrefix = map[string]string{
	"AgricultureManager":           "Agriculture Data: ",
	"Alternative":                  "Alternative: ",
	"BoundaryManager":              "Boundary: ",
	"GridsInundationConfiguration": "Grid Configuration: ",
	"LifeSimModel":                 "LifeSim Model: ",
	"Simulation":                   "Simulation: ",
	"StructureManager":             "Structures: ",
	"TerrainModelManager":          "Terrain: ",
	"TimeWindow":                   "Time Window: ",
	"WarningIssuanceManager":       "Warning Issuance: ",
	"WatershedConfiguration":       "Watershed Configuration: ",
}

// reference is an alternative or grid configuration entry reported as a
// simulation input file.
type reference struct {
	title string
	tag   string
}

var (
	alternativeInputs = []reference{
		{"Impact Area", "ImpactArea"},
		{"Inundation Configuration", "InundationConfiguration"},
		{"Structure Inventory", "StructureInventory"},
		{"Agriculture Inventory", "AgricultureInventory"},
		{"Warning Issuance", "WarningIssuance"},
	}

	gridInputs = []reference{
		{"Inundation Grid", "InundationGridPath"},
		{"Depth Velocity Grid", "DepthVelocityGridPath"},
		{"Life Loss Arrival Grid", "LifeLossArrivalGridPath"},
		{"Agriculture Arrival Grid", "AgricultureArrivalGridPath"},
		{"Agriculture Duration Grid", "AgricultureDurationGridPath"},
	}

	parameters = []reference{
		{"Random Seed", "RandomSeed"},
		{"Confidence", "Confidence"},
		{"Convergence Tolerance", "ConvergenceTolerance"},
		{"Convergence Variables", "ConvergenceVariables"},
		{"Evacuation Velocity", "EvacuationVelocity"},
	}
)

// Driver extracts HEC-FIA projects.
type Driver struct {
	resolver *resolve.Resolver
}

// New returns an FIA driver.
func New() *Driver {
	return &Driver{resolver: resolve.New()}
}

// Dialect implements extract.Driver.
func (d *Driver) Dialect() config.Dialect { return config.DialectFIA }

type project struct {
	managers []manager
	maps     []template.FileRef
}

type manager struct {
	name        string
	description string
	file        string
	class       string
}

// title is the manager name decorated by its class.
func (m manager) title() string {
	switch m.class {
	case "AnalysisGroup":
		return m.description
	case "ImpactAreaSetManager":
		return "Impact Area Set"
	}
	return titlePrefix[m.class] + m.name
}

type simulation struct {
	inputs     []template.FileRef
	outputs    []template.FileRef
	parameters []template.Parameter
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

	start := len(lines)
	for i, line := range lines {
		if s := strings.TrimSpace(line); s == mapBegin || s == managerBegin {
			start = i
			break
		}
	}
	fields, _ := parser.ExtractFields(lines[:start], sep)
	p.Record.Merge(fields)

	st := &project{}
	for _, b := range parser.Segment(lines, start, mapEnd, managerEnd) {
		rec, _ := parser.ExtractFields(b.Body(), sep)
		switch b.Header() {
		case mapBegin:
			st.maps = append(st.maps, template.File(rec.Get("Name"), rec.Get("Description"), p.Ref(rec.Get("Path"))))
		case managerBegin:
			class := rec.Get("Class")
			if i := strings.LastIndex(class, "."); i >= 0 {
				class = class[i+1:]
			}
			st.managers = append(st.managers, manager{
				name:        rec.Get("Name"),
				description: rec.Get("Description"),
				file:        rec.Get("File"),
				class:       class,
			})
		}
	}
	p.Data = st
	return p, nil
}

// ResolveBoundary implements extract.Driver.
func (d *Driver) ResolveBoundary(ctx context.Context, p *extract.Project, sidecarDir string) error {
	if p.Config.BoundaryFile == "" {
		return errors.New("boundary file is required")
	}
	res, err := spatial.Resolve(ctx, p.Config.BoundaryFile, spatial.Options{
		Layer:       p.Config.BoundaryLayer,
		FallbackCRS: p.Config.FallbackCRS,
		Mode:        spatial.Envelope,
		SidecarDir:  sidecarDir,
		SidecarName: p.Name,
	})
	if err != nil {
		return err
	}
	p.Boundary = &res
	return nil
}

// DiscoverSimulations implements extract.Driver. Every manager of class
// Simulation is one simulation.
func (d *Driver) DiscoverSimulations(_ context.Context, p *extract.Project) ([]*extract.Simulation, error) {
	st := p.Data.(*project)

	var sims []*extract.Simulation
	for _, m := range st.managers {
		if m.class != simulationClass || m.name == "" {
			continue
		}
		s := extract.NewSimulation(m.name, "")
		if m.file != "" {
			s.Path = resolve.Sibling(p.Dir, m.file)
		}
		s.Record.Set("File", m.file)
		s.Data = &simulation{}
		sims = append(sims, s)
	}
	return sims, nil
}

// simulationReferences follows a simulation manager to its XML file, the
// alternative and time window it names, and the alternative's grid
// configuration. FIA writes these paths relative to sibling folders of the
// project, so each is resolved under dir after its last "../".
func simulationReferences(dir string) resolve.Plan {
	path := underProject(dir)

	alternativeKeys := []resolve.Key{resolve.K("Description", "Alternative Description")}
	for _, r := range alternativeInputs {
		alternativeKeys = append(alternativeKeys, resolve.K(r.tag+"Name", r.tag+"Name"), resolve.K(r.tag+"Path", r.tag+"Path"))
	}
	for _, r := range parameters {
		alternativeKeys = append(alternativeKeys, resolve.K(r.tag, r.tag))
	}
	var gridKeys []resolve.Key
	for _, r := range gridInputs {
		gridKeys = append(gridKeys, resolve.K(r.tag, r.tag))
	}

	return resolve.Plan{
		{
			Name:  "simulation",
			Field: "File",
			Path:  path,
			Parse: xmlFields("Name", "Description", "AlternativeName", "AlternativePath", "EventName", "TimeWindowName", "TimeWindowPath"),
			Keys: []resolve.Key{
				resolve.K("Name", "Simulation Name"),
				resolve.K("Description", "Simulation Description"),
				resolve.K("AlternativeName", "Alternative Name"),
				resolve.K("EventName", "Event Name"),
				resolve.K("TimeWindowName", "Time Window Name"),
			},
			Then: []resolve.Step{
				{
					Name:  "alternative",
					Field: "AlternativePath",
					Path:  path,
					Parse: xmlFields(alternativeKeyNames()...),
					Keys:  alternativeKeys,
					Then: []resolve.Step{
						{
							Name:  "grid configuration",
							Field: "InundationConfigurationPath",
							Path:  path,
							Parse: xmlFields(gridKeyNames()...),
							Keys:  gridKeys,
						},
					},
				},
				{
					Name:  "time window",
					Field: "TimeWindowPath",
					Path:  path,
					Parse: timeWindow,
					Keys: []resolve.Key{
						resolve.K("Start", "Time Window Start"),
						resolve.K("End", "Time Window End"),
					},
				},
			},
		},
	}
}

// ResolveSimulation implements extract.Driver.
func (d *Driver) ResolveSimulation(ctx context.Context, p *extract.Project, s *extract.Simulation) error {
	sim := s.Data.(*simulation)
	rec := s.Record

	res, err := d.resolver.Resolve(ctx, p.Dir, rec, simulationReferences(p.Dir))
	if err != nil {
		return err
	}
	for _, problem := range res.Problems {
		p.Warn(ctx, "simulation reference unresolved", "simulation", s.Name, "error", problem)
	}

	log := ctxlog.FromContext(ctx)
	ref := underProject(p.Dir)
	for _, r := range alternativeInputs {
		v := rec.Get(r.tag + "Path")
		if v == "" {
			log.Debug("alternative entry not set", "simulation", s.Name, "entry", r.tag)
			continue
		}
		sim.inputs = append(sim.inputs, p.File(r.title, rec.Get(r.tag+"Name"), ref("", v)))
		if r.tag != "InundationConfiguration" {
			continue
		}
		for _, g := range gridInputs {
			if gv := rec.Get(g.tag); gv != "" {
				sim.inputs = append(sim.inputs, p.File(g.title, "", ref("", gv)))
			}
		}
	}

	for _, r := range parameters {
		if v, ok := rec.Lookup(r.tag); ok {
			sim.parameters = append(sim.parameters, template.Parameter{Parameter: r.title, Value: strings.TrimSpace(v)})
		}
	}

	alt, event, tw := rec.Get("Alternative Name"), rec.Get("Event Name"), rec.Get("Time Window Name")
	if alt != "" && event != "" && tw != "" {
		results, err := parser.ExpandGlobs([]string{filepath.Join(p.Dir, "runs", alt, event, tw, "*.shp")})
		if err != nil {
			return fmt.Errorf("listing results: %w", err)
		}
		for _, f := range results {
			sim.outputs = append(sim.outputs, p.File(strings.TrimSuffix(filepath.Base(f), ".shp"), "", f))
		}
	}
	return nil
}

// underProject resolves a path written by FIA under dir, keeping only the
// part after its last "../".
func underProject(dir string) resolve.PathFunc {
	return func(_, value string) string {
		value = strings.ReplaceAll(strings.TrimSpace(value), `\`, "/")
		if i := strings.LastIndex(value, "../"); i >= 0 {
			value = value[i+len("../"):]
		}
		return resolve.Sibling(dir, value)
	}
}

// xmlFields reads the text of the first element with each tag name.
func xmlFields(tags ...string) resolve.ParseFunc {
	return func(lines []string) (*parser.Record, error) {
		doc, err := xmlquery.Parse(strings.NewReader(strings.Join(lines, "\n")))
		if err != nil {
			return nil, err
		}
		rec := parser.NewRecord()
		for _, tag := range tags {
			if n := xmlquery.FindOne(doc, "//"+tag); n != nil {
				rec.Set(tag, strings.TrimSpace(n.InnerText()))
			}
		}
		return rec, nil
	}
}

func alternativeKeyNames() []string {
	names := []string{"Description"}
	for _, r := range alternativeInputs {
		names = append(names, r.tag+"Name", r.tag+"Path")
	}
	for _, r := range parameters {
		names = append(names, r.tag)
	}
	return names
}

func gridKeyNames() []string {
	names := make([]string, 0, len(gridInputs))
	for _, r := range gridInputs {
		names = append(names, r.tag)
	}
	return names
}

// timeWindow reads the start and end fields of a time window file. Each
// field line "FLD=m_startTime" is followed by a line whose value, between
// "=" and the first ",", is a HEC time.
func timeWindow(lines []string) (*parser.Record, error) {
	rec := parser.NewRecord()
	for i := 0; i+1 < len(lines); i++ {
		var key string
		switch {
		case strings.Contains(lines[i], "FLD=m_startTime"):
			key = "Start"
		case strings.Contains(lines[i], "FLD=m_endTime"):
			key = "End"
		default:
			continue
		}
		next := lines[i+1]
		if j := strings.LastIndex(next, "="); j >= 0 {
			next = next[j+1:]
		}
		value, _, _ := strings.Cut(next, ",")
		rec.Set(key, strings.TrimSpace(value))
	}
	return rec, nil
}

package consequences

import (
	"fmt"
	"strings"

	"github.com/waterinstitute/hecmeta/pkg/extract"
	"github.com/waterinstitute/hecmeta/pkg/spatial"
	"github.com/waterinstitute/hecmeta/pkg/template"
)

const (
	sourceHazard    = "HEC-RAS"
	sourceInventory = "NSI"
	sourceOutput    = "Go-Consequences Output"
)

var (
	simulationDrop = []string{
		"_id", "temporal_resolution", "temporal_extent", "type", "model_application", "linked_resources", "parameters",
	}

	modelApplicationDrop = []string{
		"_id", "common_parameters", "spatial_valid_extent", "common_software_version", "temporal_resolution",
		"temporal_extent", "spatial_valid_extent_resolved", "linked_resources", "spatial_extent_resolved",
		"authors", "purpose",
	}
)

func fileRef(title, description, source string, locations ...string) template.FileRef {
	var locs template.Locations
	for _, l := range locations {
		if l != "" {
			locs = append(locs, l)
		}
	}
	return template.FileRef{
		Title:         title,
		SourceDataset: template.Str(source),
		Description:   template.Str(description),
		Location:      locs,
	}
}

// SimulationDocument implements extract.Driver.
func (d *Driver) SimulationDocument(p *extract.Project, s *extract.Simulation) (extract.Fill, error) {
	r := s.Data.(*run)
	prefix := fmt.Sprintf("%s Go-Consequences Simulation: %s", p.Name, s.Name)

	return extract.Fill{
		Record: s.Record,
		Spec: template.Spec{
			Drop:     simulationDrop,
			Bindings: []template.Binding{template.Bind("Description", "$.description")},
			Values: []template.Assignment{
				template.Assign("$.title", prefix),
				template.Assign("$.spatial_extent", p.SpatialExtent()),
				template.Assign("$.coordinate_system", resultsCRS(p)),
				template.Assign("$.input_files", []template.FileRef{
					fileRef(prefix+" Input Hazard Layer", "The Go-Consequences Simulation Hazard Layer.",
						sourceHazard, p.Rel(r.hazard)),
					fileRef(prefix+" Input Structure Inventory Layer", "The Go-Consequences Simulation Structure Inventory Layer.",
						sourceInventory, p.Rel(r.inventory)),
				}),
				template.Assign("$.output_files", []template.FileRef{
					fileRef(prefix+" Output Feature Layer", "The Go-Consequences Simulation output feature layer.",
						sourceOutput, p.Rel(r.results)),
				}),
			},
		},
	}, nil
}

// resultsCRS is the projection the results writer uses, or the boundary CRS
// when main.go does not say.
func resultsCRS(p *extract.Project) any {
	proj := p.Record.Get("Results Projection")
	if proj == "" {
		return p.CoordinateSystem()
	}
	if isDigits(proj) {
		return "EPSG:" + proj
	}
	return spatial.DisplayName(proj)
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

// ModelApplicationDocument implements extract.Driver.
func (d *Driver) ModelApplicationDocument(p *extract.Project, sims []*extract.Simulation) (extract.Fill, error) {
	st := p.Data.(*project)

	var b strings.Builder
	fmt.Fprintf(&b, "Description: %s\n\nSimulations:", p.Record.Get("Description"))
	seen := make(map[string]bool)
	for _, s := range sims {
		line := fmt.Sprintf("%s - %s", s.Name, s.Record.Get("Description"))
		if seen[line] {
			continue
		}
		seen[line] = true
		b.WriteString("\n\n\n" + line)
	}

	hazards := newPathSet(p)
	hazards.add(st.rasters...)
	inventories := newPathSet(p)
	inventories.add(st.vectors...)
	outputs := newPathSet(p)
	outputs.add(st.outputs...)
	for _, s := range sims {
		r := s.Data.(*run)
		hazards.add(r.hazard)
		inventories.add(r.inventory)
		outputs.add(r.results)
	}

	appDate, _ := extract.FileDate(p.Config.ProjectFile)
	return extract.Fill{
		Record: p.Record,
		Spec: template.Spec{
			Drop: modelApplicationDrop,
			Values: []template.Assignment{
				template.Assign("$.title", "Go-Consequences "+p.Name),
				template.Assign("$.description", b.String()),
				template.Assign("$.spatial_extent", p.SpatialExtent()),
				template.Assign("$.grid.coordinate_system", p.CoordinateSystem()),
				template.Assign("$.application_date", nullable(appDate)),
				template.Assign("$.common_input_files", []template.FileRef{
					fileRef("Project File", "The project's Main Go-Consequences run script file", "", p.Rel(p.Config.ProjectFile)),
					fileRef("Hazard Layers as Water Surface Elevation Raster Files",
						"There may be multiple Water Surface Elevation Rasters in the Go-Consequences data directory.",
						sourceHazard, hazards.paths...),
					fileRef("Structure Inventory Feature Layers",
						"There may be multiple Structure Inventories in the Go-Consequences data directory.",
						"", inventories.paths...),
				}),
				template.Assign("$.common_output_files", []template.FileRef{
					fileRef("Output Feature Layers", "There may be multiple Output Feature Layers.", sourceOutput, outputs.paths...),
				}),
			},
			Append: []template.Assignment{template.Assign("$.keywords", p.Keywords())},
		},
	}, nil
}

// pathSet collects distinct document paths in insertion order.
type pathSet struct {
	p     *extract.Project
	seen  map[string]bool
	paths []string
}

func newPathSet(p *extract.Project) *pathSet {
	return &pathSet{p: p, seen: make(map[string]bool)}
}

func (s *pathSet) add(paths ...string) {
	for _, path := range paths {
		rel := s.p.Rel(path)
		if rel == "" || s.seen[rel] {
			continue
		}
		s.seen[rel] = true
		s.paths = append(s.paths, rel)
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

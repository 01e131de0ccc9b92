package ras

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/waterinstitute/hecmeta/pkg/extract"
	"github.com/waterinstitute/hecmeta/pkg/parser"
	"github.com/waterinstitute/hecmeta/pkg/template"
)

var (
	simulationDrop = []string{"_id", "model_software", "model_application", "parameters", "linked_resources", "type"}

	modelApplicationDrop = []string{
		"_id", "linked_resources", "common_parameters", "common_software_version", "authors",
		"spatial_extent_resolved", "spatial_valid_extent_resolved", "spatial_valid_extent",
		"temporal_extent", "temporal_resolution",
	}
)

// SimulationDocument implements extract.Driver.
func (d *Driver) SimulationDocument(p *extract.Project, s *extract.Simulation) (extract.Fill, error) {
	pl := s.Data.(*plan)

	temporal := []any{}
	if start, end, err := parser.ParseRASDateRange(s.Record.Get("Simulation Date")); err == nil {
		temporal = []any{parser.FormatDate(start), parser.FormatDate(end)}
	}

	return extract.Fill{
		Record: s.Record,
		Spec: template.Spec{
			Drop: simulationDrop,
			Bindings: []template.Binding{
				template.Bind("Plan Title", "$.title"),
				template.Bind("Computation Interval", "$.temporal_resolution"),
			},
			Values: []template.Assignment{
				template.Assign("$.description", nullable(pl.description)),
				template.Assign("$.spatial_extent", p.SpatialExtent()),
				template.Assign("$.coordinate_system", p.CoordinateSystem()),
				template.Assign("$.temporal_extent", temporal),
				template.Assign("$.input_files", inputFiles(p, s, pl)),
				template.Assign("$.output_files", outputFiles(p, s, pl)),
			},
		},
	}, nil
}

func inputFiles(p *extract.Project, s *extract.Simulation, pl *plan) []template.FileRef {
	var files []template.FileRef
	for _, dss := range pl.dss {
		files = append(files, template.File(dss.title, dss.title, p.Ref(dss.location)))
	}
	for _, attr := range layerAttrs {
		v, ok := pl.layers[attr]
		if !ok {
			continue
		}
		name := strings.ToLower(strings.TrimSuffix(attr, " Filename"))
		files = append(files, template.File(capitalize(name), name+" used by plan", p.Ref(v)))
	}

	sibling := func(ext string) string {
		return filepath.Join(p.Dir, p.Name+"."+ext)
	}
	geom := strings.TrimPrefix(s.Record.Get("Geom File"), "g")
	flow := s.Record.Get("Flow File")
	flowNum := flow
	if len(flow) > 1 {
		flowNum = flow[1:]
	}

	files = append(files,
		p.File("prj file", "RAS project file which links projects with plans, geometry, and flow files", p.Config.ProjectFile),
		p.File("Model Boundary", "The HEC-RAS model boundary spatial extent", p.Config.BoundaryFile),
		p.File("b file", "RAS master input text file", sibling("b"+pl.code)),
	)
	if geom != "" {
		files = append(files,
			p.File("g file", "RAS geometry file", sibling("g"+geom)),
			p.File("c file", "Binary Geometry file from Geom Prep", sibling("c"+geom)),
			p.File("x file", "Geometry master input text file", sibling("x"+geom)),
		)
	}
	if flow != "" {
		files = append(files,
			p.File("u file", "unsteady flow file", sibling("u"+flowNum)),
			p.File("u hdf file", "unsteady flow file in HDF format", sibling("u"+flowNum+".hdf")),
		)
	}
	return files
}

func outputFiles(p *extract.Project, s *extract.Simulation, pl *plan) []template.FileRef {
	dss := s.Record.Get("DSS Output File")
	if dss == "" || dss == "dss" {
		dss = p.Name + ".dss"
	}
	return []template.FileRef{
		template.File("output dss file", "output model data in dss", p.Ref(dss)),
		p.File("p file", "Model plan data", s.Path),
		p.File("p hdf file", "result output in HDF format", pl.hdfPath),
	}
}

// ModelApplicationDocument implements extract.Driver.
func (d *Driver) ModelApplicationDocument(p *extract.Project, sims []*extract.Simulation) (extract.Fill, error) {
	st := p.Data.(*project)

	var titles []string
	outputs := make([]template.FileRef, 0, len(sims))
	for _, s := range sims {
		title := s.Record.Get("Plan Title")
		titles = append(titles, title)
		outputs = append(outputs, p.File(fmt.Sprintf("p file for %s", title), title, s.Path))
	}

	desc := fmt.Sprintf("Project Description: %s\nSimulations: %s", st.description, strings.Join(titles, ", "))
	appDate, _ := extract.FileDate(p.Config.ProjectFile)

	return extract.Fill{
		Record: p.Record,
		Spec: template.Spec{
			Drop: modelApplicationDrop,
			Values: []template.Assignment{
				template.Assign("$.title", p.Name+" HEC-RAS Model"),
				template.Assign("$.description", desc),
				template.Assign("$.purpose", nullable(st.description)),
				template.Assign("$.application_date", nullable(appDate)),
				template.Assign("$.grid.coordinate_system", p.CoordinateSystem()),
				template.Assign("$.spatial_extent[0]", p.SpatialExtent()),
				template.Assign("$.common_input_files", []template.FileRef{
					p.File("Model Project file", "HEC-RAS project file which links projects with plans, geometry, and flow files", p.Config.ProjectFile),
					p.File("Model Boundary", "The HEC-RAS model boundary spatial extent", p.Config.BoundaryFile),
				}),
				template.Assign("$.common_output_files", outputs),
			},
			Append: []template.Assignment{template.Assign("$.keywords", p.Keywords())},
		},
	}, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

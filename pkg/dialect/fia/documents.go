package fia

import (
	"fmt"

	"github.com/waterinstitute/hecmeta/pkg/extract"
	"github.com/waterinstitute/hecmeta/pkg/parser"
	"github.com/waterinstitute/hecmeta/pkg/template"
)

var (
	simulationDrop = []string{
		"_id", "linked_resources", "model_application", "model_software",
		"__created_at", "__created_by", "temporal_resolution",
	}

	modelApplicationDrop = []string{
		"_id", "linked_resources", "common_parameters", "common_software_version",
		"spatial_extent_resolved", "spatial_valid_extent_resolved", "spatial_valid_extent",
		"temporal_extent", "temporal_resolution", "__created_at", "__created_by",
	}
)

// SimulationDocument implements extract.Driver.
func (d *Driver) SimulationDocument(p *extract.Project, s *extract.Simulation) (extract.Fill, error) {
	sim := s.Data.(*simulation)
	rec := s.Record

	name := rec.Get("Simulation Name")
	if name == "" {
		name = s.Name
	}

	temporal := []any{}
	start, startErr := parser.ParseHECMinutes(rec.Get("Time Window Start"))
	end, endErr := parser.ParseHECMinutes(rec.Get("Time Window End"))
	if startErr == nil && endErr == nil {
		temporal = []any{parser.FormatDate(start), parser.FormatDate(end)}
	}

	inputs := sim.inputs
	if inputs == nil {
		inputs = []template.FileRef{}
	}
	outputs := sim.outputs
	if outputs == nil {
		outputs = []template.FileRef{}
	}
	params := sim.parameters
	if params == nil {
		params = []template.Parameter{}
	}
	var version any
	if v, ok := p.Record.Lookup("Version"); ok && v != "" {
		version = v
	}

	return extract.Fill{
		Record: rec,
		Spec: template.Spec{
			Drop: simulationDrop,
			Values: []template.Assignment{
				template.Assign("$.title", fmt.Sprintf("HEC-FIA %s Simulation: %s", p.Name, name)),
				template.Assign("$.description", fmt.Sprintf("HEC-FIA Simulation: %s, %s, for project: %s, using Alternative: %s.",
					name, rec.Get("Simulation Description"), p.Name, rec.Get("Alternative Name"))),
				template.Assign("$.spatial_extent", p.SpatialExtent()),
				template.Assign("$.coordinate_system", p.CoordinateSystem()),
				template.Assign("$.software_version", version),
				template.Assign("$.temporal_extent", temporal),
				template.Assign("$.parameters", params),
				template.Assign("$.input_files", inputs),
				template.Assign("$.output_files", outputs),
			},
		},
	}, nil
}

// ModelApplicationDocument implements extract.Driver.
func (d *Driver) ModelApplicationDocument(p *extract.Project, _ []*extract.Simulation) (extract.Fill, error) {
	st := p.Data.(*project)
	description := p.Record.Get("ProjectDescription")

	files := make([]template.FileRef, 0, len(st.managers)+len(st.maps))
	for _, m := range st.managers {
		title := m.title()
		desc := m.description
		if title == "Study" {
			desc = description
		}
		files = append(files, template.File(title, desc, p.Ref(m.file)))
	}
	files = append(files, st.maps...)

	var appDate any
	if created, err := parser.ParseEpochMillis(p.Record.Get("Created")); err == nil {
		appDate = parser.FormatDate(created)
	} else if date, ok := extract.FileDate(p.Config.ProjectFile); ok {
		appDate = date
	}

	authors := []string{}
	if by := p.Record.Get("Created By"); by != "" {
		authors = append(authors, by)
	}

	return extract.Fill{
		Record: p.Record,
		Spec: template.Spec{
			Drop: modelApplicationDrop,
			Bindings: []template.Binding{
				template.Bind("ProjectDescription", "$.description"),
				template.Bind("ProjectDescription", "$.purpose"),
			},
			Values: []template.Assignment{
				template.Assign("$.title", "HEC-FIA Model: "+p.Name),
				template.Assign("$.application_date", appDate),
				template.Assign("$.authors", authors),
				template.Assign("$.grid.coordinate_system", p.CoordinateSystem()),
				template.Assign("$.spatial_extent", p.SpatialExtent()),
				template.Assign("$.common_input_files", files),
			},
			Append: []template.Assignment{template.Assign("$.keywords", p.Keywords())},
		},
	}, nil
}
